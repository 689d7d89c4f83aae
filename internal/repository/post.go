package repository

import (
	"context"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
// Every post it returns carries its like and favorite sets with counts derived from them.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	List(ctx context.Context, category models.Category) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]*models.Post, error)
	ListFavoritedBy(ctx context.Context, userID string) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID uint, userID string) (bool, error)
	ToggleFavorite(ctx context.Context, postID uint, userID string) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translate(err, "Post", post.ID)
	}
	post.SetEngagement(nil, nil)
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, translate(err, "Post", id)
	}
	if err := r.withEngagement(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetByIDs returns the posts that still exist, in no particular order.
func (r *postRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, r.withEngagement(ctx, posts)
}

// List returns published posts, newest first, optionally restricted to one category.
func (r *postRepository) List(ctx context.Context, category models.Category) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Where("status = ?", models.PostStatusPublished)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var posts []*models.Post
	if err := q.Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, r.withEngagement(ctx, posts)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Where("author_id = ?", authorID)
	if !includeDrafts {
		q = q.Where("status = ?", models.PostStatusPublished)
	}
	var posts []*models.Post
	if err := q.Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, r.withEngagement(ctx, posts)
}

// ListFavoritedBy returns the posts whose favorite set contains userID, most recently favorited first.
func (r *postRepository) ListFavoritedBy(ctx context.Context, userID string) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Select("posts.*").
		Joins("JOIN post_favorites ON post_favorites.post_id = posts.id").
		Where("post_favorites.user_id = ?", userID).
		Order("post_favorites.created_at DESC, posts.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, r.withEngagement(ctx, posts)
}

// Update writes the author-editable columns only; the author snapshot and engagement sets are untouched.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	result := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "images", "tags", "category", "status", "updated_at").
		Updates(post)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "update")
		return translate(result.Error, "Post", post.ID)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"post_id": post.ID})
	return nil
}

// Delete physically removes the post with its engagement sets and its comment threads.
// View records are kept; history reconstruction skips posts that no longer exist.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.PostFavorite{}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return translate(err, "Post", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID uint, userID string) (bool, error) {
	return r.toggle(ctx, postID, userID, &models.PostLike{}, &models.PostLike{PostID: postID, UserID: userID})
}

func (r *postRepository) ToggleFavorite(ctx context.Context, postID uint, userID string) (bool, error) {
	return r.toggle(ctx, postID, userID, &models.PostFavorite{}, &models.PostFavorite{PostID: postID, UserID: userID})
}

func (r *postRepository) toggle(ctx context.Context, postID uint, userID string, model, row interface{}) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			return err
		}
		var err error
		added, err = toggleMembership(tx, model, row, map[string]interface{}{"post_id": postID, "user_id": userID})
		return err
	})
	if err != nil {
		return false, translate(err, "Post", postID)
	}
	return added, nil
}

func (r *postRepository) withEngagement(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	db := r.db.WithContext(ctx)
	liked, err := membersByParent(db, &models.PostLike{}, "post_id", ids)
	if err != nil {
		return models.NewInternalError(err)
	}
	favorited, err := membersByParent(db, &models.PostFavorite{}, "post_id", ids)
	if err != nil {
		return models.NewInternalError(err)
	}
	for _, p := range posts {
		p.SetEngagement(liked[p.ID], favorited[p.ID])
	}
	return nil
}
