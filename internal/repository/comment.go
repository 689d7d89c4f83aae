package repository

import (
	"context"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	ToggleLike(ctx context.Context, commentID uint, userID string) (bool, error)
	DeleteSubtree(ctx context.Context, id uint) ([]uint, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translate(err, "Comment", comment.ID)
	}
	comment.SetLikes(nil)
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "post_id": comment.PostID})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err, "Comment", id)
	}
	if err := r.withLikes(ctx, []*models.Comment{&comment}); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns every comment on a post, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, r.withLikes(ctx, comments)
}

func (r *commentRepository) ToggleLike(ctx context.Context, commentID uint, userID string) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id").First(&comment, commentID).Error; err != nil {
			return err
		}
		var err error
		added, err = toggleMembership(tx, &models.CommentLike{},
			&models.CommentLike{CommentID: commentID, UserID: userID},
			map[string]interface{}{"comment_id": commentID, "user_id": userID})
		return err
	})
	if err != nil {
		return false, translate(err, "Comment", commentID)
	}
	return added, nil
}

// DeleteSubtree removes the comment and every comment transitively replying to it,
// together with their like sets, in one transaction. Only the owning post's
// comments are loaded to build the reply index. It returns the removed ids.
func (r *commentRepository) DeleteSubtree(ctx context.Context, id uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Comment
		if err := tx.Select("id", "post_id").First(&target, id).Error; err != nil {
			return err
		}

		var thread []*models.Comment
		if err := tx.Select("id", "parent_id").Where("post_id = ?", target.PostID).Find(&thread).Error; err != nil {
			return err
		}
		ids = models.ReplySubtree(thread, target.ID)

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return nil, translate(err, "Comment", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"comment_id": id, "removed": len(ids)})
	return ids, nil
}

func (r *commentRepository) withLikes(ctx context.Context, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	liked, err := membersByParent(r.db.WithContext(ctx), &models.CommentLike{}, "comment_id", ids)
	if err != nil {
		return models.NewInternalError(err)
	}
	for _, c := range comments {
		c.SetLikes(liked[c.ID])
	}
	return nil
}
