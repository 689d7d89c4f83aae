// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"time"
	"unicode/utf8"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"
	"nutriscan/internal/repository"
	"nutriscan/internal/sanitize"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen   = 200
	maxContentLen = 10000
	maxImages     = 9
	maxTags       = 10
)

// PostService owns post publishing, engagement toggles and view history.
type PostService struct {
	postRepo repository.PostRepository
	viewRepo repository.ViewRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

// CreatePostInput is a new post from AuthorID. An empty Status publishes immediately.
type CreatePostInput struct {
	AuthorID string
	Title    string
	Content  string
	Images   []string
	Tags     []string
	Category string
	Status   string
}

// UpdatePostInput carries the author's edits; unset fields keep their stored value.
type UpdatePostInput struct {
	UserID   string
	PostID   uint
	Title    models.Optional[string]
	Content  models.Optional[string]
	Images   models.Optional[[]string]
	Tags     models.Optional[[]string]
	Category models.Optional[string]
	Status   models.Optional[string]
}

// DeletePostInput names the post to remove and the user asking.
type DeletePostInput struct {
	UserID string
	PostID uint
}

// NewPostService wires a PostService to its repositories.
func NewPostService(
	postRepo repository.PostRepository,
	viewRepo repository.ViewRepository,
	userRepo repository.UserRepository,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		viewRepo: viewRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// CreatePost validates and sanitizes in, then stores the post under the author's current profile snapshot.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	content, err := validContent(in.Content)
	if err != nil {
		return nil, err
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, models.NewValidationError("Category must be one of WELLNESS, FITNESS, TODDLER")
	}
	status := models.PostStatusPublished
	if in.Status != "" {
		if status, ok = models.ParsePostStatus(in.Status); !ok {
			return nil, models.NewValidationError("Status must be one of DRAFT, PUBLISHED, DELETED")
		}
	}
	images, tags, err := validLists(in.Images, in.Tags)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByUID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:     author.UID,
		AuthorName:   author.Nickname,
		AuthorAvatar: author.AvatarURL,
		Title:        title,
		Content:      content,
		Images:       images,
		Tags:         tags,
		Category:     category,
		Status:       status,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns published posts newest first; an empty category means all of them.
func (s *PostService) ListPosts(ctx context.Context, category string) ([]*models.Post, error) {
	var c models.Category
	if category != "" {
		var ok bool
		if c, ok = models.ParseCategory(category); !ok {
			return nil, models.NewValidationError("Unknown category")
		}
	}
	return s.postRepo.List(ctx, c)
}

// GetPost returns a post with its like and favorite sets.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// ListPostsByAuthor includes drafts only when the author is the one asking.
func (s *PostService) ListPostsByAuthor(ctx context.Context, authorID, viewerID string) ([]*models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, authorID, authorID == viewerID)
}

// UpdatePost applies an author's edits.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only edit your own posts")
	}

	if in.Title.Set {
		if post.Title, err = validTitle(in.Title.Value); err != nil {
			return nil, err
		}
	}
	if in.Content.Set {
		if post.Content, err = validContent(in.Content.Value); err != nil {
			return nil, err
		}
	}
	if in.Category.Set {
		c, ok := models.ParseCategory(in.Category.Value)
		if !ok {
			return nil, models.NewValidationError("Category must be one of WELLNESS, FITNESS, TODDLER")
		}
		post.Category = c
	}
	if in.Status.Set {
		st, ok := models.ParsePostStatus(in.Status.Value)
		if !ok {
			return nil, models.NewValidationError("Status must be one of DRAFT, PUBLISHED, DELETED")
		}
		post.Status = st
	}
	images, tags, err := validLists(in.Images.Value, in.Tags.Value)
	if err != nil {
		return nil, err
	}
	if in.Images.Set {
		post.Images = images
	}
	if in.Tags.Set {
		post.Tags = tags
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes an author's own post along with its comments, likes and favorites.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.AuthorID != in.UserID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, in.PostID)
}

// ToggleLike flips the caller's membership in the post's like set and returns the post as it now stands.
func (s *PostService) ToggleLike(ctx context.Context, postID uint, userID string) (*models.Post, error) {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "ToggleLike")
	defer span.End()

	added, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Bool("engagement.added", added))
	observability.RecordToggle("post", "like", added)
	return s.postRepo.GetByID(ctx, postID)
}

// ToggleFavorite flips the caller's membership in the post's favorite set.
func (s *PostService) ToggleFavorite(ctx context.Context, postID uint, userID string) (*models.Post, error) {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "ToggleFavorite")
	defer span.End()

	added, err := s.postRepo.ToggleFavorite(ctx, postID, userID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.RecordToggle("post", "favorite", added)
	return s.postRepo.GetByID(ctx, postID)
}

// ListFavorites returns the posts userID has favorited.
func (s *PostService) ListFavorites(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.postRepo.ListFavoritedBy(ctx, userID)
}

// RecordView stamps the caller's last view of an existing post.
func (s *PostService) RecordView(ctx context.Context, userID string, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}
	return s.viewRepo.Upsert(ctx, userID, postID, s.now())
}

// GetViewHistory returns the posts the user viewed, most recent view first.
// Posts deleted since they were viewed are left out without error.
func (s *PostService) GetViewHistory(ctx context.Context, userID string) ([]*models.Post, error) {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "GetViewHistory")
	defer span.End()

	records, err := s.viewRepo.ListByUser(ctx, userID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	ids := make([]uint, len(records))
	for i, rec := range records {
		ids[i] = rec.PostID
	}

	posts, err := s.postRepo.GetByIDs(ctx, ids)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	byID := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	ordered := make([]*models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	span.AddAttributes(
		attribute.Int("history.records", len(records)),
		attribute.Int("history.posts", len(ordered)),
	)
	return ordered, nil
}

// ClearViewHistory forgets every view recorded for userID.
func (s *PostService) ClearViewHistory(ctx context.Context, userID string) error {
	return s.viewRepo.ClearByUser(ctx, userID)
}

func validTitle(raw string) (string, error) {
	title := sanitize.Text(raw)
	if title == "" {
		return "", models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", models.NewValidationError("Title too long (max 200 characters)")
	}
	return title, nil
}

func validContent(raw string) (string, error) {
	content := sanitize.Text(raw)
	if content == "" {
		return "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "", models.NewValidationError("Content too long (max 10000 characters)")
	}
	return content, nil
}

func validLists(images, tags []string) ([]string, []string, error) {
	images = sanitize.List(images)
	tags = sanitize.List(tags)
	if len(images) > maxImages {
		return nil, nil, models.NewValidationError("Too many images (max 9)")
	}
	if len(tags) > maxTags {
		return nil, nil, models.NewValidationError("Too many tags (max 10)")
	}
	return images, tags, nil
}
