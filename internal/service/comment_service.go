package service

import (
	"context"
	"unicode/utf8"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"
	"nutriscan/internal/repository"
	"nutriscan/internal/sanitize"

	"go.opentelemetry.io/otel/attribute"
)

const maxCommentLen = 2000

// CommentService manages comment threads under posts.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
}

// CreateCommentInput is a top-level comment, or a reply when ParentID is set.
type CreateCommentInput struct {
	UserID   string
	PostID   uint
	ParentID *uint
	Content  string
}

// DeleteCommentInput names the comment to remove and the user asking.
type DeleteCommentInput struct {
	UserID    string
	CommentID uint
}

// NewCommentService wires a CommentService to its repositories.
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
	}
}

// ListComments returns a post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.commentRepo.ListByPost(ctx, postID)
}

// AddComment stores a comment or a reply. A reply's parent must be a comment on the same post.
func (s *CommentService) AddComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := sanitize.Text(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  in.PostID,
		Content: content,
	}
	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if models.IsNotFound(err) {
				return nil, models.NewValidationError("Parent comment does not exist")
			}
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to another post")
		}
		comment.ParentID = &parent.ID
		comment.ReplyToUserName = parent.AuthorName
	}

	author, err := s.userRepo.GetByUID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	comment.AuthorID = author.UID
	comment.AuthorName = author.Nickname
	comment.AuthorAvatar = author.AvatarURL

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ToggleLike flips the caller's like on a comment.
func (s *CommentService) ToggleLike(ctx context.Context, commentID uint, userID string) (*models.Comment, error) {
	added, err := s.commentRepo.ToggleLike(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	observability.RecordToggle("comment", "like", added)
	return s.commentRepo.GetByID(ctx, commentID)
}

// DeleteComment removes the comment and its whole reply subtree.
// The comment's author and the author of the post it sits under may delete it.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	span, ctx := observability.StartServiceSpan(ctx, "CommentService", "DeleteComment")
	defer span.End()

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		span.SetError(err)
		return err
	}
	if comment.AuthorID != in.UserID {
		post, err := s.postRepo.GetByID(ctx, comment.PostID)
		if err != nil && !models.IsNotFound(err) {
			span.SetError(err)
			return err
		}
		if post == nil || post.AuthorID != in.UserID {
			return models.NewUnauthorizedError("You can only delete your own comments")
		}
	}

	removed, err := s.commentRepo.DeleteSubtree(ctx, in.CommentID)
	if err != nil {
		span.SetError(err)
		return err
	}
	span.AddAttributes(attribute.Int("comment.subtree_size", len(removed)))
	observability.CommentSubtreeSize.Observe(float64(len(removed)))
	return nil
}
