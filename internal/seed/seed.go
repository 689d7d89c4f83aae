package seed

import (
	"context"
	"fmt"

	"nutriscan/internal/database"
	"nutriscan/internal/middleware"
	"nutriscan/internal/models"
	"nutriscan/internal/repository"

	"gorm.io/gorm"
)

// Options configures how much data the Seeder generates.
type Options struct {
	NumUsers int
	NumPosts int
	// MaxDays bounds how far back generated posts are dated.
	MaxDays int
	// MaxCommentsPerPost caps top-level comments; each may get one reply.
	MaxCommentsPerPost int
	RandomSeed         int64
}

// Summary counts what a seeding run wrote.
type Summary struct {
	Users     int
	Posts     int
	Comments  int
	Likes     int
	Favorites int
	Views     int
}

// Seeder persists generated data through the same repositories the API uses.
type Seeder struct {
	db       *gorm.DB
	opts     Options
	factory  *Factory
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	views    repository.ViewRepository
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.MaxCommentsPerPost <= 0 {
		opts.MaxCommentsPerPost = 4
	}
	return &Seeder{
		db:       db,
		opts:     opts,
		factory:  NewFactory(opts),
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		views:    repository.NewViewRepository(db),
	}
}

// ClearAll empties every persistent table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := database.PersistentModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(tables[i]).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", tables[i], err)
		}
	}
	middleware.Logger.InfoContext(ctx, "cleared existing data")
	return nil
}

// SeedCommunity creates users, posts, comment threads, likes, favorites and views.
func (s *Seeder) SeedCommunity(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		u := s.factory.BuildUser()
		if err := s.users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	f := s.factory.faker
	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[f.Number(0, len(users)-1)]
		p := s.factory.BuildPost(author)
		if err := s.posts.Create(ctx, p); err != nil {
			return sum, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, p)
	}
	sum.Posts = len(posts)

	for _, p := range posts {
		for i := f.Number(0, s.opts.MaxCommentsPerPost); i > 0; i-- {
			top := s.factory.BuildComment(p, users[f.Number(0, len(users)-1)], nil)
			if err := s.comments.Create(ctx, top); err != nil {
				return sum, fmt.Errorf("failed to create comment: %w", err)
			}
			sum.Comments++
			if f.Bool() {
				reply := s.factory.BuildComment(p, users[f.Number(0, len(users)-1)], top)
				if err := s.comments.Create(ctx, reply); err != nil {
					return sum, fmt.Errorf("failed to create reply: %w", err)
				}
				sum.Comments++
			}
		}

		for _, u := range users {
			if u.UID == p.AuthorID {
				continue
			}
			switch f.Number(0, 5) {
			case 0:
				if _, err := s.posts.ToggleLike(ctx, p.ID, u.UID); err != nil {
					return sum, fmt.Errorf("failed to like post: %w", err)
				}
				sum.Likes++
			case 1:
				if _, err := s.posts.ToggleFavorite(ctx, p.ID, u.UID); err != nil {
					return sum, fmt.Errorf("failed to favorite post: %w", err)
				}
				sum.Favorites++
			case 2:
				if err := s.views.Upsert(ctx, u.UID, p.ID, s.factory.pastTime()); err != nil {
					return sum, fmt.Errorf("failed to record view: %w", err)
				}
				sum.Views++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding completed",
		"users", sum.Users, "posts", sum.Posts, "comments", sum.Comments,
		"likes", sum.Likes, "favorites", sum.Favorites, "views", sum.Views)
	return sum, nil
}
