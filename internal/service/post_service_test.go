package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"nutriscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), noopViewRepo(), noopUserRepo())
	ctx := context.Background()
	valid := CreatePostInput{AuthorID: "u1", Title: "Oats", Content: "Overnight oats", Category: "wellness"}

	cases := map[string]func(in *CreatePostInput){
		"empty title":      func(in *CreatePostInput) { in.Title = "  " },
		"markup only":      func(in *CreatePostInput) { in.Title = "<b></b>" },
		"empty content":    func(in *CreatePostInput) { in.Content = "" },
		"title too long":   func(in *CreatePostInput) { in.Title = strings.Repeat("x", 201) },
		"missing category": func(in *CreatePostInput) { in.Category = "" },
		"unknown category": func(in *CreatePostInput) { in.Category = "COOKING" },
		"unknown status":   func(in *CreatePostInput) { in.Status = "ARCHIVED" },
		"too many images":  func(in *CreatePostInput) { in.Images = make([]string, 10); fill(in.Images, "a.png") },
		"too many tags":    func(in *CreatePostInput) { in.Tags = make([]string, 11); fill(in.Tags, "tag") },
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			in := valid
			mutate(&in)
			_, err := svc.CreatePost(ctx, in)
			assertValidationError(t, err)
		})
	}
}

func fill(items []string, v string) {
	for i := range items {
		items[i] = v
	}
}

func TestPostService_CreatePost_DefaultsAndSnapshot(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByUIDFn = func(_ context.Context, uid string) (*models.User, error) {
		return &models.User{UID: uid, Nickname: "Ann", AvatarURL: "https://cdn/ann.png"}, nil
	}
	var stored *models.Post
	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		stored = p
		return nil
	}

	svc := NewPostService(posts, noopViewRepo(), users)
	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: "u1",
		Title:    "<script>x</script>Oats",
		Content:  "Overnight oats",
		Images:   []string{"a.png", " "},
		Category: "fitness",
	})
	require.NoError(t, err)
	assert.Same(t, stored, post)
	assert.Equal(t, uint(7), post.ID)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Equal(t, models.CategoryFitness, post.Category)
	assert.Equal(t, "Oats", post.Title)
	assert.Equal(t, []string{"a.png"}, post.Images)
	assert.Equal(t, "u1", post.AuthorID)
	assert.Equal(t, "Ann", post.AuthorName)
	assert.Equal(t, "https://cdn/ann.png", post.AuthorAvatar)
}

func TestPostService_CreatePost_UnknownAuthor(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByUIDFn = func(_ context.Context, uid string) (*models.User, error) {
		return nil, models.NewNotFoundError("User", uid)
	}
	svc := NewPostService(noopPostRepo(), noopViewRepo(), users)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: "ghost", Title: "t", Content: "c", Category: "TODDLER",
	})
	assert.True(t, models.IsNotFound(err))
}

// likeSetRepo keeps an in-memory like set so the service sees real toggle results.
func likeSetRepo() *postRepoStub {
	var mu sync.Mutex
	liked := map[string]bool{}
	order := []string{}

	repo := noopPostRepo()
	repo.toggleLikeFn = func(_ context.Context, _ uint, userID string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if liked[userID] {
			delete(liked, userID)
			for i, id := range order {
				if id == userID {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
			return false, nil
		}
		liked[userID] = true
		order = append(order, userID)
		return true, nil
	}
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		mu.Lock()
		defer mu.Unlock()
		p := &models.Post{ID: id}
		p.SetEngagement(append([]string(nil), order...), nil)
		return p, nil
	}
	return repo
}

func TestPostService_ToggleLike_TwiceRestoresState(t *testing.T) {
	t.Parallel()

	svc := NewPostService(likeSetRepo(), noopViewRepo(), noopUserRepo())
	ctx := context.Background()

	post, err := svc.ToggleLike(ctx, 1, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, post.LikeCount)
	assert.Equal(t, []string{"u1"}, post.LikedUserIDs)

	post, err = svc.ToggleLike(ctx, 1, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikeCount)
	assert.Empty(t, post.LikedUserIDs)
}

func TestPostService_ToggleLike_CountMatchesSet(t *testing.T) {
	t.Parallel()

	svc := NewPostService(likeSetRepo(), noopViewRepo(), noopUserRepo())
	ctx := context.Background()

	for _, uid := range []string{"a", "b", "a", "c", "b", "b", "d", "a"} {
		post, err := svc.ToggleLike(ctx, 1, uid)
		require.NoError(t, err)
		assert.Equal(t, len(post.LikedUserIDs), post.LikeCount)
		assert.GreaterOrEqual(t, post.LikeCount, 0)
	}
}

func TestPostService_ToggleFavorite_NotFound(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.toggleFavoriteFn = func(_ context.Context, id uint, _ string) (bool, error) {
		return false, models.NewNotFoundError("Post", id)
	}
	svc := NewPostService(posts, noopViewRepo(), noopUserRepo())
	_, err := svc.ToggleFavorite(context.Background(), 404, "u1")
	assert.True(t, models.IsNotFound(err))
}

func TestPostService_UpdatePost(t *testing.T) {
	t.Parallel()

	existing := func() *models.Post {
		return &models.Post{
			ID: 3, AuthorID: "author", Title: "Old", Content: "Body",
			Category: models.CategoryWellness, Status: models.PostStatusDraft,
			Tags: []string{"keep"},
		}
	}

	t.Run("non-author is rejected", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return existing(), nil }
		posts.updateFn = func(_ context.Context, _ *models.Post) error {
			t.Fatal("update must not be called")
			return nil
		}
		svc := NewPostService(posts, noopViewRepo(), noopUserRepo())
		_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
			UserID: "intruder", PostID: 3, Title: models.Some("Hacked"),
		})
		assertUnauthorizedError(t, err)
	})

	t.Run("only sent fields change", func(t *testing.T) {
		t.Parallel()
		var saved *models.Post
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) {
			if saved != nil {
				return saved, nil
			}
			return existing(), nil
		}
		posts.updateFn = func(_ context.Context, p *models.Post) error {
			saved = p
			return nil
		}
		svc := NewPostService(posts, noopViewRepo(), noopUserRepo())
		post, err := svc.UpdatePost(context.Background(), UpdatePostInput{
			UserID: "author", PostID: 3,
			Title:  models.Some("New"),
			Status: models.Some("published"),
		})
		require.NoError(t, err)
		assert.Equal(t, "New", post.Title)
		assert.Equal(t, "Body", post.Content)
		assert.Equal(t, models.PostStatusPublished, post.Status)
		assert.Equal(t, []string{"keep"}, post.Tags)
	})

	t.Run("null title is invalid", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return existing(), nil }
		svc := NewPostService(posts, noopViewRepo(), noopUserRepo())
		_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
			UserID: "author", PostID: 3, Title: models.Null[string](),
		})
		assertValidationError(t, err)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()

	var deleted []uint
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: "author"}, nil
	}
	posts.deleteFn = func(_ context.Context, id uint) error {
		deleted = append(deleted, id)
		return nil
	}
	svc := NewPostService(posts, noopViewRepo(), noopUserRepo())

	err := svc.DeletePost(context.Background(), DeletePostInput{UserID: "someone", PostID: 5})
	assertUnauthorizedError(t, err)
	assert.Empty(t, deleted)

	require.NoError(t, svc.DeletePost(context.Background(), DeletePostInput{UserID: "author", PostID: 5}))
	assert.Equal(t, []uint{5}, deleted)
}

func TestPostService_RecordView(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		views := noopViewRepo()
		views.upsertFn = func(_ context.Context, _ string, _ uint, _ time.Time) error {
			t.Fatal("upsert must not be called")
			return nil
		}
		svc := NewPostService(posts, views, noopUserRepo())
		err := svc.RecordView(context.Background(), "u1", 9)
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("upserts with current time", func(t *testing.T) {
		t.Parallel()
		var gotUser string
		var gotPost uint
		var gotAt time.Time
		views := noopViewRepo()
		views.upsertFn = func(_ context.Context, userID string, postID uint, at time.Time) error {
			gotUser, gotPost, gotAt = userID, postID, at
			return nil
		}
		svc := NewPostService(noopPostRepo(), views, noopUserRepo())
		svc.now = func() time.Time { return now }

		require.NoError(t, svc.RecordView(context.Background(), "u1", 9))
		assert.Equal(t, "u1", gotUser)
		assert.Equal(t, uint(9), gotPost)
		assert.Equal(t, now, gotAt)
	})
}

func TestPostService_GetViewHistory_OrderAndDeletedPosts(t *testing.T) {
	t.Parallel()

	views := noopViewRepo()
	views.listByUserFn = func(_ context.Context, _ string) ([]models.ViewRecord, error) {
		return []models.ViewRecord{{PostID: 1}, {PostID: 3}, {PostID: 2}}, nil
	}
	posts := noopPostRepo()
	posts.getByIDsFn = func(_ context.Context, ids []uint) ([]*models.Post, error) {
		assert.Equal(t, []uint{1, 3, 2}, ids)
		// post 3 was deleted; the bulk fetch comes back in id order
		return []*models.Post{{ID: 1}, {ID: 2}}, nil
	}

	svc := NewPostService(posts, views, noopUserRepo())
	history, err := svc.GetViewHistory(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint(1), history[0].ID)
	assert.Equal(t, uint(2), history[1].ID)
}

func TestPostService_GetViewHistory_RepoError(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("db down")
	views := noopViewRepo()
	views.listByUserFn = func(_ context.Context, _ string) ([]models.ViewRecord, error) { return nil, repoErr }

	svc := NewPostService(noopPostRepo(), views, noopUserRepo())
	_, err := svc.GetViewHistory(context.Background(), "u1")
	assert.ErrorIs(t, err, repoErr)
}

func TestPostService_ListPosts(t *testing.T) {
	t.Parallel()

	var gotCategory models.Category = "unset"
	posts := noopPostRepo()
	posts.listFn = func(_ context.Context, c models.Category) ([]*models.Post, error) {
		gotCategory = c
		return nil, nil
	}
	svc := NewPostService(posts, noopViewRepo(), noopUserRepo())

	_, err := svc.ListPosts(context.Background(), "nope")
	assertValidationError(t, err)

	_, err = svc.ListPosts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.Category(""), gotCategory)

	_, err = svc.ListPosts(context.Background(), "toddler")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryToddler, gotCategory)
}

func TestPostService_ListPostsByAuthor_DraftsOnlyForSelf(t *testing.T) {
	t.Parallel()

	var includeDrafts []bool
	posts := noopPostRepo()
	posts.listByAuthorFn = func(_ context.Context, _ string, drafts bool) ([]*models.Post, error) {
		includeDrafts = append(includeDrafts, drafts)
		return nil, nil
	}
	svc := NewPostService(posts, noopViewRepo(), noopUserRepo())

	_, err := svc.ListPostsByAuthor(context.Background(), "author", "author")
	require.NoError(t, err)
	_, err = svc.ListPostsByAuthor(context.Background(), "author", "")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, includeDrafts)
}
