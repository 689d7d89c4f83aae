package server

import (
	"context"
	"time"

	"nutriscan/internal/config"
	"nutriscan/internal/middleware"
	"nutriscan/internal/models"
	"nutriscan/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, category models.Category) ([]*models.Post, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]*models.Post, error) {
	args := m.Called(ctx, authorID, includeDrafts)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListFavoritedBy(ctx context.Context, userID string) ([]*models.Post, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) ToggleLike(ctx context.Context, postID uint, userID string) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) ToggleFavorite(ctx context.Context, postID uint, userID string) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}

// MockCommentRepository is a mock of the CommentRepository interface
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ToggleLike(ctx context.Context, commentID uint, userID string) (bool, error) {
	args := m.Called(ctx, commentID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentRepository) DeleteSubtree(ctx context.Context, id uint) ([]uint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	return m.user(m.Called(ctx, uid))
}

func (m *MockUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return m.user(m.Called(ctx, phone))
}

func (m *MockUserRepository) GetByWechatOpenID(ctx context.Context, openID string) (*models.User, error) {
	return m.user(m.Called(ctx, openID))
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	args := m.Called(ctx, uid, fields)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLogin(ctx context.Context, uid string, at time.Time) error {
	args := m.Called(ctx, uid, at)
	return args.Error(0)
}

// MockViewRepository is a mock of the ViewRepository interface
type MockViewRepository struct {
	mock.Mock
}

func (m *MockViewRepository) Upsert(ctx context.Context, userID string, postID uint, at time.Time) error {
	args := m.Called(ctx, userID, postID, at)
	return args.Error(0)
}

func (m *MockViewRepository) ListByUser(ctx context.Context, userID string) ([]models.ViewRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.ViewRecord), args.Error(1)
}

func (m *MockViewRepository) ClearByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockRepos struct {
	posts    *MockPostRepository
	comments *MockCommentRepository
	users    *MockUserRepository
	views    *MockViewRepository
}

// newMockServer wires real services over mock repositories.
func newMockServer() (*Server, mockRepos) {
	r := mockRepos{
		posts:    new(MockPostRepository),
		comments: new(MockCommentRepository),
		users:    new(MockUserRepository),
		views:    new(MockViewRepository),
	}
	cfg := &config.Config{JWTSecret: testSecret, JWTTTLHours: 1, LoginFixedCode: "123456"}
	middleware.InitMiddleware(cfg)
	s := &Server{
		config:         cfg,
		postService:    service.NewPostService(r.posts, r.views, r.users),
		commentService: service.NewCommentService(r.comments, r.posts, r.users),
		userService:    service.NewUserService(r.users, service.NewFixedCodeVerifier("123456")),
	}
	return s, r
}

// asUser installs a fake authenticated caller.
func asUser(uid string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", uid)
		return c.Next()
	}
}
