package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutriscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, uint) (*models.Post, error)
	getByIDsFn        func(context.Context, []uint) ([]*models.Post, error)
	listFn            func(context.Context, models.Category) ([]*models.Post, error)
	listByAuthorFn    func(context.Context, string, bool) ([]*models.Post, error)
	listFavoritedByFn func(context.Context, string) ([]*models.Post, error)
	updateFn          func(context.Context, *models.Post) error
	deleteFn          func(context.Context, uint) error
	toggleLikeFn      func(context.Context, uint, string) (bool, error)
	toggleFavoriteFn  func(context.Context, uint, string) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *postRepoStub) List(ctx context.Context, category models.Category) ([]*models.Post, error) {
	return s.listFn(ctx, category)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, includeDrafts)
}
func (s *postRepoStub) ListFavoritedBy(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.listFavoritedByFn(ctx, userID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID uint, userID string) (bool, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) ToggleFavorite(ctx context.Context, postID uint, userID string) (bool, error) {
	return s.toggleFavoriteFn(ctx, postID, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:          func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:         func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		getByIDsFn:        func(_ context.Context, _ []uint) ([]*models.Post, error) { return nil, nil },
		listFn:            func(_ context.Context, _ models.Category) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn:    func(_ context.Context, _ string, _ bool) ([]*models.Post, error) { return nil, nil },
		listFavoritedByFn: func(_ context.Context, _ string) ([]*models.Post, error) { return nil, nil },
		updateFn:          func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:          func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn:      func(_ context.Context, _ uint, _ string) (bool, error) { return true, nil },
		toggleFavoriteFn:  func(_ context.Context, _ uint, _ string) (bool, error) { return true, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByPostFn    func(context.Context, uint) ([]*models.Comment, error)
	toggleLikeFn    func(context.Context, uint, string) (bool, error)
	deleteSubtreeFn func(context.Context, uint) ([]uint, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) ToggleLike(ctx context.Context, commentID uint, userID string) (bool, error) {
	return s.toggleLikeFn(ctx, commentID, userID)
}
func (s *commentRepoStub) DeleteSubtree(ctx context.Context, id uint) ([]uint, error) {
	return s.deleteSubtreeFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:        func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn:    func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		toggleLikeFn:    func(_ context.Context, _ uint, _ string) (bool, error) { return true, nil },
		deleteSubtreeFn: func(_ context.Context, id uint) ([]uint, error) { return []uint{id}, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByUIDFn          func(context.Context, string) (*models.User, error)
	getByPhoneFn        func(context.Context, string) (*models.User, error)
	getByWechatOpenIDFn func(context.Context, string) (*models.User, error)
	createFn            func(context.Context, *models.User) error
	updateFieldsFn      func(context.Context, string, map[string]interface{}) error
	touchLoginFn        func(context.Context, string, time.Time) error
}

func (s *userRepoStub) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	return s.getByUIDFn(ctx, uid)
}
func (s *userRepoStub) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.getByPhoneFn(ctx, phone)
}
func (s *userRepoStub) GetByWechatOpenID(ctx context.Context, openID string) (*models.User, error) {
	return s.getByWechatOpenIDFn(ctx, openID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	return s.updateFieldsFn(ctx, uid, fields)
}
func (s *userRepoStub) TouchLogin(ctx context.Context, uid string, at time.Time) error {
	return s.touchLoginFn(ctx, uid, at)
}

func noopUserRepo() *userRepoStub {
	notFound := func(_ context.Context, v string) (*models.User, error) {
		return nil, models.NewNotFoundError("User", v)
	}
	return &userRepoStub{
		getByUIDFn: func(_ context.Context, uid string) (*models.User, error) {
			return &models.User{UID: uid, Nickname: "tester"}, nil
		},
		getByPhoneFn:        notFound,
		getByWechatOpenIDFn: notFound,
		createFn:            func(_ context.Context, _ *models.User) error { return nil },
		updateFieldsFn:      func(_ context.Context, _ string, _ map[string]interface{}) error { return nil },
		touchLoginFn:        func(_ context.Context, _ string, _ time.Time) error { return nil },
	}
}

// viewRepoStub is a stub for repository.ViewRepository.
type viewRepoStub struct {
	upsertFn      func(context.Context, string, uint, time.Time) error
	listByUserFn  func(context.Context, string) ([]models.ViewRecord, error)
	clearByUserFn func(context.Context, string) error
}

func (s *viewRepoStub) Upsert(ctx context.Context, userID string, postID uint, at time.Time) error {
	return s.upsertFn(ctx, userID, postID, at)
}
func (s *viewRepoStub) ListByUser(ctx context.Context, userID string) ([]models.ViewRecord, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *viewRepoStub) ClearByUser(ctx context.Context, userID string) error {
	return s.clearByUserFn(ctx, userID)
}

func noopViewRepo() *viewRepoStub {
	return &viewRepoStub{
		upsertFn:      func(_ context.Context, _ string, _ uint, _ time.Time) error { return nil },
		listByUserFn:  func(_ context.Context, _ string) ([]models.ViewRecord, error) { return nil, nil },
		clearByUserFn: func(_ context.Context, _ string) error { return nil },
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func ptr[T any](v T) *T { return &v }
