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

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newUserService(repo *userRepoStub) *UserService {
	svc := NewUserService(repo, NewFixedCodeVerifier("123456"))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	t.Run("duplicate phone conflicts", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByPhoneFn = func(_ context.Context, phone string) (*models.User, error) {
			return &models.User{UID: "existing", PhoneNumber: &phone}, nil
		}
		repo.createFn = func(_ context.Context, _ *models.User) error {
			t.Fatal("create must not be called")
			return nil
		}
		_, err := newUserService(repo).Register(context.Background(), RegisterInput{PhoneNumber: "13800000000"})
		assertAppErrorCode(t, err, models.CodeConflict)
	})

	t.Run("duplicate wechat id conflicts", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByWechatOpenIDFn = func(_ context.Context, id string) (*models.User, error) {
			return &models.User{UID: "existing", WechatOpenID: &id}, nil
		}
		_, err := newUserService(repo).Register(context.Background(), RegisterInput{WechatOpenID: "wx-1"})
		assertAppErrorCode(t, err, models.CodeConflict)
	})

	t.Run("unused phone succeeds with defaults", func(t *testing.T) {
		t.Parallel()
		var created *models.User
		repo := noopUserRepo()
		repo.createFn = func(_ context.Context, u *models.User) error {
			created = u
			return nil
		}
		user, err := newUserService(repo).Register(context.Background(), RegisterInput{
			PhoneNumber: "13800000001",
			Gender:      ptr(models.GenderMale),
			BirthDate:   "1994-01-15",
			Height:      ptr(170.0),
			Weight:      ptr(65.0),
		})
		require.NoError(t, err)
		assert.Same(t, created, user)
		assert.NotEmpty(t, user.UID)
		assert.Equal(t, models.DefaultNickname, user.Nickname)
		assert.Equal(t, models.LoginTypePhone, user.LoginType)
		require.NotNil(t, user.PhoneNumber)
		assert.Equal(t, "13800000001", *user.PhoneNumber)
		assert.Nil(t, user.WechatOpenID)
		require.NotNil(t, user.BMI)
		assert.Equal(t, 22.5, *user.BMI)
		require.NotNil(t, user.BMR)
		assert.Equal(t, 1568, *user.BMR)
	})

	t.Run("repo conflict surfaces", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(_ context.Context, _ *models.User) error {
			return models.NewConflictError("duplicate")
		}
		_, err := newUserService(repo).Register(context.Background(), RegisterInput{PhoneNumber: "13800000002"})
		assertAppErrorCode(t, err, models.CodeConflict)
	})

	invalid := map[string]RegisterInput{
		"no identifier":  {Nickname: "x"},
		"bad phone":      {PhoneNumber: "call-me"},
		"bad gender":     {PhoneNumber: "13800000003", Gender: ptr(7)},
		"bad birth date": {PhoneNumber: "13800000003", BirthDate: "15/01/1994"},
		"future birth":   {PhoneNumber: "13800000003", BirthDate: "2999-01-01"},
		"height range":   {PhoneNumber: "13800000003", Height: ptr(900.0)},
		"weight range":   {PhoneNumber: "13800000003", Weight: ptr(-1.0)},
	}
	for name, in := range invalid {
		in := in
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := newUserService(noopUserRepo()).Register(context.Background(), in)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_Login_Phone(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByPhoneFn = func(_ context.Context, phone string) (*models.User, error) {
		if phone == "13800000000" {
			return &models.User{UID: "u1", PhoneNumber: &phone}, nil
		}
		return nil, models.NewNotFoundError("User", phone)
	}
	var touched string
	repo.touchLoginFn = func(_ context.Context, uid string, at time.Time) error {
		touched = uid
		assert.Equal(t, fixedNow, at)
		return nil
	}
	svc := newUserService(repo)
	ctx := context.Background()

	user, err := svc.Login(ctx, PhoneCredential{Phone: "13800000000", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UID)
	assert.Equal(t, "u1", touched)
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, fixedNow, *user.LastLoginAt)

	for _, code := range []string{"654321", "12345", "", "1234567"} {
		_, err := svc.Login(ctx, PhoneCredential{Phone: "13800000000", Code: code})
		assertAppErrorCode(t, err, models.CodeInvalidCredential)
	}

	_, err = svc.Login(ctx, PhoneCredential{Phone: "13900000000", Code: "123456"})
	assert.True(t, models.IsNotFound(err))
}

func TestUserService_Login_Federated(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByWechatOpenIDFn = func(_ context.Context, id string) (*models.User, error) {
		if id == "wx-1" {
			return &models.User{UID: "u2", WechatOpenID: &id}, nil
		}
		return nil, models.NewNotFoundError("User", id)
	}
	svc := newUserService(repo)

	user, err := svc.Login(context.Background(), FederatedCredential{OpenID: "wx-1"})
	require.NoError(t, err)
	assert.Equal(t, "u2", user.UID)

	_, err = svc.Login(context.Background(), FederatedCredential{OpenID: "wx-unknown"})
	assert.True(t, models.IsNotFound(err))

	_, err = svc.Login(context.Background(), FederatedCredential{})
	assertAppErrorCode(t, err, models.CodeInvalidCredential)
}

func TestUserService_Login_NilCredential(t *testing.T) {
	t.Parallel()

	_, err := newUserService(noopUserRepo()).Login(context.Background(), nil)
	assertAppErrorCode(t, err, models.CodeInvalidCredential)
}

func TestParseCredential(t *testing.T) {
	t.Parallel()

	cred, err := ParseCredential("phone", " 138 ", "123456", "")
	require.NoError(t, err)
	assert.Equal(t, PhoneCredential{Phone: "138", Code: "123456"}, cred)

	cred, err = ParseCredential("WECHAT", "", "", "wx")
	require.NoError(t, err)
	assert.Equal(t, FederatedCredential{OpenID: "wx"}, cred)

	for _, tag := range []string{"", "EMAIL", "UNKNOWN"} {
		_, err = ParseCredential(tag, "138", "123456", "wx")
		assertAppErrorCode(t, err, models.CodeInvalidCredential)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	stored := func() *models.User {
		u := &models.User{
			UID:      "u1",
			Nickname: "Old",
			Gender:   ptr(models.GenderFemale),
			Height:   ptr(160.0),
			Weight:   ptr(50.0),
		}
		u.BirthDate = ptr(time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC))
		u.RecomputeMetrics(fixedNow)
		return u
	}

	t.Run("nickname only leaves everything else", func(t *testing.T) {
		t.Parallel()
		var written map[string]interface{}
		repo := noopUserRepo()
		repo.getByUIDFn = func(_ context.Context, _ string) (*models.User, error) { return stored(), nil }
		repo.updateFieldsFn = func(_ context.Context, _ string, fields map[string]interface{}) error {
			written = fields
			return nil
		}
		_, err := newUserService(repo).UpdateProfile(context.Background(), UpdateProfileInput{
			ActorID: "u1", UserID: "u1", Nickname: models.Some("New"),
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"nickname": "New"}, written)
	})

	t.Run("weight change recomputes metrics", func(t *testing.T) {
		t.Parallel()
		var written map[string]interface{}
		repo := noopUserRepo()
		repo.getByUIDFn = func(_ context.Context, _ string) (*models.User, error) { return stored(), nil }
		repo.updateFieldsFn = func(_ context.Context, _ string, fields map[string]interface{}) error {
			written = fields
			return nil
		}
		_, err := newUserService(repo).UpdateProfile(context.Background(), UpdateProfileInput{
			ActorID: "u1", UserID: "u1", Weight: models.Some(64.0),
		})
		require.NoError(t, err)
		require.Contains(t, written, "bmi")
		require.Contains(t, written, "bmr")
		assert.Equal(t, 25.0, *written["bmi"].(*float64))
		assert.NotContains(t, written, "nickname")
		assert.NotContains(t, written, "height")
	})

	t.Run("null height clears bmi", func(t *testing.T) {
		t.Parallel()
		var written map[string]interface{}
		repo := noopUserRepo()
		repo.getByUIDFn = func(_ context.Context, _ string) (*models.User, error) { return stored(), nil }
		repo.updateFieldsFn = func(_ context.Context, _ string, fields map[string]interface{}) error {
			written = fields
			return nil
		}
		_, err := newUserService(repo).UpdateProfile(context.Background(), UpdateProfileInput{
			ActorID: "u1", UserID: "u1", Height: models.Null[float64](),
		})
		require.NoError(t, err)
		assert.Nil(t, written["height"])
		assert.Nil(t, written["bmi"])
		assert.Nil(t, written["bmr"])
	})

	t.Run("empty nickname rejected", func(t *testing.T) {
		t.Parallel()
		_, err := newUserService(noopUserRepo()).UpdateProfile(context.Background(), UpdateProfileInput{
			ActorID: "u1", UserID: "u1", Nickname: models.Null[string](),
		})
		assertValidationError(t, err)
	})

	t.Run("other user's profile", func(t *testing.T) {
		t.Parallel()
		_, err := newUserService(noopUserRepo()).UpdateProfile(context.Background(), UpdateProfileInput{
			ActorID: "u2", UserID: "u1", Nickname: models.Some("x"),
		})
		assertUnauthorizedError(t, err)
	})

	t.Run("empty patch writes nothing", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.updateFieldsFn = func(_ context.Context, _ string, _ map[string]interface{}) error {
			return errors.New("should not write")
		}
		user, err := newUserService(repo).UpdateProfile(context.Background(), UpdateProfileInput{ActorID: "u1", UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, "u1", user.UID)
	})
}

func TestUserService_IssueLoginCode(t *testing.T) {
	t.Parallel()

	svc := newUserService(noopUserRepo())
	assert.NoError(t, svc.IssueLoginCode(context.Background(), "+8613800000000"))
	assertValidationError(t, svc.IssueLoginCode(context.Background(), "abc"))
}
