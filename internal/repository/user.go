package repository

import (
	"context"
	"time"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByWechatOpenID(ctx context.Context, openID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error
	TouchLogin(ctx context.Context, uid string, at time.Time) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) first(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&user).Error; err != nil {
		return nil, translate(err, "User", value)
	}
	return &user, nil
}

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	return r.first(ctx, "user_uid", uid)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.first(ctx, "phone_number", phone)
}

func (r *userRepository) GetByWechatOpenID(ctx context.Context, openID string) (*models.User, error) {
	return r.first(ctx, "wechat_open_id", openID)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translate(err, "User", user.UID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_uid": user.UID, "login_type": user.LoginType})
	return nil
}

// UpdateFields writes only the given columns, so concurrent patches to disjoint fields both survive.
func (r *userRepository) UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("user_uid = ?", uid).Updates(fields)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "update")
		return translate(result.Error, "User", uid)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", uid)
	}
	columns := make([]string, 0, len(fields))
	for k := range fields {
		columns = append(columns, k)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"user_uid": uid, "columns": columns})
	return nil
}

func (r *userRepository) TouchLogin(ctx context.Context, uid string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_uid = ?", uid).
		UpdateColumn("last_login_at", at).Error
	return translate(err, "User", uid)
}
