// Package models contains data structures for the application's domain models.
package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultNickname is assigned to accounts registered without one.
const DefaultNickname = "新用户"

// LoginType tags which identifier an account signs in with.
type LoginType string

const (
	LoginTypePhone   LoginType = "PHONE"
	LoginTypeWechat  LoginType = "WECHAT"
	LoginTypeUnknown LoginType = "UNKNOWN"
)

// ParseLoginType maps a case-insensitive tag onto a LoginType; anything else is UNKNOWN.
func ParseLoginType(s string) LoginType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LoginTypePhone):
		return LoginTypePhone
	case string(LoginTypeWechat):
		return LoginTypeWechat
	default:
		return LoginTypeUnknown
	}
}

// Gender values as stored on the profile.
const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// User represents an account in the NutriScan community.
// ID is the internal key and never leaves the service; UID is the public identifier.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	UID           string     `gorm:"column:user_uid;size:64;uniqueIndex;not null" json:"id"`
	Nickname      string     `gorm:"size:64" json:"nickname"`
	AvatarURL     string     `json:"avatar_url"`
	Gender        *int       `json:"gender,omitempty"`
	BirthDate     *time.Time `gorm:"type:date" json:"birth_date,omitempty"`
	Height        *float64   `json:"height,omitempty"`
	Weight        *float64   `json:"weight,omitempty"`
	TargetWeight  *float64   `json:"target_weight,omitempty"`
	Waistline     *float64   `json:"waistline,omitempty"`
	BMI           *float64   `gorm:"column:bmi" json:"bmi,omitempty"`
	BMR           *int       `gorm:"column:bmr" json:"bmr,omitempty"`
	LoginType     LoginType  `gorm:"size:16" json:"login_type"`
	PhoneNumber   *string    `gorm:"size:20;uniqueIndex" json:"phone_number,omitempty"`
	WechatOpenID  *string    `gorm:"column:wechat_open_id;size:64;uniqueIndex" json:"wechat_open_id,omitempty"`
	GroupCategory string     `gorm:"size:20" json:"group_category"`
	Status        int        `gorm:"default:1" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// ApplyRegistrationDefaults fills the public id, nickname and login type when absent.
func (u *User) ApplyRegistrationDefaults() {
	if strings.TrimSpace(u.UID) == "" {
		u.UID = uuid.NewString()
	}
	if strings.TrimSpace(u.Nickname) == "" {
		u.Nickname = DefaultNickname
	}
	if u.LoginType == "" || u.LoginType == LoginTypeUnknown {
		switch {
		case u.PhoneNumber != nil:
			u.LoginType = LoginTypePhone
		case u.WechatOpenID != nil:
			u.LoginType = LoginTypeWechat
		default:
			u.LoginType = LoginTypeUnknown
		}
	}
	if u.Status == 0 {
		u.Status = 1
	}
}

// BeforeCreate keeps rows written outside the service layer (seeders, admin tools) well formed.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	u.ApplyRegistrationDefaults()
	return nil
}

// RecomputeMetrics derives BMI and BMR from the stored body measurements.
// A metric whose inputs are incomplete is cleared.
func (u *User) RecomputeMetrics(now time.Time) {
	u.BMI = nil
	u.BMR = nil

	if u.Height == nil || u.Weight == nil || *u.Height <= 0 || *u.Weight <= 0 {
		return
	}
	meters := *u.Height / 100
	bmi := math.Round(*u.Weight/(meters*meters)*10) / 10
	u.BMI = &bmi

	if u.Gender == nil || u.BirthDate == nil {
		return
	}
	age := ageAt(*u.BirthDate, now)
	if age <= 0 {
		return
	}
	// Mifflin-St Jeor
	base := 10*(*u.Weight) + 6.25*(*u.Height) - 5*float64(age)
	switch *u.Gender {
	case GenderMale:
		base += 5
	case GenderFemale:
		base -= 161
	default:
		return
	}
	bmr := int(math.Round(base))
	u.BMR = &bmr
}

func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// PublicProfile returns a copy without the login identifiers, for showing to other users.
func (u *User) PublicProfile() *User {
	c := *u
	c.PhoneNumber = nil
	c.WechatOpenID = nil
	return &c
}
