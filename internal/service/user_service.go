package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"
	"nutriscan/internal/repository"
)

const (
	maxNicknameLen = 64
	birthDateFmt   = "2006-01-02"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,20}$`)

// UserService handles registration, login and profile edits.
// Phone logins are checked against codes issued by its CodeVerifier.
type UserService struct {
	userRepo repository.UserRepository
	codes    CodeVerifier
	now      func() time.Time
}

// NewUserService returns a UserService backed by userRepo and codes.
func NewUserService(userRepo repository.UserRepository, codes CodeVerifier) *UserService {
	return &UserService{userRepo: userRepo, codes: codes, now: time.Now}
}

// Credential is one of the supported ways to prove who is logging in.
type Credential interface {
	LoginType() models.LoginType
	credential()
}

// PhoneCredential is a phone number plus the one-time code sent to it.
type PhoneCredential struct {
	Phone string
	Code  string
}

func (PhoneCredential) LoginType() models.LoginType { return models.LoginTypePhone }
func (PhoneCredential) credential()                 {}

// FederatedCredential is a WeChat open id the client already authenticated upstream.
type FederatedCredential struct {
	OpenID string
}

func (FederatedCredential) LoginType() models.LoginType { return models.LoginTypeWechat }
func (FederatedCredential) credential()                 {}

// ParseCredential builds the credential matching a login type tag.
func ParseCredential(loginType, phone, code, openID string) (Credential, error) {
	switch models.ParseLoginType(loginType) {
	case models.LoginTypePhone:
		return PhoneCredential{Phone: strings.TrimSpace(phone), Code: strings.TrimSpace(code)}, nil
	case models.LoginTypeWechat:
		return FederatedCredential{OpenID: strings.TrimSpace(openID)}, nil
	default:
		return nil, models.NewInvalidCredentialError("Invalid login type")
	}
}

// RegisterInput is a sign-up request. At least one of PhoneNumber and WechatOpenID is required.
type RegisterInput struct {
	UID           string
	Nickname      string
	AvatarURL     string
	LoginType     string
	PhoneNumber   string
	WechatOpenID  string
	Gender        *int
	BirthDate     string
	Height        *float64
	Weight        *float64
	TargetWeight  *float64
	Waistline     *float64
	GroupCategory string
}

// UpdateProfileInput is a merge patch: unset fields are left alone and null clears a field.
type UpdateProfileInput struct {
	ActorID       string
	UserID        string
	Nickname      models.Optional[string]
	AvatarURL     models.Optional[string]
	Gender        models.Optional[int]
	BirthDate     models.Optional[string]
	Height        models.Optional[float64]
	Weight        models.Optional[float64]
	TargetWeight  models.Optional[float64]
	Waistline     models.Optional[float64]
	GroupCategory models.Optional[string]
}

// Register creates an account, rejecting phone numbers and open ids already in use.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	phone := strings.TrimSpace(in.PhoneNumber)
	openID := strings.TrimSpace(in.WechatOpenID)
	if phone == "" && openID == "" {
		return nil, models.NewValidationError("Phone number or WeChat id is required")
	}

	user := &models.User{
		UID:           strings.TrimSpace(in.UID),
		Nickname:      strings.TrimSpace(in.Nickname),
		AvatarURL:     strings.TrimSpace(in.AvatarURL),
		GroupCategory: strings.TrimSpace(in.GroupCategory),
	}
	if t := strings.TrimSpace(in.LoginType); t != "" {
		user.LoginType = models.ParseLoginType(t)
	}
	if utf8.RuneCountInString(user.Nickname) > maxNicknameLen {
		return nil, models.NewValidationError("Nickname too long (max 64 characters)")
	}

	if phone != "" {
		if !phonePattern.MatchString(phone) {
			return nil, models.NewValidationError("Invalid phone number")
		}
		if err := s.ensureUnused(ctx, s.userRepo.GetByPhone, phone, "Phone number already registered"); err != nil {
			return nil, err
		}
		user.PhoneNumber = &phone
	}
	if openID != "" {
		if err := s.ensureUnused(ctx, s.userRepo.GetByWechatOpenID, openID, "WeChat account already registered"); err != nil {
			return nil, err
		}
		user.WechatOpenID = &openID
	}

	if in.Gender != nil {
		if err := validGender(*in.Gender); err != nil {
			return nil, err
		}
		g := *in.Gender
		user.Gender = &g
	}
	if in.BirthDate != "" {
		birth, err := s.parseBirthDate(in.BirthDate)
		if err != nil {
			return nil, err
		}
		user.BirthDate = &birth
	}
	var err error
	if user.Height, err = validMeasurement("Height", in.Height, 30, 260); err != nil {
		return nil, err
	}
	if user.Weight, err = validMeasurement("Weight", in.Weight, 2, 500); err != nil {
		return nil, err
	}
	if user.TargetWeight, err = validMeasurement("Target weight", in.TargetWeight, 2, 500); err != nil {
		return nil, err
	}
	if user.Waistline, err = validMeasurement("Waistline", in.Waistline, 20, 300); err != nil {
		return nil, err
	}

	user.ApplyRegistrationDefaults()
	user.RecomputeMetrics(s.now())

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureUnused(ctx context.Context, lookup func(context.Context, string) (*models.User, error), value, msg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return models.NewConflictError(msg)
	case models.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// IssueLoginCode asks the verifier to send a fresh one-time code to phone.
func (s *UserService) IssueLoginCode(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return models.NewValidationError("Invalid phone number")
	}
	return s.codes.Issue(ctx, phone)
}

// Login resolves the account behind cred and stamps its last login time.
func (s *UserService) Login(ctx context.Context, cred Credential) (*models.User, error) {
	span, ctx := observability.StartServiceSpan(ctx, "UserService", "Login")
	defer span.End()

	user, err := s.resolve(ctx, cred)
	loginType := string(models.LoginTypeUnknown)
	if cred != nil {
		loginType = string(cred.LoginType())
	}
	observability.LoginAttempts.WithLabelValues(loginType, loginOutcome(err)).Inc()
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	now := s.now()
	if err := s.userRepo.TouchLogin(ctx, user.UID, now); err != nil {
		span.SetError(err)
		return nil, err
	}
	user.LastLoginAt = &now
	return user, nil
}

func (s *UserService) resolve(ctx context.Context, cred Credential) (*models.User, error) {
	switch c := cred.(type) {
	case PhoneCredential:
		if c.Phone == "" || c.Code == "" {
			return nil, models.NewInvalidCredentialError("Phone number and code are required")
		}
		ok, err := s.codes.Verify(ctx, c.Phone, c.Code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.NewInvalidCredentialError("Invalid verification code")
		}
		return s.userRepo.GetByPhone(ctx, c.Phone)
	case FederatedCredential:
		if c.OpenID == "" {
			return nil, models.NewInvalidCredentialError("WeChat id is required")
		}
		return s.userRepo.GetByWechatOpenID(ctx, c.OpenID)
	default:
		return nil, models.NewInvalidCredentialError("Invalid login type")
	}
}

func loginOutcome(err error) string {
	switch models.ErrorCode(err) {
	case "":
		if err == nil {
			return "success"
		}
		return "error"
	case models.CodeInvalidCredential:
		return "invalid_credential"
	case models.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// GetUser looks a user up by public id.
func (s *UserService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.userRepo.GetByUID(ctx, uid)
}

// UpdateProfile applies a merge patch to the caller's own profile.
// Only the columns the patch touches are written; BMI and BMR follow their inputs.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if in.ActorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only edit your own profile")
	}
	user, err := s.userRepo.GetByUID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	bodyChanged := false

	if in.Nickname.Set {
		nickname := strings.TrimSpace(in.Nickname.Value)
		if in.Nickname.Null || nickname == "" {
			return nil, models.NewValidationError("Nickname cannot be empty")
		}
		if utf8.RuneCountInString(nickname) > maxNicknameLen {
			return nil, models.NewValidationError("Nickname too long (max 64 characters)")
		}
		user.Nickname = nickname
		fields["nickname"] = nickname
	}
	if in.AvatarURL.Set {
		user.AvatarURL = strings.TrimSpace(in.AvatarURL.Value)
		fields["avatar_url"] = user.AvatarURL
	}
	if in.GroupCategory.Set {
		user.GroupCategory = strings.TrimSpace(in.GroupCategory.Value)
		fields["group_category"] = user.GroupCategory
	}
	if in.Gender.Set {
		if in.Gender.Present() {
			if err := validGender(in.Gender.Value); err != nil {
				return nil, err
			}
		}
		user.Gender = in.Gender.Ptr()
		fields["gender"] = user.Gender
		bodyChanged = true
	}
	if in.BirthDate.Set {
		user.BirthDate = nil
		if in.BirthDate.Present() {
			birth, err := s.parseBirthDate(in.BirthDate.Value)
			if err != nil {
				return nil, err
			}
			user.BirthDate = &birth
		}
		fields["birth_date"] = user.BirthDate
		bodyChanged = true
	}
	if in.Height.Set {
		if user.Height, err = validMeasurement("Height", in.Height.Ptr(), 30, 260); err != nil {
			return nil, err
		}
		fields["height"] = user.Height
		bodyChanged = true
	}
	if in.Weight.Set {
		if user.Weight, err = validMeasurement("Weight", in.Weight.Ptr(), 2, 500); err != nil {
			return nil, err
		}
		fields["weight"] = user.Weight
		bodyChanged = true
	}
	if in.TargetWeight.Set {
		if user.TargetWeight, err = validMeasurement("Target weight", in.TargetWeight.Ptr(), 2, 500); err != nil {
			return nil, err
		}
		fields["target_weight"] = user.TargetWeight
	}
	if in.Waistline.Set {
		if user.Waistline, err = validMeasurement("Waistline", in.Waistline.Ptr(), 20, 300); err != nil {
			return nil, err
		}
		fields["waistline"] = user.Waistline
	}

	if bodyChanged {
		user.RecomputeMetrics(s.now())
		fields["bmi"] = user.BMI
		fields["bmr"] = user.BMR
	}

	if len(fields) == 0 {
		return user, nil
	}
	if err := s.userRepo.UpdateFields(ctx, user.UID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByUID(ctx, user.UID)
}

func (s *UserService) parseBirthDate(raw string) (time.Time, error) {
	birth, err := time.Parse(birthDateFmt, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, models.NewValidationError("Birth date must be formatted as YYYY-MM-DD")
	}
	if birth.After(s.now()) {
		return time.Time{}, models.NewValidationError("Birth date cannot be in the future")
	}
	return birth, nil
}

func validGender(g int) error {
	if g < models.GenderUnknown || g > models.GenderFemale {
		return models.NewValidationError("Gender must be 0, 1 or 2")
	}
	return nil
}

// validMeasurement copies v after a range check; nil stays nil.
func validMeasurement(name string, v *float64, min, max float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if *v < min || *v > max {
		return nil, models.NewValidationError(name + " is out of range")
	}
	out := *v
	return &out, nil
}
