package server

import (
	"nutriscan/internal/models"
	"nutriscan/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	ID            string   `json:"id"`
	Nickname      string   `json:"nickname"`
	AvatarURL     string   `json:"avatar_url"`
	LoginType     string   `json:"login_type"`
	PhoneNumber   string   `json:"phone_number"`
	WechatOpenID  string   `json:"wechat_open_id"`
	Gender        *int     `json:"gender"`
	BirthDate     string   `json:"birth_date"`
	Height        *float64 `json:"height"`
	Weight        *float64 `json:"weight"`
	TargetWeight  *float64 `json:"target_weight"`
	Waistline     *float64 `json:"waistline"`
	GroupCategory string   `json:"group_category"`
}

type loginRequest struct {
	LoginType    string `json:"login_type"`
	PhoneNumber  string `json:"phone_number"`
	Code         string `json:"code"`
	WechatOpenID string `json:"wechat_open_id"`
}

// updateProfileRequest is a merge patch; a field left out of the body keeps its value.
type updateProfileRequest struct {
	Nickname      models.Optional[string]  `json:"nickname" swaggertype:"string"`
	AvatarURL     models.Optional[string]  `json:"avatar_url" swaggertype:"string"`
	Gender        models.Optional[int]     `json:"gender" swaggertype:"integer"`
	BirthDate     models.Optional[string]  `json:"birth_date" swaggertype:"string"`
	Height        models.Optional[float64] `json:"height" swaggertype:"number"`
	Weight        models.Optional[float64] `json:"weight" swaggertype:"number"`
	TargetWeight  models.Optional[float64] `json:"target_weight" swaggertype:"number"`
	Waistline     models.Optional[float64] `json:"waistline" swaggertype:"number"`
	GroupCategory models.Optional[string]  `json:"group_category" swaggertype:"string"`
}

// Register handles POST /api/users/register
// @Summary Register a new user
// @Description Create an account identified by a phone number or a WeChat open id
// @Tags users
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration details"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		UID:           req.ID,
		Nickname:      req.Nickname,
		AvatarURL:     req.AvatarURL,
		LoginType:     req.LoginType,
		PhoneNumber:   req.PhoneNumber,
		WechatOpenID:  req.WechatOpenID,
		Gender:        req.Gender,
		BirthDate:     req.BirthDate,
		Height:        req.Height,
		Weight:        req.Weight,
		TargetWeight:  req.TargetWeight,
		Waistline:     req.Waistline,
		GroupCategory: req.GroupCategory,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// IssueLoginCode handles POST /api/users/login/code
// @Summary Send a one-time login code
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{phone_number=string} true "Phone number"
// @Success 202 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/login/code [post]
func (s *Server) IssueLoginCode(c *fiber.Ctx) error {
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.IssueLoginCode(c.UserContext(), req.PhoneNumber); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// Login handles POST /api/users/login
// @Summary User login
// @Description PHONE logins need the one-time code; WECHAT logins trust the open id verified upstream
// @Tags users
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	cred, err := service.ParseCredential(req.LoginType, req.PhoneNumber, req.Code, req.WechatOpenID)
	if err != nil {
		return respondServiceError(c, err)
	}

	user, err := s.userService.Login(c.UserContext(), cred)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GetUser handles GET /api/users/:id
// @Summary Get a user profile
// @Description Login identifiers are only included when the caller is the profile owner
// @Tags users
// @Produce json
// @Param id path string true "Public user id"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	uid := c.Params("id")
	user, err := s.userService.GetUser(c.UserContext(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	if currentUserID(c) != user.UID {
		user = user.PublicProfile()
	}
	return c.JSON(user)
}

// UpdateUser handles PUT /api/users/:id
// @Summary Update own profile
// @Description Merge patch: omitted fields are kept, null clears a field
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Public user id"
// @Param request body updateProfileRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		ActorID:       currentUserID(c),
		UserID:        c.Params("id"),
		Nickname:      req.Nickname,
		AvatarURL:     req.AvatarURL,
		Gender:        req.Gender,
		BirthDate:     req.BirthDate,
		Height:        req.Height,
		Weight:        req.Weight,
		TargetWeight:  req.TargetWeight,
		Waistline:     req.Waistline,
		GroupCategory: req.GroupCategory,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
