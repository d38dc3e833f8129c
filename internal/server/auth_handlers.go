package server

import (
	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/users
// @Summary Register
// @Description Create an account and return it with an access token
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{user=object{username=string,email=string,password=string}} true "Registration"
// @Success 201 {object} object{user=models.UserResponse}
// @Failure 400 {object} object{user=models.FieldErrors}
// @Router /users [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseEnvelope(c, keyUser, &req); err != nil {
		return nil
	}

	user, token, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, keyUser, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventUserRegistered, user.ID, 0, map[string]any{
		"username": user.Username,
	})

	return respond(c, fiber.StatusCreated, keyUser, models.NewUserResponse(user, token))
}

// Login handles POST /api/users/login
// @Summary Login
// @Description Authenticate with email and password
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{user=object{email=string,password=string}} true "Credentials"
// @Success 200 {object} object{user=models.UserResponse}
// @Failure 400 {object} object{errors=models.FieldErrors}
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseEnvelope(c, keyUser, &req); err != nil {
		return nil
	}

	user, pair, err := s.userService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, keyErrors, err)
	}

	// The refresh token travels in a header so the body keeps the standard shape.
	c.Set("X-Refresh-Token", pair.Refresh)
	return respond(c, fiber.StatusOK, keyUser, models.NewUserResponse(user, pair.Access))
}

// Refresh handles POST /api/users/refresh
// @Summary Refresh access token
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} object{user=models.UserResponse}
// @Failure 400 {object} object{errors=models.FieldErrors}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, keyErrors, models.NewValidationError("Malformed request body."))
	}

	user, token, err := s.userService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, keyErrors, err)
	}
	return respond(c, fiber.StatusOK, keyUser, models.NewUserResponse(user, token))
}

// Logout handles POST /api/users/logout
// @Summary Logout
// @Description Revoke the presented access token
// @Tags users
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.userService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return respondError(c, keyErrors, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
