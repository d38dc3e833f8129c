package server

import (
	"conduit/internal/models"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentUser handles GET /api/user
// @Summary Current user
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=models.UserResponse}
// @Failure 401 {object} models.ErrorResponse
// @Router /user [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.userService.Current(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, keyUser, err)
	}
	return respond(c, fiber.StatusOK, keyUser, models.NewUserResponse(user, currentToken(c)))
}

// UpdateCurrentUser handles PUT /api/user
// @Summary Update current user
// @Description Partial update; omitted fields are left unchanged
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{user=object{email=string,username=string,password=string,bio=string,image=string}} true "Changes"
// @Success 200 {object} object{user=models.UserResponse}
// @Failure 400 {object} object{user=models.FieldErrors}
// @Failure 401 {object} models.ErrorResponse
// @Router /user [put]
func (s *Server) UpdateCurrentUser(c *fiber.Ctx) error {
	var req struct {
		Email    *string `json:"email"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	}
	if err := parseEnvelope(c, keyUser, &req); err != nil {
		return nil
	}

	user, err := s.userService.Update(c.UserContext(), service.UpdateUserInput{
		UserID:   currentUserID(c),
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Bio:      req.Bio,
		Image:    req.Image,
	})
	if err != nil {
		return respondError(c, keyUser, err)
	}
	return respond(c, fiber.StatusOK, keyUser, models.NewUserResponse(user, currentToken(c)))
}
