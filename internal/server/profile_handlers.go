package server

import (
	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

func profileResponse(p *service.Profile) models.ProfileResponse {
	return models.NewProfileResponse(p.User, p.Following)
}

// GetProfile handles GET /api/profiles/:username
// @Summary Get profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} object{profile=models.ProfileResponse}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, keyProfile, err)
	}
	return respond(c, fiber.StatusOK, keyProfile, profileResponse(profile))
}

// FollowUser handles POST /api/profiles/:username/follow
// @Summary Follow user
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} object{profile=models.ProfileResponse}
// @Failure 400 {object} object{profile=models.FieldErrors}
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	userID := currentUserID(c)
	profile, err := s.profileService.Follow(c.UserContext(), userID, c.Params("username"))
	if err != nil {
		return respondError(c, keyProfile, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventUserFollowed, userID, profile.User.ID, map[string]any{
		"followee": profile.User.Username,
	})
	return respond(c, fiber.StatusOK, keyProfile, profileResponse(profile))
}

// UnfollowUser handles DELETE /api/profiles/:username/follow
// @Summary Unfollow user
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} object{profile=models.ProfileResponse}
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	userID := currentUserID(c)
	profile, err := s.profileService.Unfollow(c.UserContext(), userID, c.Params("username"))
	if err != nil {
		return respondError(c, keyProfile, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventUserUnfollowed, userID, profile.User.ID, map[string]any{
		"followee": profile.User.Username,
	})
	return respond(c, fiber.StatusOK, keyProfile, profileResponse(profile))
}
