package server

import (
	"encoding/json"
	"errors"

	"conduit/internal/auth"
	"conduit/internal/middleware"
	"conduit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Envelope keys wrapping request and response bodies.
const (
	keyUser     = "user"
	keyProfile  = "profile"
	keyArticle  = "article"
	keyArticles = "articles"
	keyComment  = "comment"
	keyComments = "comments"
	keyErrors   = "errors"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 20
	maxPaginationLimit     = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 (the path names no resource) and returns errResponseWritten.
func parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError(resource, c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseEnvelope decodes {"<key>": {...}} into dest. A missing key leaves dest
// untouched. Malformed bodies get a 400 under the same key and errResponseWritten.
func parseEnvelope(c *fiber.Ctx, key string, dest any) error {
	var body map[string]json.RawMessage
	if err := c.BodyParser(&body); err != nil {
		_ = respondError(c, key, models.NewValidationError("Malformed request body."))
		return errResponseWritten
	}
	raw, ok := body[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		_ = respondError(c, key, models.NewValidationError("Malformed request body."))
		return errResponseWritten
	}
	return nil
}

// currentUserID returns the authenticated user, or 0 on public routes.
func currentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

func currentClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals("claims").(*auth.Claims)
	return claims
}

func currentToken(c *fiber.Ctx) string {
	token, _ := c.Locals("token").(string)
	return token
}

// respond writes payload wrapped in its envelope key.
func respond(c *fiber.Ctx, status int, key string, payload any) error {
	return c.Status(status).JSON(fiber.Map{key: payload})
}

// statusForError maps an AppError code to its HTTP status.
func statusForError(code string) int {
	switch code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case models.CodeUnauthorized:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders err. Validation errors become
// {"<key>": {"<field>": [messages]}}; everything else uses ErrorResponse.
func respondError(c *fiber.Ctx, key string, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	if appErr.Code == models.CodeValidation {
		fields := appErr.Fields
		if len(fields) == 0 {
			fields = models.FieldErrors{"non_field_errors": {appErr.Message}}
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{key: fields})
	}

	status := statusForError(appErr.Code)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, appErr)
}
