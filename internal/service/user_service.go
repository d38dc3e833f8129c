// Package service holds the business rules behind each API operation.
package service

import (
	"context"
	"errors"
	"strings"

	"conduit/internal/auth"
	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
	"conduit/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	blankField       = "This field may not be blank."
	badCredentials   = "Unable to log in with provided credentials."
	emailTakenMsg    = "user with this email already exists."
	usernameTakenMsg = "user with this username already exists."
)

// TokenIssuer is the subset of auth.Manager the user service relies on.
type TokenIssuer interface {
	Issue(userID uint, typ string) (string, error)
	IssuePair(userID uint) (auth.Pair, error)
	Parse(ctx context.Context, token, expectedType string) (*auth.Claims, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

type UserService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	hashCost int
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// UpdateUserInput carries a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	UserID   uint
	Email    *string
	Username *string
	Password *string
	Bio      *string
	Image    *string
}

func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

// Register creates an account and returns it with a fresh access token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *models.User, token string, err error) {
	defer func() { observability.AuthEvents.WithLabelValues("register", observability.Outcome(err)).Inc() }()

	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	verr := models.NewValidationError("Invalid user")
	if e := validation.ValidateEmail(in.Email); e != nil {
		verr.Add("email", e.Error())
	}
	if e := validation.ValidateUsername(in.Username); e != nil {
		verr.Add("username", e.Error())
	}
	if e := validation.ValidatePassword(in.Password); e != nil {
		verr.Add("password", e.Error())
	}
	if verr.HasFields() {
		return nil, "", verr
	}

	if err := s.checkAvailable(ctx, 0, in.Email, in.Username); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	user = &models.User{
		Email:    in.Email,
		Username: in.Username,
		Password: string(hash),
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err = s.tokens.Issue(user.ID, auth.TypeAccess)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return user, token, nil
}

// Login checks credentials against an active account and issues a token pair.
func (s *UserService) Login(ctx context.Context, in LoginInput) (user *models.User, pair auth.Pair, err error) {
	defer func() { observability.AuthEvents.WithLabelValues("login", observability.Outcome(err)).Inc() }()

	verr := models.NewValidationError("Invalid credentials")
	if strings.TrimSpace(in.Email) == "" {
		verr.Add("email", blankField)
	}
	if in.Password == "" {
		verr.Add("password", blankField)
	}
	if verr.HasFields() {
		return nil, auth.Pair{}, verr
	}

	user, err = s.userRepo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, auth.Pair{}, err
	}
	if user == nil || !user.IsActive {
		return nil, auth.Pair{}, models.NewFieldError("credentials", badCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, auth.Pair{}, models.NewFieldError("credentials", badCredentials)
	}

	pair, err = s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, auth.Pair{}, models.NewInternalError(err)
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (user *models.User, token string, err error) {
	defer func() { observability.AuthEvents.WithLabelValues("refresh", observability.Outcome(err)).Inc() }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil, "", models.NewFieldError("refresh", blankField)
	}
	claims, err := s.tokens.Parse(ctx, refreshToken, auth.TypeRefresh)
	if err != nil {
		return nil, "", models.NewAuthenticationError("Invalid or expired refresh token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, "", models.NewAuthenticationError("Invalid or expired refresh token")
	}

	user, err = s.Current(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", models.NewAuthenticationError("User account is disabled")
	}

	token, err = s.tokens.Issue(user.ID, auth.TypeAccess)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return user, token, nil
}

// Logout revokes the presented access token.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) (err error) {
	defer func() { observability.AuthEvents.WithLabelValues("logout", observability.Outcome(err)).Inc() }()

	if claims == nil {
		return models.NewAuthenticationError("Missing token")
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Current loads the authenticated user. A token for a vanished account is
// treated as invalid rather than as a missing resource.
func (s *UserService) Current(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, models.NewAuthenticationError("User not found")
		}
		return nil, err
	}
	return user, nil
}

// Update applies a partial update to the current user.
func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	user, err := s.Current(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	verr := models.NewValidationError("Invalid user")
	var columns []string
	var email, username string

	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
		if e := validation.ValidateEmail(email); e != nil {
			verr.Add("email", e.Error())
		} else if email != user.Email {
			user.Email = email
			columns = append(columns, "email")
		} else {
			email = ""
		}
	}
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if e := validation.ValidateUsername(username); e != nil {
			verr.Add("username", e.Error())
		} else if username != user.Username {
			user.Username = username
			columns = append(columns, "username")
		} else {
			username = ""
		}
	}
	if in.Password != nil {
		if e := validation.ValidatePassword(*in.Password); e != nil {
			verr.Add("password", e.Error())
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
			if err != nil {
				return nil, models.NewInternalError(err)
			}
			user.Password = string(hash)
			columns = append(columns, "password")
		}
	}
	if in.Bio != nil {
		if e := validation.ValidateBio(*in.Bio); e != nil {
			verr.Add("bio", e.Error())
		} else {
			user.Bio = *in.Bio
			columns = append(columns, "bio")
		}
	}
	if in.Image != nil {
		image := strings.TrimSpace(*in.Image)
		if e := validation.ValidateImage(image); e != nil {
			verr.Add("image", e.Error())
		} else {
			user.Image = image
			columns = append(columns, "image")
		}
	}
	if verr.HasFields() {
		return nil, verr
	}

	if err := s.checkAvailable(ctx, user.ID, email, username); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user, columns...); err != nil {
		return nil, err
	}
	return user, nil
}

// checkAvailable reports email/username collisions with accounts other than
// selfID. Empty values are skipped. The unique indexes remain the backstop.
func (s *UserService) checkAvailable(ctx context.Context, selfID uint, email, username string) error {
	verr := models.NewValidationError("User already exists")
	if email != "" {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			verr.Add("email", emailTakenMsg)
		}
	}
	if username != "" {
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			verr.Add("username", usernameTakenMsg)
		}
	}
	if verr.HasFields() {
		return verr
	}
	return nil
}
