package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/auth"
	"github.com/01moynul/storefront/internal/models"
	"github.com/01moynul/storefront/internal/oauth"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// usernameAttempts bounds the retries when a generated OAuth username collides.
const usernameAttempts = 5

var (
	// ErrInvalidCredentials is returned for an unknown email, an OAuth-only account
	// and a wrong password alike.
	ErrInvalidCredentials = apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	// ErrUserExists is returned when the email or username is taken.
	ErrUserExists = apperr.New(apperr.KindDuplicateIdentity, "User already exists with this email or username")
	// ErrEmailNotVerified blocks linking a Google account to an existing user by an unverified email.
	ErrEmailNotVerified = apperr.New(apperr.KindForbidden, "Google account email is not verified")
	// ErrIncompleteProfile is returned when the identity provider omits the subject or email.
	ErrIncompleteProfile = apperr.New(apperr.KindUpstreamFailure, "identity provider returned an incomplete profile")
)

// AuthOptions controls the signup role policy and OAuth account linking.
type AuthOptions struct {
	// SignupRoles lists the roles a signup request may ask for.
	SignupRoles []string
	// StrictSignupRoles rejects a role outside SignupRoles instead of coercing it to "user".
	StrictSignupRoles bool
	// RequireVerifiedEmail only links a Google account to an existing user when Google
	// reports the email as verified.
	RequireVerifiedEmail bool
}

// AuthService handles signup, login, token resolution and the OAuth callback.
type AuthService struct {
	users  models.UserRepository
	tokens *auth.TokenService
	opts   AuthOptions
	now    func() time.Time
	suffix func() int
}

// NewAuthService creates a new authentication service.
func NewAuthService(users models.UserRepository, tokens *auth.TokenService, opts AuthOptions) *AuthService {
	if len(opts.SignupRoles) == 0 {
		opts.SignupRoles = []string{models.RoleUser, models.RoleAdmin}
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		opts:   opts,
		now:    time.Now,
		suffix: func() int { return rand.IntN(1000) },
	}
}

// Signup registers a local account and returns it with a fresh token.
func (s *AuthService) Signup(ctx context.Context, in models.SignupInput) (*models.AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	// 1. --- Validate ---
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	role, err := s.signupRole(in.Role)
	if err != nil {
		return nil, err
	}

	// 2. --- Check for an existing account ---
	if taken, err := s.identityTaken(ctx, in.Email, in.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUserExists
	}

	// 3. --- Hash the password ---
	var password models.Password
	if err := password.Set(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 4. --- Save ---
	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: &password.Hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent signup.
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user signed up", "user_id", user.ID, "role", user.Role)
	return s.result(user)
}

// Login checks local credentials and returns the user with a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// OAuth-only accounts have no password to check.
	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	pw := models.Password{Hash: *user.PasswordHash}
	ok, err := pw.Matches(password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.result(user)
}

// ResolveByToken verifies token and loads its user fresh from the store,
// so role changes made after issuance are visible.
func (s *AuthService) ResolveByToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UserByID(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// OAuthCallback finds, links or creates the user for a verified external profile
// and returns it with a fresh token.
func (s *AuthService) OAuthCallback(ctx context.Context, p *oauth.ExternalProfile) (*models.AuthResult, error) {
	if p == nil || p.ExternalID == "" || p.Email == "" {
		return nil, ErrIncompleteProfile
	}
	email := normalizeEmail(p.Email)

	// 1. --- Already linked ---
	user, err := s.users.UserByGoogleID(ctx, p.ExternalID)
	if err == nil {
		return s.result(user)
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("find user by google id: %w", err)
	}

	// 2. --- Existing local account with the same email ---
	user, err = s.users.UserByEmail(ctx, email)
	if err == nil {
		return s.linkGoogle(ctx, user, p)
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	// 3. --- New account ---
	user, err = s.createOAuthUser(ctx, p, email)
	if err != nil {
		return nil, err
	}
	return s.result(user)
}

// SetRole changes a user's role. Tokens already issued to the user pick the
// new role up on their next request.
func (s *AuthService) SetRole(ctx context.Context, actor *models.User, userID, role string) (*models.Profile, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("Admin access required")
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validation("role", "role must be user or admin")
	}

	if err := s.users.UpdateUserRole(ctx, userID, role); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	slog.Info("user role changed", "user_id", userID, "role", role, "by", actor.ID)
	return models.NewProfile(user), nil
}

func (s *AuthService) linkGoogle(ctx context.Context, user *models.User, p *oauth.ExternalProfile) (*models.AuthResult, error) {
	if s.opts.RequireVerifiedEmail && !p.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	var picture *string
	if p.PhotoURL != "" {
		picture = &p.PhotoURL
	}
	if err := s.users.LinkGoogleAccount(ctx, user.ID, p.ExternalID, picture); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("link google account: %w", err)
	}

	gid := p.ExternalID
	user.GoogleID = &gid
	if picture != nil {
		user.Picture = picture
	}
	slog.Info("google account linked", "user_id", user.ID)
	return s.result(user)
}

func (s *AuthService) createOAuthUser(ctx context.Context, p *oauth.ExternalProfile, email string) (*models.User, error) {
	base := usernameBase(p.DisplayName, email)

	var picture *string
	if p.PhotoURL != "" {
		picture = &p.PhotoURL
	}
	gid := p.ExternalID

	for attempt := 0; attempt < usernameAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%d", base, s.suffix())

		if _, err := s.users.UserByUsername(ctx, candidate); err == nil {
			continue
		} else if !errors.Is(err, models.ErrUserNotFound) {
			return nil, fmt.Errorf("find user by username: %w", err)
		}

		now := s.now().UTC()
		user := &models.User{
			ID:        uuid.NewString(),
			Username:  candidate,
			Email:     email,
			Role:      models.RoleUser,
			GoogleID:  &gid,
			Picture:   picture,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := s.users.CreateUser(ctx, user)
		if err == nil {
			slog.Info("user created from google profile", "user_id", user.ID)
			return user, nil
		}
		if !errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Username taken between the check and the insert; try another suffix.
	}

	return nil, apperr.New(apperr.KindDuplicateIdentity, "could not allocate a unique username")
}

// signupRole applies the role policy: empty means user, allowed roles pass,
// anything else is rejected or coerced depending on StrictSignupRoles.
// Roles match exactly; "ADMIN" is not "admin".
func (s *AuthService) signupRole(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return models.RoleUser, nil
	}
	if slices.Contains(s.opts.SignupRoles, requested) {
		return requested, nil
	}
	if s.opts.StrictSignupRoles {
		return "", apperr.Validation("role", fmt.Sprintf("role %q is not allowed", requested))
	}
	return models.RoleUser, nil
}

func (s *AuthService) identityTaken(ctx context.Context, email, username string) (bool, error) {
	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return false, fmt.Errorf("find user by email: %w", err)
	}

	if _, err := s.users.UserByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return false, fmt.Errorf("find user by username: %w", err)
	}
	return false, nil
}

func (s *AuthService) result(u *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.AuthResult{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Token:    token,
	}, nil
}

// usernameBase turns "Jane Doe" into "jane.doe". Falls back to the email's local part.
func usernameBase(displayName, email string) string {
	base := slug.Make(displayName)
	if base == "" {
		local, _, _ := strings.Cut(email, "@")
		base = slug.Make(local)
	}
	if base == "" {
		base = "user"
	}
	return strings.ReplaceAll(base, "-", ".")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
