package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marqueeapp/marquee-server/internal/auth"
	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/id"
	"github.com/marqueeapp/marquee-server/internal/identity"
	"github.com/marqueeapp/marquee-server/internal/normalize"
	"github.com/marqueeapp/marquee-server/internal/store"
	"github.com/marqueeapp/marquee-server/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// AuthService handles signup, login, and token verification.
// Session management is delegated to SessionService.
//
// Signup spans two databases: the credential record lives in SQLite and
// the user document in the store. The store side is atomic; when it
// fails after the credential was created, the credential is deleted as
// compensation so the email can be reused.
type AuthService struct {
	store          *store.Store
	identity       identity.Provider
	tokenService   *auth.TokenService
	sessionService *SessionService
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store *store.Store,
	identityProvider identity.Provider,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		identity:       identityProvider,
		tokenService:   tokenService,
		sessionService: sessionService,
		logger:         logger,
	}
}

// SignupRequest contains new account data.
type SignupRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required,min=8,max=1024"`
	ConfirmPassword string          `json:"confirmPassword" validate:"required,eqfield=Password"`
	Nickname        string          `json:"nickname" validate:"required,max=40"`
	DeviceInfo      auth.DeviceInfo `json:"device_info"`
	IPAddress       string          `json:"-"` // Extracted from request by handler
}

// LoginRequest contains user credentials and device information.
type LoginRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	Password   string          `json:"password" validate:"required"`
	DeviceInfo auth.DeviceInfo `json:"device_info"`
	IPAddress  string          `json:"-"` // Extracted from request by handler
}

// RefreshRequest contains the refresh token and updated device info.
type RefreshRequest struct {
	RefreshToken string          `json:"refresh_token" validate:"required"`
	DeviceInfo   auth.DeviceInfo `json:"device_info"` // Optional updates
	IPAddress    string          `json:"-"`           // Extracted from request by handler
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Signup creates a credential, claims the nickname, and opens a session.
//
// The nickname claim, user document, and email index are written in one
// store transaction, so two racing signups for the same nickname cannot
// both succeed. The credential write happens first and is compensated
// (deleted) if the store transaction fails for any reason.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if !req.DeviceInfo.IsValid() {
		return nil, domainerrors.Validation("device_info is required (device_type and platform)")
	}

	displayName := strings.TrimSpace(req.Nickname)
	nicknameKey := normalize.NicknameKey(req.Nickname)
	if len([]rune(nicknameKey)) < 2 {
		return nil, domainerrors.Validation("nickname must be at least 2 characters")
	}

	// Cheap pre-check so obviously taken nicknames fail before a
	// credential is created. The transaction below is the authority.
	taken, err := s.store.NicknameTaken(ctx, nicknameKey)
	if err != nil {
		return nil, fmt.Errorf("check nickname: %w", err)
	}
	if taken {
		return nil, domainerrors.AlreadyExists("nickname already taken")
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	// Step 1: credential in SQLite. Not covered by the store transaction.
	if _, err := s.identity.CreateCredential(ctx, userID, req.Email, req.Password); err != nil {
		if errors.Is(err, identity.ErrEmailInUse) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}

	// Step 2: nickname claim + user document + email index, atomically.
	now := time.Now()
	user := &domain.User{
		Syncable: domain.Syncable{
			ID: userID,
		},
		Email:       req.Email,
		DisplayName: displayName,
		NicknameKey: nicknameKey,
		LastLoginAt: now,
	}
	user.InitTimestamps()

	if err := s.store.CreateUserWithNickname(ctx, user); err != nil {
		// Compensate: remove the orphaned credential so the email can
		// be reused. Failures here are logged loudly and swallowed;
		// the caller gets the original error.
		if delErr := s.identity.DeleteCredential(ctx, userID); delErr != nil && s.logger != nil {
			s.logger.Error("signup compensation failed, credential orphaned",
				"user_id", userID,
				"error", delErr,
			)
		}

		if errors.Is(err, store.ErrNicknameTaken) {
			return nil, domainerrors.AlreadyExists("nickname already taken")
		}
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Step 3: mirror the display name onto the credential. Non-fatal,
	// the store document is the source of truth for display names.
	if err := s.identity.UpdateDisplayName(ctx, userID, displayName); err != nil && s.logger != nil {
		s.logger.Warn("failed to set credential display name",
			"user_id", userID,
			"error", err,
		)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.DeviceInfo, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User signed up",
			"user_id", userID,
			"nickname_key", nicknameKey,
		)
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// Login authenticates a user and creates a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if !req.DeviceInfo.IsValid() {
		return nil, domainerrors.Validation("device_info is required (device_type and platform)")
	}

	// Verify against the credential database
	cred, err := s.identity.Verify(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	// Load the user document
	user, err := s.store.GetUser(ctx, cred.ID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Credential without a user document (failed compensation
			// or deleted account). Treat as invalid login.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// Update last login
	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login
		if s.logger != nil {
			s.logger.Warn("Failed to update last login time",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.DeviceInfo, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User logged in",
			"user_id", user.ID,
			"device", req.DeviceInfo.Platform,
		)
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// RefreshTokens generates new tokens using a refresh token.
// The old refresh token is invalidated (token rotation).
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.DeviceInfo, req.IPAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// Logout revokes a session, invalidating its refresh token.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessionService.DeleteSession(ctx, sessionID)
}

// LogoutAll revokes every session for a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessionService.DeleteAllUserSessions(ctx, userID)
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, errors.New("user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}
