package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/bazaarmate/backend/internal/events"
	"github.com/bazaarmate/backend/internal/models"
	"github.com/bazaarmate/backend/internal/password"
	"github.com/bazaarmate/backend/internal/ratelimit"
	"github.com/bazaarmate/backend/internal/revocation"
	"github.com/bazaarmate/backend/internal/tokens"
	"github.com/bazaarmate/backend/pkg/logging"
)

// dummyHash is a bcrypt digest at the same cost as stored password hashes.
// Compared and discarded when no account matches the login identifier.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service is the authentication gate: it turns credentials into token pairs
// and raw tokens into identities, consulting the limiter, codec and
// revocation store in that order.
type Service struct {
	Repo     *Repo
	Codec    *tokens.Codec
	Revoked  *revocation.Store
	Limiter  *ratelimit.Limiter
	Password password.Config
	Producer *events.Producer
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	// Actor is the authenticated caller, nil for self-registration. Only an
	// admin actor may create seller or admin accounts.
	Actor *models.User
}

func (s *Service) Register(ctx context.Context, in RegisterInput, clientKey string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if in.Actor == nil {
		if err := s.Limiter.Check(ctx, ratelimit.ScopeRegister, clientKey); err != nil {
			return nil, err
		}
	}

	role := models.RoleBuyer
	if in.Role != "" && in.Role != models.RoleBuyer {
		if !models.ValidRole(in.Role) {
			return nil, ErrForbidden
		}
		if in.Actor == nil || in.Actor.Role != models.RoleAdmin {
			l.Warn("register_rejected", "reason", "role elevation without admin actor", "requested_role", in.Role)
			return nil, ErrForbidden
		}
		role = in.Role
	}

	if rules := s.Password.Validate(in.Password); len(rules) > 0 {
		return nil, &WeakPasswordError{Rules: rules}
	}

	hash, err := password.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Seller accounts start with an empty store profile named after the
	// account, editable through the sellers endpoint.
	if user.Role == models.RoleSeller {
		profile := &models.SellerProfile{UserID: user.ID, StoreName: user.Username}
		if err := s.Repo.CreateSellerProfile(ctx, profile); err != nil {
			return nil, err
		}
	}

	l.Info("user_registered", "user_id", user.ID, "role", user.Role)
	s.publish(ctx, user.ID, map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

func (s *Service) Login(ctx context.Context, identifier, pw, clientKey, userAgent string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "remote_ip", clientKey)

	if err := s.Limiter.Check(ctx, ratelimit.ScopeLogin, clientKey); err != nil {
		return nil, err
	}

	user, err := s.Repo.ByIdentifier(ctx, identifier)
	if err != nil {
		if err == ErrNotFound {
			// Burn a hash comparison so an unknown identifier costs the
			// same as a wrong password.
			password.CheckPassword(dummyHash, pw)
			l.Warn("failed_login", "user_agent", userAgent)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.CheckPassword(user.PasswordHash, pw) || !user.Active {
		l.Warn("failed_login", "user_agent", userAgent)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		l.Error("login_error", "error", err)
		return nil, err
	}

	l.Info("successful_login", "user_id", user.ID, "user_agent", userAgent)
	s.publish(ctx, user.ID, map[string]any{
		"type":     "user_logged_in",
		"user_id":  user.ID,
		"username": user.Username,
	})
	return pair, nil
}

func (s *Service) issuePair(user *models.User) (*TokenPair, error) {
	access, accessClaims, err := s.Codec.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := s.Codec.IssueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessClaims.ExpiresAt.Time,
		RefreshExp:   refreshClaims.ExpiresAt.Time,
	}, nil
}

// Refresh exchanges a valid, unrevoked refresh token for a new access token.
// The refresh token itself is not rotated: a stolen one stays usable until
// natural expiry or an explicit logout, which is the documented tradeoff.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (string, time.Time, error) {
	claims, err := s.Codec.VerifyRefresh(rawRefresh)
	if err != nil {
		return "", time.Time{}, err
	}

	revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	if revoked {
		return "", time.Time{}, ErrTokenRevoked
	}

	user, err := s.Repo.ByID(ctx, claims.UserID())
	if err != nil {
		return "", time.Time{}, err
	}
	if !user.Active {
		return "", time.Time{}, ErrTokenRevoked
	}

	access, accessClaims, err := s.Codec.IssueAccess(user)
	if err != nil {
		return "", time.Time{}, err
	}
	return access, accessClaims.ExpiresAt.Time, nil
}

// Logout blacklists the presented refresh token's jti. Revoking twice is a
// no-op, so repeated logouts all report success.
func (s *Service) Logout(ctx context.Context, caller *models.User, rawRefresh string) error {
	claims, err := s.Codec.VerifyRefresh(rawRefresh)
	if err != nil {
		return err
	}
	if claims.UserID() != caller.ID {
		return ErrForbidden
	}

	if err := s.Revoked.Revoke(ctx, claims.ID, caller.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("successful_logout", "svc", "auth.logout", "user_id", caller.ID)
	s.publish(ctx, caller.ID, map[string]any{
		"type":    "user_logged_out",
		"user_id": caller.ID,
	})
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, caller *models.User, current, next string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", caller.ID)

	if !password.CheckPassword(caller.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if rules := s.Password.Validate(next); len(rules) > 0 {
		return &WeakPasswordError{Rules: rules}
	}

	hash, err := password.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePasswordHash(ctx, caller.ID, hash); err != nil {
		return err
	}

	l.Info("password_changed")
	return nil
}

// ForgotPassword only throttles and records the request; mail delivery is an
// external concern. The response never reveals whether the email exists.
func (s *Service) ForgotPassword(ctx context.Context, email, clientKey string) error {
	if err := s.Limiter.Check(ctx, ratelimit.ScopePasswordReset, clientKey); err != nil {
		return err
	}

	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")
	user, err := s.Repo.ByIdentifier(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			l.Info("password_reset_requested", "known_account", false)
			return nil
		}
		return err
	}

	l.Info("password_reset_requested", "known_account", true, "user_id", user.ID)
	s.publish(ctx, user.ID, map[string]any{
		"type":    "password_reset_requested",
		"user_id": user.ID,
	})
	return nil
}

// Authenticate resolves a raw access token to an identity. A (nil, nil)
// result means "no identity": malformed, expired or revoked tokens and
// missing users all look the same to protected endpoints. Store failures
// return an error so infrastructure trouble surfaces as 5xx, never as a
// false authorization decision.
func (s *Service) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.Codec.VerifyAccess(raw)
	if err != nil {
		return nil, nil
	}

	revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}

	user, err := s.Repo.ByID(ctx, claims.UserID())
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !user.Active {
		return nil, nil
	}
	return user, nil
}

func (s *Service) publish(ctx context.Context, userID uint, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.Publish(pubCtx, "user_events", strconv.FormatUint(uint64(userID), 10), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
