package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bazaarmate/backend/internal/models"
)

// Verification failures. ErrExpired means the signature was valid but the
// token is past its expiry; everything else collapses into ErrMalformed so
// callers never learn which check failed.
var (
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Kind     string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() uint  { return parseSubject(c.Subject) }
func (c *RefreshClaims) UserID() uint { return parseSubject(c.Subject) }

func parseSubject(sub string) uint {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// Codec issues and verifies HS256-signed session tokens. It is stateless:
// revocation lookups belong to the caller.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	leeway        time.Duration
	now           func() time.Time
}

func NewCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL, leeway time.Duration) *Codec {
	return &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		leeway:        leeway,
		now:           time.Now,
	}
}

// WithClock overrides the codec clock. Test hook.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccess(u *models.User) (string, *AccessClaims, error) {
	now := c.now()
	claims := &AccessClaims{
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Kind:     KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", nil, err
	}
	return raw, claims, nil
}

func (c *Codec) IssueRefresh(u *models.User) (string, *RefreshClaims, error) {
	now := c.now()
	claims := &RefreshClaims{
		Kind: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			ID:        uuid.NewString(),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", nil, err
	}
	return raw, claims, nil
}

func (c *Codec) VerifyAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := c.verify(raw, &claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func (c *Codec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.verify(raw, &claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Kind != KindRefresh {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func (c *Codec) verify(raw string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(c.leeway))
	}

	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrMalformed
	}
	if !tkn.Valid {
		return ErrMalformed
	}
	return nil
}
