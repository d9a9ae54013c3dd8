package auth

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/models"
	"github.com/bazaarmate/backend/internal/password"
	"github.com/bazaarmate/backend/internal/ratelimit"
	"github.com/bazaarmate/backend/internal/revocation"
	"github.com/bazaarmate/backend/internal/tokens"
)

const strongPassword = "Str0ng&Secure!Pw"

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	codec := tokens.NewCodec(
		[]byte("access-secret"), []byte("refresh-secret"),
		15*time.Minute, 24*time.Hour, 0,
	)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), map[ratelimit.Scope]ratelimit.Rule{
		ratelimit.ScopeLogin:         {Ceiling: 5, Window: time.Minute},
		ratelimit.ScopeRegister:      {Ceiling: 3, Window: time.Minute},
		ratelimit.ScopePasswordReset: {Ceiling: 3, Window: time.Hour},
	})

	return &Service{
		Repo:     NewRepo(db),
		Codec:    codec,
		Revoked:  revocation.NewStore(db),
		Limiter:  limiter,
		Password: password.DefaultConfig(),
	}
}

func registerUser(t *testing.T, svc *Service, username string) *models.User {
	t.Helper()

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: strongPassword,
	}, "10.0.0.1")
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user := registerUser(t, svc, "alice")
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, strongPassword, user.PasswordHash)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Username: "alice",
			Email:    "other@example.com",
			Password: strongPassword,
		}, "10.0.0.2")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("weak password reports every violated rule", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "abc",
		}, "10.0.0.3")

		var weak *WeakPasswordError
		require.ErrorAs(t, err, &weak)
		assert.Contains(t, weak.Rules, password.CodeTooShort)
		assert.Contains(t, weak.Rules, password.CodeNoUpper)
		assert.Contains(t, weak.Rules, password.CodeCommonPattern)
	})
}

func TestRegister_RoleElevation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("self-registration cannot pick seller", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Username: "mallory",
			Email:    "mallory@example.com",
			Password: strongPassword,
			Role:     models.RoleSeller,
		}, "10.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("buyer actor cannot elevate", func(t *testing.T) {
		buyer := registerUser(t, svc, "buyer")
		_, err := svc.Register(ctx, RegisterInput{
			Username: "wannabe",
			Email:    "wannabe@example.com",
			Password: strongPassword,
			Role:     models.RoleAdmin,
			Actor:    buyer,
		}, "10.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin actor may create a seller", func(t *testing.T) {
		admin := &models.User{ID: 99, Role: models.RoleAdmin}
		user, err := svc.Register(ctx, RegisterInput{
			Username: "shopkeeper",
			Email:    "shopkeeper@example.com",
			Password: strongPassword,
			Role:     models.RoleSeller,
			Actor:    admin,
		}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleSeller, user.Role)

		// A seller account is born with its store profile.
		var profile models.SellerProfile
		require.NoError(t, svc.Repo.DB.Where("user_id = ?", user.ID).First(&profile).Error)
		assert.Equal(t, "shopkeeper", profile.StoreName)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Username: "odd",
			Email:    "odd@example.com",
			Password: strongPassword,
			Role:     "superuser",
		}, "10.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRegister_Throttled(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Register(ctx, RegisterInput{Username: "x", Email: "x@example.com", Password: "weak"}, "10.1.1.1")
	}
	_, err := svc.Register(ctx, RegisterInput{
		Username: "late",
		Email:    "late@example.com",
		Password: strongPassword,
	}, "10.1.1.1")

	var throttled *ratelimit.ThrottledError
	assert.ErrorAs(t, err, &throttled)

	// Admin-created accounts bypass the unauthenticated throttle.
	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	_, err = svc.Register(ctx, RegisterInput{
		Username: "staff",
		Email:    "staff@example.com",
		Password: strongPassword,
		Actor:    admin,
	}, "10.1.1.1")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "carol")

	t.Run("by username", func(t *testing.T) {
		pair, err := svc.Login(ctx, "carol", strongPassword, "10.0.0.1", "tests")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.True(t, pair.RefreshExp.After(pair.AccessExp))
	})

	t.Run("by email", func(t *testing.T) {
		_, err := svc.Login(ctx, "carol@example.com", strongPassword, "10.0.0.1", "tests")
		assert.NoError(t, err)
	})

	t.Run("wrong password and unknown user look identical", func(t *testing.T) {
		_, errWrong := svc.Login(ctx, "carol", "WrongPass!234567", "10.0.0.2", "tests")
		_, errUnknown := svc.Login(ctx, "nobody", strongPassword, "10.0.0.2", "tests")
		assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("deactivated account", func(t *testing.T) {
		user := registerUser(t, svc, "gone")
		require.NoError(t, svc.Repo.Deactivate(ctx, user.ID))

		_, err := svc.Login(ctx, "gone", strongPassword, "10.0.0.3", "tests")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLogin_UnknownIdentifierCostsAHash(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "nora")

	start := time.Now()
	_, err := svc.Login(ctx, "nora", "wrong-guess", "10.9.0.1", "tests")
	known := time.Since(start)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	start = time.Now()
	_, err = svc.Login(ctx, "ghost", "wrong-guess", "10.9.0.2", "tests")
	unknown := time.Since(start)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The unknown-identifier path burns a bcrypt comparison, so it cannot
	// be orders of magnitude faster than a wrong password.
	assert.Greater(t, unknown, known/3)
}

func TestLogin_Throttled(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "dave")

	for i := 0; i < 5; i++ {
		svc.Login(ctx, "dave", "bad-guess", "192.168.1.1", "tests")
	}

	// The sixth attempt is rejected even with the right password.
	_, err := svc.Login(ctx, "dave", strongPassword, "192.168.1.1", "tests")
	var throttled *ratelimit.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Greater(t, throttled.RetryAfter, time.Duration(0))

	// A different client key is unaffected.
	_, err = svc.Login(ctx, "dave", strongPassword, "192.168.1.2", "tests")
	assert.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "erin")

	pair, err := svc.Login(ctx, "erin", strongPassword, "10.0.0.1", "tests")
	require.NoError(t, err)

	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.True(t, exp.After(time.Now()))

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := svc.Refresh(ctx, "not.a.token")
		assert.ErrorIs(t, err, tokens.ErrMalformed)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, _, err := svc.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, tokens.ErrMalformed)
	})

	t.Run("deactivated user", func(t *testing.T) {
		user := registerUser(t, svc, "frank")
		p, err := svc.Login(ctx, "frank", strongPassword, "10.0.0.1", "tests")
		require.NoError(t, err)

		require.NoError(t, svc.Repo.Deactivate(ctx, user.ID))
		_, _, err = svc.Refresh(ctx, p.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})
}

func TestLogout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := registerUser(t, svc, "grace")

	pair, err := svc.Login(ctx, "grace", strongPassword, "10.0.0.1", "tests")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user, pair.RefreshToken))

	// The blacklisted refresh token no longer refreshes.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Logging out twice with the same token still succeeds.
	assert.NoError(t, svc.Logout(ctx, user, pair.RefreshToken))

	t.Run("another user's refresh token", func(t *testing.T) {
		registerUser(t, svc, "heidi")
		otherPair, err := svc.Login(ctx, "heidi", strongPassword, "10.0.0.1", "tests")
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Logout(ctx, user, otherPair.RefreshToken), ErrForbidden)
		_, _, err = svc.Refresh(ctx, otherPair.RefreshToken)
		assert.NoError(t, err, "foreign logout attempt must not revoke the token")
	})
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := registerUser(t, svc, "ivan")

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, "guess", "New&Str0ngEnough!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("weak replacement", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, strongPassword, "short")
		var weak *WeakPasswordError
		assert.ErrorAs(t, err, &weak)
	})

	t.Run("success", func(t *testing.T) {
		next := "New&Str0ngEnough!"
		require.NoError(t, svc.ChangePassword(ctx, user, strongPassword, next))

		_, err := svc.Login(ctx, "ivan", strongPassword, "10.0.0.1", "tests")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.Login(ctx, "ivan", next, "10.0.0.1", "tests")
		assert.NoError(t, err)
	})
}

func TestForgotPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "judy")

	// Known and unknown addresses are indistinguishable to the caller.
	assert.NoError(t, svc.ForgotPassword(ctx, "judy@example.com", "10.0.0.1"))
	assert.NoError(t, svc.ForgotPassword(ctx, "missing@example.com", "10.0.0.1"))

	svc.ForgotPassword(ctx, "judy@example.com", "10.0.0.1")
	err := svc.ForgotPassword(ctx, "judy@example.com", "10.0.0.1")
	var throttled *ratelimit.ThrottledError
	assert.ErrorAs(t, err, &throttled)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := registerUser(t, svc, "kate")

	pair, err := svc.Login(ctx, "kate", strongPassword, "10.0.0.1", "tests")
	require.NoError(t, err)

	resolved, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "kate", resolved.Username)

	t.Run("garbage token is anonymous", func(t *testing.T) {
		resolved, err := svc.Authenticate(ctx, "garbage")
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		resolved, err := svc.Authenticate(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("revoked access token is anonymous", func(t *testing.T) {
		claims, err := svc.Codec.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, svc.Revoked.Revoke(ctx, claims.ID, user.ID, claims.ExpiresAt.Time))

		resolved, err := svc.Authenticate(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("deactivated user is anonymous", func(t *testing.T) {
		u := registerUser(t, svc, "leo")
		p, err := svc.Login(ctx, "leo", strongPassword, "10.0.0.1", "tests")
		require.NoError(t, err)

		require.NoError(t, svc.Repo.Deactivate(ctx, u.ID))
		resolved, err := svc.Authenticate(ctx, p.AccessToken)
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "mia")

	issued := time.Now()
	svc.Codec.WithClock(func() time.Time { return issued })

	pair, err := svc.Login(ctx, "mia", strongPassword, "10.0.0.1", "tests")
	require.NoError(t, err)

	// Jump past the access TTL.
	svc.Codec.WithClock(func() time.Time { return issued.Add(16 * time.Minute) })

	resolved, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// The refresh token outlives the access token.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}
