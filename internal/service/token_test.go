package service

import (
	"context"
	"testing"
	"time"

	"github.com/mundonegocio/auth-service/internal/config"
	"github.com/mundonegocio/auth-service/internal/models"
	"github.com/mundonegocio/auth-service/mocks"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-test-secret-0123456789abcdef",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "auth-service",
		Audience:        []string{"dashboard-api"},
	}
}

func newServiceWithMocks(t *testing.T) (*Service, *mocks.MockUserStorage, *mocks.MockLedger, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockSt := mocks.NewMockUserStorage(ctrl)
	mockLd := mocks.NewMockLedger(ctrl)
	svc := New(mockSt, mockLd, testAuthCfg())
	return svc, mockSt, mockLd, ctrl
}

func testUser(t *testing.T) *models.User {
	t.Helper()
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Email:        "vendedor@mundonegocio.com",
		Name:         "Vendedor Demo",
		Role:         models.RoleUser,
		Country:      "peru",
		Active:       true,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestIssueToken_AndParse_OK(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := testUser(t)
	now := time.Now().UTC()

	at, err := svc.issueToken(context.Background(), user, purposeAccess, now)
	require.NoError(t, err)

	claims, err := svc.parseToken(at)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.Name, claims.Name)
	require.Equal(t, string(user.Role), claims.Role)
	require.Equal(t, user.Country, claims.Country)
	require.Equal(t, purposeAccess, claims.Purpose)
	// jti только у refresh-токенов.
	require.Empty(t, claims.ID)

	require.WithinDuration(t, now.Add(svc.cfg.AccessTokenTTL), claims.ExpiresAt.Time, time.Second)
}

func TestIssueToken_Refresh_HasUniqueJTI(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := testUser(t)
	now := time.Now().UTC()

	rt1, err := svc.issueToken(context.Background(), user, purposeRefresh, now)
	require.NoError(t, err)
	rt2, err := svc.issueToken(context.Background(), user, purposeRefresh, now)
	require.NoError(t, err)

	c1, err := svc.parseToken(rt1)
	require.NoError(t, err)
	c2, err := svc.parseToken(rt2)
	require.NoError(t, err)

	require.Equal(t, purposeRefresh, c1.Purpose)
	require.NotEmpty(t, c1.ID)
	require.NotEmpty(t, c2.ID)
	require.NotEqual(t, c1.ID, c2.ID)

	require.WithinDuration(t, now.Add(svc.cfg.RefreshTokenTTL), c1.ExpiresAt.Time, time.Second)
}

func TestParseToken_WrongAlg_WrongIssuer_WrongAudience(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	secret := []byte(testAuthCfg().JWTSecret)
	uid := uuid.New()
	now := time.Now().UTC()

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"uid":  uid.String(),
			"role": "user",
			"typ":  purposeAccess,
			"iss":  testAuthCfg().Issuer,
			"sub":  uid.String(),
			"aud":  testAuthCfg().Audience,
			"exp":  now.Add(15 * time.Minute).Unix(),
			"iat":  now.Unix(),
		}
	}

	t.Run("wrong alg", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, base())
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, err = svc.parseToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := base()
		claims["iss"] = "another-issuer"
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, err = svc.parseToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := base()
		claims["aud"] = []string{"unexpected-aud"}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, err = svc.parseToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestParseToken_Expired_EvenByOneSecond(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := testUser(t)

	// exp = now - 1s: leeway не применяется.
	cfg := testAuthCfg()
	cfg.AccessTokenTTL = -1 * time.Second
	svc.cfg = cfg

	at, err := svc.issueToken(context.Background(), user, purposeAccess, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.parseToken(at)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseToken_TamperedPayload(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := testUser(t)

	at, err := svc.issueToken(context.Background(), user, purposeAccess, time.Now().UTC())
	require.NoError(t, err)

	// Порча одного байта в середине токена.
	b := []byte(at)
	mid := len(b) / 2
	if b[mid] == 'A' {
		b[mid] = 'B'
	} else {
		b[mid] = 'A'
	}

	_, err = svc.parseToken(string(b))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_BadClaims(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	secret := []byte(testAuthCfg().JWTSecret)
	uid := uuid.New()
	now := time.Now().UTC()

	sign := func(t *testing.T, mutate func(jwt.MapClaims)) string {
		t.Helper()
		claims := jwt.MapClaims{
			"uid":  uid.String(),
			"role": "user",
			"typ":  purposeAccess,
			"iss":  testAuthCfg().Issuer,
			"sub":  uid.String(),
			"aud":  testAuthCfg().Audience,
			"exp":  now.Add(15 * time.Minute).Unix(),
			"iat":  now.Unix(),
		}
		mutate(claims)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)
		return signed
	}

	t.Run("unknown purpose", func(t *testing.T) {
		signed := sign(t, func(c jwt.MapClaims) { c["typ"] = "session" })
		_, err := svc.parseToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("not a uuid", func(t *testing.T) {
		signed := sign(t, func(c jwt.MapClaims) { c["uid"] = "not-a-uuid" })
		_, err := svc.parseToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		signed := sign(t, func(c jwt.MapClaims) { c["role"] = "superuser" })
		_, err := svc.parseToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh without jti", func(t *testing.T) {
		signed := sign(t, func(c jwt.MapClaims) { c["typ"] = purposeRefresh })
		_, err := svc.parseToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing iat", func(t *testing.T) {
		signed := sign(t, func(c jwt.MapClaims) { delete(c, "iat") })
		_, err := svc.parseToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestParseToken_DoesNotCheckPurpose(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := testUser(t)

	// Кодек принимает оба вида; назначение сверяет вызывающий.
	rt, err := svc.issueToken(context.Background(), user, purposeRefresh, time.Now().UTC())
	require.NoError(t, err)

	claims, err := svc.parseToken(rt)
	require.NoError(t, err)
	require.Equal(t, purposeRefresh, claims.Purpose)
}

func TestPrincipalFromClaims(t *testing.T) {
	svc, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := testUser(t)

	at, err := svc.issueToken(context.Background(), user, purposeAccess, time.Now().UTC())
	require.NoError(t, err)

	claims, err := svc.parseToken(at)
	require.NoError(t, err)

	p := principalFromClaims(claims)
	require.Equal(t, user.ID, p.ID)
	require.Equal(t, user.Email, p.Email)
	require.Equal(t, user.Name, p.Name)
	require.Equal(t, user.Role, p.Role)
	require.Equal(t, user.Country, p.Country)
}
