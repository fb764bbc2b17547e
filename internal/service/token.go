package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mundonegocio/auth-service/internal/models"
	"github.com/mundonegocio/auth-service/internal/pkg/log"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Назначение токена: у каждого выпущенного токена оно ровно одно.
const (
	purposeAccess  = "access"
	purposeRefresh = "refresh"
)

// tokenClaims — подписываемый набор утверждений.
//
// Поле Purpose ("typ") различает access и refresh; jti (RegisteredClaims.ID)
// присваивается только refresh-токенам — это единственный вид токена с
// адресуемым отзывом.
type tokenClaims struct {
	UserID  string `json:"uid"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role"`
	Country string `json:"country,omitempty"`
	Purpose string `json:"typ"`
	jwt.RegisteredClaims
}

// issueToken подписывает набор утверждений для пользователя.
// TTL выбирается по назначению; refresh получает свежий случайный jti.
func (s *Service) issueToken(ctx context.Context, user *models.User, purpose string, now time.Time) (string, error) {
	const op = "service.token.issueToken"

	ttl := s.cfg.AccessTokenTTL
	jti := ""
	if purpose == purposeRefresh {
		ttl = s.cfg.RefreshTokenTTL
		jti = uuid.NewString()
	}

	claims := tokenClaims{
		UserID:  user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		Role:    string(user.Role),
		Country: user.Country,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		log.From(ctx).Error("token_sign_failed",
			slog.String("op", op),
			slog.String("purpose", purpose),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// parseToken декодирует и проверяет токен: подпись, срок, issuer/audience
// и целостность утверждений. Проверка срока — обязанность кодека, чтобы
// каждый вызывающий получал её автоматически; leeway не применяется.
//
// Назначение токена здесь НЕ проверяется: вызывающий сверяет Purpose сам,
// чтобы несоответствие вида давало ErrWrongTokenType, а не ErrInvalidToken.
func (s *Service) parseToken(tokenStr string) (*tokenClaims, error) {
	const op = "service.token.parseToken"

	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	switch claims.Purpose {
	case purposeAccess, purposeRefresh:
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !models.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Purpose == purposeRefresh && claims.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// principalFromClaims восстанавливает публичное представление пользователя
// из проверенного набора утверждений.
func principalFromClaims(claims *tokenClaims) *models.Principal {
	// UserID и Role уже проверены в parseToken.
	uid, _ := uuid.Parse(claims.UserID)

	return &models.Principal{
		ID:      uid,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    models.Role(claims.Role),
		Country: claims.Country,
	}
}
