package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/mundonegocio/auth-service/internal/metrics"
	"github.com/mundonegocio/auth-service/internal/models"
	"github.com/mundonegocio/auth-service/internal/pkg/log"
	"github.com/mundonegocio/auth-service/internal/pkg/redact"
	"github.com/mundonegocio/auth-service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Login аутентифицирует пользователя по email и паролю и выпускает пару
// access/refresh токенов.
//
// Ошибки:
//   - ErrInvalidCredentials — неизвестный email ИЛИ неверный пароль
//     (одно и то же значение — защита от перечисления аккаунтов);
//   - ErrAccountInactive — пароль верен, но учётная запись отключена;
//   - ErrUnavailable — хранилище не ответило в срок.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" || password == "" {
		s.metrics.ObserveLogin(metrics.ResultInvalidCredentials)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.store.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// В лог и в ответ — то же, что и при неверном пароле.
			lg.Warn("login_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			s.metrics.ObserveLogin(metrics.ResultInvalidCredentials)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		s.metrics.ObserveLogin(metrics.ResultUnavailable)
		return nil, s.infraErr(ctx, op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("login_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		s.metrics.ObserveLogin(metrics.ResultInvalidCredentials)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.Active {
		lg.Warn("login_inactive_account",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		s.metrics.ObserveLogin(metrics.ResultAccountInactive)
		return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		s.metrics.ObserveLogin(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_success",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)
	s.metrics.ObserveLogin(metrics.ResultSuccess)

	return pair, nil
}

// Refresh выпускает новый access-токен по действующему refresh-токену.
//
// Access-токен собирается из ТЕКУЩЕГО состояния учётной записи, а не из
// утверждений refresh-токена: роль и статус могли измениться с момента
// исходного входа. Refresh-токен переиспользуется как есть (без
// ротации), но остаётся отзывной через реестр.
//
// Ошибки: ErrInvalidToken/ErrTokenExpired (кодек), ErrWrongTokenType,
// ErrTokenRevoked, ErrAccountInactive (нет пользователя или отключён),
// ErrUnavailable.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	claims, err := s.parseToken(refreshToken)
	if err != nil {
		s.metrics.ObserveRefresh(codecResult(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Purpose != purposeRefresh {
		lg.Warn("refresh_wrong_token_type", slog.String("op", op))
		s.metrics.ObserveRefresh(metrics.ResultWrongTokenType)
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	uid, _ := uuid.Parse(claims.UserID)

	revoked, err := s.ledger.IsRevoked(ctx, claims.ID, uid, claims.IssuedAt.Time)
	if err != nil {
		s.metrics.ObserveRefresh(metrics.ResultUnavailable)
		return nil, s.infraErr(ctx, op, err)
	}
	if revoked {
		lg.Warn("refresh_revoked",
			slog.String("op", op),
			slog.String("user_id", uid.String()),
		)
		s.metrics.ObserveRefresh(metrics.ResultTokenRevoked)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	user, err := s.store.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.ObserveRefresh(metrics.ResultAccountInactive)
			return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
		}

		s.metrics.ObserveRefresh(metrics.ResultUnavailable)
		return nil, s.infraErr(ctx, op, err)
	}

	if !user.Active {
		s.metrics.ObserveRefresh(metrics.ResultAccountInactive)
		return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
	}

	now := time.Now().UTC()
	access, err := s.issueToken(ctx, user, purposeAccess, now)
	if err != nil {
		s.metrics.ObserveRefresh(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("token_refreshed", slog.String("user_id", user.ID.String()))
	s.metrics.ObserveRefresh(metrics.ResultSuccess)

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    refreshToken,
		TokenType:       models.TokenTypeBearer,
		ExpiresIn:       int64(s.cfg.AccessTokenTTL.Seconds()),
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, nil
}

// Logout отзывает предъявленный refresh-токен.
//
// Best-effort: нерасшифровываемый или не-refresh токен молча
// игнорируется — повторный logout и logout с мусором не являются
// ошибками. На уже выданные access-токены отзыв не влияет, поэтому их
// срок жизни должен оставаться коротким.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	claims, err := s.parseToken(refreshToken)
	if err != nil || claims.Purpose != purposeRefresh {
		lg.Debug("logout_ignored", slog.String("op", op))
		return nil
	}

	if err := s.ledger.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return s.infraErr(ctx, op, err)
	}

	lg.Info("logout", slog.String("user_id", claims.UserID))
	s.metrics.ObserveRevocation()

	return nil
}

// Authenticate валидирует access-токен и восстанавливает principal.
//
// По умолчанию principal собирается из утверждений токена без обращения
// к хранилищу; при включённом cfg.RecheckPrincipal учётная запись
// перечитывается (исчезнувший или отключённый аккаунт даёт
// ErrAccountInactive) ценой одного чтения на запрос.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Principal, error) {
	const op = "service.auth.Authenticate"

	claims, err := s.parseToken(accessToken)
	if err != nil {
		s.metrics.ObserveValidation(codecResult(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Purpose != purposeAccess {
		s.metrics.ObserveValidation(metrics.ResultWrongTokenType)
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	principal := principalFromClaims(claims)

	if s.cfg.RecheckPrincipal {
		user, err := s.store.UserByID(ctx, principal.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.metrics.ObserveValidation(metrics.ResultAccountInactive)
				return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
			}

			s.metrics.ObserveValidation(metrics.ResultUnavailable)
			return nil, s.infraErr(ctx, op, err)
		}

		if !user.Active {
			s.metrics.ObserveValidation(metrics.ResultAccountInactive)
			return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
		}

		principal = models.PrincipalFromUser(user)
	}

	s.metrics.ObserveValidation(metrics.ResultSuccess)

	return principal, nil
}

// Require проверяет, что у principal достаточно прав.
//
// Правило плоское: роль совпадает с требуемой либо principal — admin.
// Иерархия ролей сознательно не моделируется.
func (s *Service) Require(principal *models.Principal, minimum models.Role) error {
	const op = "service.auth.Require"

	if principal == nil || !minimum.Valid() {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if principal.Role == minimum || principal.Role == models.RoleAdmin {
		return nil
	}

	return fmt.Errorf("%s: %w", op, ErrForbidden)
}

// ChangePassword меняет пароль пользователя и отзывает все его
// refresh-токены: прежние сессии не должны переживать смену пароля.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	const op = "service.auth.ChangePassword"

	lg := log.From(ctx)

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAccountInactive)
		}

		return s.infraErr(ctx, op, err)
	}

	if !checkPassword(user.PasswordHash, current) {
		lg.Warn("password_change_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
		)
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return s.infraErr(ctx, op, err)
	}

	if err := s.ledger.RevokeAllForUser(ctx, userID, time.Now().UTC()); err != nil {
		return s.infraErr(ctx, op, err)
	}

	lg.Info("password_changed", slog.String("user_id", userID.String()))
	s.metrics.ObserveRevocation()

	return nil
}

// issuePair выпускает новую пару access+refresh токенов для пользователя.
func (s *Service) issuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.issuePair"

	now := time.Now().UTC()

	access, err := s.issueToken(ctx, user, purposeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.issueToken(ctx, user, purposeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		TokenType:       models.TokenTypeBearer,
		ExpiresIn:       int64(s.cfg.AccessTokenTTL.Seconds()),
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, nil
}

// infraErr маппит сбои коллабораторов: дедлайн/отмена контекста —
// ErrUnavailable (можно повторить), остальное пропагируется как есть.
func (s *Service) infraErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	log.From(ctx).Error("collaborator_failed",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)

	return fmt.Errorf("%s: %w", op, err)
}

// codecResult переводит ошибку кодека в метку метрики.
func codecResult(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return metrics.ResultTokenExpired
	default:
		return metrics.ResultInvalidToken
	}
}

// hashPassword хэширует пароль с помощью bcrypt (соль внутри формата).
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем. Любой сбой сравнения,
// включая повреждённый хэш, трактуется как несовпадение — наружу
// никогда не уходит исключение из bcrypt.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validatePassword проверяет минимальные требования к новому паролю.
// Политика: длина >= 8, хотя бы одна строчная, заглавная и цифра.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !(hasLower && hasUpper && hasDigit) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
