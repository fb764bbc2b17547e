// redis реализует реестр отозванных refresh-токенов поверх Redis.
//
// Схема хранения:
//   - <prefix><jti>        -> "1" с TTL до собственного exp токена;
//   - <prefix>u:<user_id>  -> unix-время отметки массового отзыва,
//     с TTL равным максимальному сроку жизни refresh-токена.
//
// TTL-ключи делают ручную подчистку ненужной: DeleteExpired — no-op.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mundonegocio/auth-service/internal/ledger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Ledger struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:revoked:". retention должен
// совпадать с RefreshTokenTTL сервиса.
func New(redisURL, prefix string, retention time.Duration) (*Ledger, error) {
	const op = "ledger.redis.New"

	if prefix == "" {
		prefix = "auth:revoked:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Ledger{rdb: rdb, prefix: prefix, retention: retention}, nil
}

func (l *Ledger) jtiKey(jti string) string    { return l.prefix + jti }
func (l *Ledger) userKey(id uuid.UUID) string { return l.prefix + "u:" + id.String() }

// Revoke записывает jti с TTL до собственного срока токена.
func (l *Ledger) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	const op = "ledger.redis.Revoke"

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Токен уже истёк — записывать нечего.
		return nil
	}

	if err := l.rdb.Set(ctx, l.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RevokeAllForUser ставит пользовательскую отметку массового отзыва.
func (l *Ledger) RevokeAllForUser(ctx context.Context, userID uuid.UUID, cutoff time.Time) error {
	const op = "ledger.redis.RevokeAllForUser"

	val := strconv.FormatInt(cutoff.Unix(), 10)
	if err := l.rdb.Set(ctx, l.userKey(userID), val, l.retention).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsRevoked проверяет jti и пользовательскую отметку.
func (l *Ledger) IsRevoked(ctx context.Context, jti string, userID uuid.UUID, issuedAt time.Time) (bool, error) {
	const op = "ledger.redis.IsRevoked"

	n, err := l.rdb.Exists(ctx, l.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return true, nil
	}

	raw, err := l.rdb.Get(ctx, l.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	cutoffUnix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return !issuedAt.After(time.Unix(cutoffUnix, 0).UTC()), nil
}

// DeleteExpired — no-op: записи истекают по TTL ключей.
func (l *Ledger) DeleteExpired(_ context.Context, _ time.Time) error { return nil }

// Close закрывает клиент Redis.
func (l *Ledger) Close() error { return l.rdb.Close() }

// Проверка на соответствие интерфейсу Ledger.
var _ ledger.Ledger = (*Ledger)(nil)
