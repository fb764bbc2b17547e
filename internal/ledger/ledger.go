// ledger реализует реестр отозванных refresh-токенов (Revocation Ledger).
//
// Refresh-токен действителен, только если его jti отсутствует в реестре,
// а время его выпуска позже пользовательской отметки массового отзыва
// (смена пароля). Записи живут не дольше собственного срока токена и
// подчищаются фоновой задачей (cmd) либо TTL-ключами (redis).
//
// Гарантии согласованности намеренно слабые: гонка между logout и
// одновременным refresh того же токена допустима и ограничена временем
// жизни access-токена.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger — контракт реестра отозванных refresh-токенов.
//
// Все методы безопасны для конкурентного вызова из множества обработчиков.
type Ledger interface {
	// Revoke записывает jti отозванного refresh-токена. expiresAt —
	// собственный срок токена: после него запись можно удалять.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// RevokeAllForUser отзывает все refresh-токены пользователя,
	// выпущенные не позже cutoff (смена пароля, компрометация).
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, cutoff time.Time) error
	// IsRevoked проверяет, отозван ли токен: по jti либо по
	// пользовательской отметке (issuedAt <= cutoff).
	IsRevoked(ctx context.Context, jti string, userID uuid.UUID, issuedAt time.Time) (bool, error)
	// DeleteExpired удаляет записи, чей срок прошёл.
	DeleteExpired(ctx context.Context, now time.Time) error
	// Close освобождает ресурсы реализации.
	Close() error
}
