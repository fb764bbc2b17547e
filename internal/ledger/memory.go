package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger — реестр отозванных токенов в памяти процесса.
//
// Используется в тестах и в demo-композиции без Redis. Потокобезопасен.
type MemoryLedger struct {
	mu sync.RWMutex
	// jti -> срок жизни записи (собственный exp токена).
	revoked map[string]time.Time
	// userID -> отметка массового отзыва (все токены с issuedAt <= cutoff
	// недействительны).
	userCutoff map[uuid.UUID]time.Time
	// retention — максимальный срок жизни refresh-токена; определяет,
	// когда пользовательскую отметку можно подчистить.
	retention time.Duration
}

// NewMemoryLedger создаёт пустой реестр. retention должен совпадать с
// RefreshTokenTTL сервиса.
func NewMemoryLedger(retention time.Duration) *MemoryLedger {
	return &MemoryLedger{
		revoked:    make(map[string]time.Time),
		userCutoff: make(map[uuid.UUID]time.Time),
		retention:  retention,
	}
}

// Revoke записывает jti. Повторный отзыв того же jti — no-op.
func (l *MemoryLedger) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.revoked[jti]; !ok || expiresAt.After(cur) {
		l.revoked[jti] = expiresAt
	}

	return nil
}

// RevokeAllForUser ставит пользовательскую отметку массового отзыва.
func (l *MemoryLedger) RevokeAllForUser(_ context.Context, userID uuid.UUID, cutoff time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.userCutoff[userID]; !ok || cutoff.After(cur) {
		l.userCutoff[userID] = cutoff
	}

	return nil
}

// IsRevoked проверяет jti и пользовательскую отметку.
func (l *MemoryLedger) IsRevoked(_ context.Context, jti string, userID uuid.UUID, issuedAt time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.revoked[jti]; ok {
		return true, nil
	}

	if cutoff, ok := l.userCutoff[userID]; ok && !issuedAt.After(cutoff) {
		return true, nil
	}

	return false, nil
}

// DeleteExpired удаляет записи, пережившие собственный срок.
func (l *MemoryLedger) DeleteExpired(_ context.Context, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for jti, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, jti)
		}
	}

	for uid, cutoff := range l.userCutoff {
		// Токенов старше cutoff+retention быть не может.
		if now.After(cutoff.Add(l.retention)) {
			delete(l.userCutoff, uid)
		}
	}

	return nil
}

// Close — no-op для реализации в памяти.
func (l *MemoryLedger) Close() error { return nil }

// Проверка на соответствие интерфейсу Ledger.
var _ Ledger = (*MemoryLedger)(nil)
