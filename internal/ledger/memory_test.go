package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_RevokeAndCheck(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger(time.Hour)
	ctx := context.Background()
	uid := uuid.New()
	now := time.Now().UTC()

	revoked, err := l.IsRevoked(ctx, "jti-1", uid, now)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "jti-1", now.Add(time.Hour)))

	revoked, err = l.IsRevoked(ctx, "jti-1", uid, now)
	require.NoError(t, err)
	require.True(t, revoked)

	// Соседний jti не затронут.
	revoked, err = l.IsRevoked(ctx, "jti-2", uid, now)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryLedger_RevokeIdempotent(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger(time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, l.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, l.Revoke(ctx, "jti-1", now.Add(time.Hour)))

	revoked, err := l.IsRevoked(ctx, "jti-1", uuid.New(), now)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestMemoryLedger_RevokeAllForUser_CutoffSemantics(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger(time.Hour)
	ctx := context.Background()
	uid := uuid.New()
	other := uuid.New()
	cutoff := time.Now().UTC()

	require.NoError(t, l.RevokeAllForUser(ctx, uid, cutoff))

	// Выпущен до отметки -> отозван.
	revoked, err := l.IsRevoked(ctx, "jti-old", uid, cutoff.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, revoked)

	// Выпущен ровно в отметку -> отозван (issuedAt <= cutoff).
	revoked, err = l.IsRevoked(ctx, "jti-edge", uid, cutoff)
	require.NoError(t, err)
	require.True(t, revoked)

	// Выпущен после отметки -> действует.
	revoked, err = l.IsRevoked(ctx, "jti-new", uid, cutoff.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, revoked)

	// Другой пользователь не затронут.
	revoked, err = l.IsRevoked(ctx, "jti-other", other, cutoff.Add(-time.Minute))
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryLedger_CutoffNeverMovesBack(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger(time.Hour)
	ctx := context.Background()
	uid := uuid.New()
	cutoff := time.Now().UTC()

	require.NoError(t, l.RevokeAllForUser(ctx, uid, cutoff))
	// Более ранняя отметка не откатывает действующую.
	require.NoError(t, l.RevokeAllForUser(ctx, uid, cutoff.Add(-time.Hour)))

	revoked, err := l.IsRevoked(ctx, "jti", uid, cutoff.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestMemoryLedger_DeleteExpired(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger(time.Hour)
	ctx := context.Background()
	uid := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, l.Revoke(ctx, "jti-live", now.Add(time.Hour)))
	require.NoError(t, l.Revoke(ctx, "jti-dead", now.Add(-time.Minute)))
	require.NoError(t, l.RevokeAllForUser(ctx, uid, now.Add(-2*time.Hour)))

	require.NoError(t, l.DeleteExpired(ctx, now))

	// Живая запись осталась.
	revoked, err := l.IsRevoked(ctx, "jti-live", uuid.New(), now)
	require.NoError(t, err)
	require.True(t, revoked)

	// Просроченная удалена.
	revoked, err = l.IsRevoked(ctx, "jti-dead", uuid.New(), now)
	require.NoError(t, err)
	require.False(t, revoked)

	// Отметка старше cutoff+retention удалена.
	revoked, err = l.IsRevoked(ctx, "any", uid, now.Add(-3*time.Hour))
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryLedger_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger(time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				jti := fmt.Sprintf("jti-%d-%d", n, j)
				_ = l.Revoke(ctx, jti, now.Add(time.Hour))
				_, _ = l.IsRevoked(ctx, jti, uuid.Nil, now)
				_ = l.RevokeAllForUser(ctx, uuid.New(), now)
				_ = l.DeleteExpired(ctx, now)
			}
		}(i)
	}
	wg.Wait()
}
