// memory — хранилище учётных записей в памяти процесса.
//
// Используется в тестах и в demo-композиции без базы данных; выбирается
// на этапе композиции в cmd наравне с postgres.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mundonegocio/auth-service/internal/models"
	"github.com/mundonegocio/auth-service/internal/storage"

	"github.com/google/uuid"
)

type Storage struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// SaveUser создаёт новую учётную запись.
func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := s.byID[user.ID]; ok {
		return storage.ErrAlreadyExists
	}

	cp := *user
	s.byID[user.ID] = &cp
	s.byEmail[email] = user.ID

	return nil
}

// UserByEmail находит пользователя по email (регистронезависимо).
func (s *Storage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *s.byID[id]

	return &cp, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *u

	return &cp, nil
}

// UpdatePassword заменяет хэш пароля пользователя.
func (s *Storage) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()

	return nil
}

// Close — no-op для реализации в памяти.
func (s *Storage) Close() {}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
