package storage

import (
	"context"
	"errors"

	"github.com/mundonegocio/auth-service/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — пользователь не найден.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage — хранилище учётных данных (Credential Store).
//
// Сервис авторизации зависит только от этого контракта; конкретная
// реализация (postgres/memory) выбирается на этапе композиции в cmd,
// а не через проверку типов во время выполнения.
type UserStorage interface {
	// SaveUser создаёт новую учётную запись (используется при
	// провижининге аккаунтов и в тестах).
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (в нижнем регистре).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdatePassword заменяет хэш пароля пользователя.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Storage — контракт хранилища вместе с освобождением ресурсов.
type Storage interface {
	UserStorage
	Close()
}
