package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя дашборда.
//
// Принадлежит хранилищу учётных данных (storage); сервис авторизации
// только читает её. PasswordHash никогда не логируется и не попадает
// в токены или ответы наружу.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         Role
	Country      string
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
