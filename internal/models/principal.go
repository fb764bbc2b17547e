package models

import "github.com/google/uuid"

// Principal — аутентифицированная личность, восстановленная из access-токена
// (или из учётной записи при включённой сверке с хранилищем).
//
// Содержит только публичные поля пользователя — без хэша пароля.
type Principal struct {
	ID      uuid.UUID
	Email   string
	Name    string
	Role    Role
	Country string
}

// PrincipalFromUser строит публичное представление из учётной записи.
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Role:    u.Role,
		Country: u.Country,
	}
}
