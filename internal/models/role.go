package models

// Role — уровень доступа пользователя.
//
// Набор плоский: обычный пользователь и администратор. Сравнение ролей —
// точное совпадение либо admin-override (см. service.Require); иерархия
// ролей сознательно не вводится, пока в ней нет необходимости.
type Role string

const (
	// RoleUser — обычный пользователь (просмотр данных продаж).
	RoleUser Role = "user"
	// RoleAdmin — администратор; проходит любую проверку роли.
	RoleAdmin Role = "admin"
)

// Valid сообщает, входит ли роль в известный набор.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}

	return false
}
