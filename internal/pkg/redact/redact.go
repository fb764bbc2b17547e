// redact — маскирование чувствительных значений в логах.
//
// Логи аутентификации не должны позволять перечислять аккаунты или
// восстанавливать секреты: email маскируется до первых символов
// локальной части, токены и пароли не логируются вовсе.
package redact

import "strings"

// Email маскирует локальную часть адреса:
// "vendedor@mundonegocio.com" -> "ve***@mundonegocio.com".
// Некорректный адрес маскируется целиком.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if r := []rune(local); len(r) > 2 {
		local = string(r[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token — плейсхолдер вместо значения токена.
func Token() string { return "[REDACTED_TOKEN]" }

// Password — плейсхолдер вместо значения пароля.
func Password() string { return "[REDACTED_PASSWORD]" }
