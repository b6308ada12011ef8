// redact маскирует персональные данные перед записью в логи.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен: "fo***@example.com".
// Адреса с локальной частью короче трёх рун и невалидные строки маскируются целиком.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}
