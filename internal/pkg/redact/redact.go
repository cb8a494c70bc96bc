// Package redact маскирует персональные данные перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен: "fo***@example.com".
// Короткая локальная часть скрывается целиком, строка без единственного '@' — "***".
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	runes := []rune(local)
	if len(runes) > 2 {
		return string(runes[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Token — подпись JWT не логируется никогда; видны только последние 4 символа.
func Token(s string) string {
	if len(s) <= 8 {
		return "[REDACTED_TOKEN]"
	}

	return "[REDACTED_TOKEN]..." + s[len(s)-4:]
}
