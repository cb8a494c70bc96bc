// Package i18n — локализованные сообщения представлений.
// Ключи совпадают с ключами клиентских словарей: "<раздел>.error.<английский текст>".
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Ключи сообщений.
const (
	AllFieldsRequired  = "accounts.error.All fields required"
	PasswordTooShort   = "accounts.error.Password too short"
	PasswordsMismatch  = "accounts.error.Passwords do not match"
	AvatarNotSupported = "accounts.error.Unsupported image"
	RequestFailed      = "forum.error.Request failed"
	AccessDenied       = "forum.error.Access denied"
	NotFound           = "forum.error.Not found"
	ProfileUpdated     = "accounts.success.Profile updated"
	PasswordChanged    = "accounts.success.Password changed"
)

var dictionary = map[language.Tag]map[string]string{
	language.English: {
		AllFieldsRequired:  "All fields required",
		PasswordTooShort:   "Password must be at least 8 characters",
		PasswordsMismatch:  "Passwords do not match",
		AvatarNotSupported: "Unsupported image",
		RequestFailed:      "Request failed, try again later",
		AccessDenied:       "Access denied",
		NotFound:           "Not found",
		ProfileUpdated:     "Profile updated",
		PasswordChanged:    "Password changed",
	},
	language.Russian: {
		AllFieldsRequired:  "Заполните все поля",
		PasswordTooShort:   "Пароль должен быть не короче 8 символов",
		PasswordsMismatch:  "Пароли не совпадают",
		AvatarNotSupported: "Неподдерживаемое изображение",
		RequestFailed:      "Запрос не выполнен, попробуйте позже",
		AccessDenied:       "Доступ запрещён",
		NotFound:           "Не найдено",
		ProfileUpdated:     "Профиль обновлён",
		PasswordChanged:    "Пароль изменён",
	},
}

// Translator переводит ключ в строку выбранного языка.
type Translator interface {
	T(key string) string
}

// Catalog — переводчик поверх x/text.
// Неизвестный язык сводится к английскому, неизвестный ключ возвращается как есть.
type Catalog struct {
	printer *message.Printer
	tag     language.Tag
}

var (
	builder = newBuilder()
	matcher = language.NewMatcher([]language.Tag{language.English, language.Russian})
	tags    = []language.Tag{language.English, language.Russian}
)

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	for tag, msgs := range dictionary {
		for key, msg := range msgs {
			// Ключи и тексты статичны, ошибка возможна только при пустом теге.
			_ = b.SetString(tag, key, msg)
		}
	}

	return b
}

// New создаёт переводчик для языка вида "ru", "ru-RU", "en-US"; пустая строка — английский.
func New(lang string) *Catalog {
	tag := language.English

	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			_, idx, _ := matcher.Match(parsed)
			tag = tags[idx]
		}
	}

	return &Catalog{
		printer: message.NewPrinter(tag, message.Catalog(builder)),
		tag:     tag,
	}
}

// Language — выбранный язык.
func (c *Catalog) Language() string { return c.tag.String() }

// T реализует Translator.
func (c *Catalog) T(key string) string {
	return c.printer.Sprintf(key)
}
