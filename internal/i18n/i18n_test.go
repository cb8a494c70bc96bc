package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalog_T(t *testing.T) {
	tests := []struct {
		lang string
		want string
		tag  string
	}{
		{lang: "", want: "All fields required", tag: "en"},
		{lang: "en-US", want: "All fields required", tag: "en"},
		{lang: "ru", want: "Заполните все поля", tag: "ru"},
		{lang: "ru-RU", want: "Заполните все поля", tag: "ru"},
		{lang: "de", want: "All fields required", tag: "en"},
		{lang: "!!", want: "All fields required", tag: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			c := New(tt.lang)
			require.Equal(t, tt.want, c.T(AllFieldsRequired))
			require.Equal(t, tt.tag, c.Language())
		})
	}
}

func TestCatalog_UnknownKey(t *testing.T) {
	require.Equal(t, "some.unknown.key", New("ru").T("some.unknown.key"))
}

func TestDictionary_Complete(t *testing.T) {
	en := dictionary[tags[0]]
	for _, tag := range tags {
		require.Len(t, dictionary[tag], len(en), tag.String())
	}
}
