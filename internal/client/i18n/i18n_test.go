package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"en", "en", true},
		{"tr", "tr", true},
		{"tr-TR", "tr", true},
		{"tr_TR.UTF-8", "tr", true},
		{"en_GB@euro", "en", true},
		{"", "en", false},
		{"C", "en", false},
		{"xx-invalid-%%", "en", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Match(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestCatalog_Translate(t *testing.T) {
	c, err := New("tr")
	require.NoError(t, err)

	assert.Equal(t, "tr", c.Language())
	assert.Equal(t, "Hoş geldin,", c.T("welcome"))
	assert.Equal(t, "Sil", c.T("delete"))
	assert.Equal(t, "Dome", c.T("app.title"))

	lang, err := c.SetLanguage("en")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	assert.Equal(t, "Welcome,", c.T("welcome"))
	assert.Equal(t, "+ Add Card", c.T("add.card"))
}

func TestCatalog_Params(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)

	assert.Equal(t,
		`Are you sure you want to delete the card "Fix login"? This action cannot be undone.`,
		c.T("confirm.delete.card", "cardName", "Fix login"))
	assert.Equal(t, "Todo", c.T("list.name", "listName", "Todo", "dangling"))
}

func TestCatalog_MissingKeyReturnsKey(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)
	assert.Equal(t, "no.such.key", c.T("no.such.key"))
}

func TestCatalog_SetLanguageUnsupported(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)

	lang, err := c.SetLanguage("zz")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Equal(t, "en", lang)
	assert.Equal(t, "en", c.Language())
}

func TestCatalogs_HaveSameKeys(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)
	assert.ElementsMatch(t, c.Keys("en"), c.Keys("tr"))
	assert.NotEmpty(t, c.Keys("en"))
}

func TestSupported(t *testing.T) {
	s := Supported()
	assert.Equal(t, []string{"en", "tr"}, s)
	s[0] = "xx"
	assert.Equal(t, "en", Supported()[0])
}
