// Package i18n holds the user-facing strings of the shell in English and
// Turkish and picks a language from a locale string.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

const DefaultLanguage = "en"

var ErrUnsupportedLanguage = errors.New("unsupported language")

var (
	supported = []language.Tag{language.English, language.Turkish}
	names     = []string{"en", "tr"}
	matcher   = language.NewMatcher(supported)
)

// Supported returns the language codes with a catalog.
func Supported() []string {
	return append([]string(nil), names...)
}

// Match returns the supported language closest to locale, which may be a
// BCP 47 tag ("tr-TR") or a POSIX locale ("tr_TR.UTF-8"). ok is false when
// nothing matches and the default was returned.
func Match(locale string) (lang string, ok bool) {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLanguage, false
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLanguage, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage, false
	}
	return names[idx], true
}

// Catalog translates message keys into the current language. Keys missing
// from the current language fall back to English, then to the key itself.
type Catalog struct {
	messages map[string]map[string]string

	mu   sync.RWMutex
	lang string
}

// New loads the embedded catalogs and selects the language closest to
// locale.
func New(locale string) (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]string, len(names))}
	for _, name := range names {
		b, err := locales.ReadFile(path.Join("locales", name+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read %s catalog: %w", name, err)
		}
		m := map[string]string{}
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse %s catalog: %w", name, err)
		}
		c.messages[name] = m
	}
	c.lang, _ = Match(locale)
	return c, nil
}

func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lang
}

// SetLanguage switches to the supported language matching locale.
func (c *Catalog) SetLanguage(locale string) (string, error) {
	lang, ok := Match(locale)
	if !ok {
		return c.Language(), fmt.Errorf("%w: %q", ErrUnsupportedLanguage, locale)
	}
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()
	return lang, nil
}

// T returns the message for key with {name} placeholders replaced. args are
// name/value pairs; a trailing name without value is ignored.
func (c *Catalog) T(key string, args ...string) string {
	lang := c.Language()
	msg, ok := c.messages[lang][key]
	if !ok {
		msg, ok = c.messages[DefaultLanguage][key]
	}
	if !ok {
		msg = key
	}
	for i := 0; i+1 < len(args); i += 2 {
		msg = strings.ReplaceAll(msg, "{"+args[i]+"}", args[i+1])
	}
	return msg
}

// Keys returns every key of lang's catalog.
func (c *Catalog) Keys(lang string) []string {
	m := c.messages[lang]
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
