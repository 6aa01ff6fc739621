package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/dmitrijs2005/dome/internal/client/i18n"
)

// resolveLanguage picks the configured language, then the stored one, then
// the process locale.
func resolveLanguage(ctx context.Context, configured string, store languageStore) string {
	if configured != "" {
		return configured
	}
	if store != nil {
		if stored, err := store.Language(ctx); err == nil && stored != "" {
			return stored
		}
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return i18n.DefaultLanguage
}

// lang switches the interface language and remembers the choice.
func (a *App) lang(ctx context.Context, args []string) error {
	lang, err := a.catalog.SetLanguage(args[0])
	if errors.Is(err, i18n.ErrUnsupportedLanguage) {
		a.println(a.message("language.unsupported", "languages", strings.Join(i18n.Supported(), ", ")))
		return nil
	}
	if err != nil {
		return err
	}

	if a.gateway != nil {
		a.gateway.SetLanguage(lang)
	}
	if a.languages != nil {
		if err := a.languages.SetLanguage(ctx, lang); err != nil {
			a.log.Warn(ctx, "failed to persist language", "language", lang, "error", err)
		}
	}
	a.println(a.message("language.changed"))
	return nil
}
