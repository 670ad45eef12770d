// Package locales serves the bot's user-facing texts from embedded
// translation files.
package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.json
var localeFS embed.FS

// Message ids.
const (
	Greeting       = "Greeting"
	Help           = "Help"
	MenuStart      = "MenuStart"
	MenuHelp       = "MenuHelp"
	NoErrorEntries = "NoErrorEntries"
	NoInfoEntries  = "NoInfoEntries"
	LogCleared     = "LogCleared"
	NewUser        = "NewUser"
	AdminInfoLog   = "AdminInfoLog"
	AdminErrorLog  = "AdminErrorLog"
)

// Bundle resolves message ids for one configured language.
type Bundle struct {
	bundle    *i18n.Bundle
	lang      language.Tag
	localizer *i18n.Localizer
	fallback  *i18n.Localizer
}

// New loads every embedded translation and selects lang as the default.
func New(lang string) (*Bundle, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return nil, fmt.Errorf("locales: parse language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := fs.ReadDir(localeFS, ".")
	if err != nil {
		return nil, fmt.Errorf("locales: read embedded files: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, e.Name()); err != nil {
			return nil, fmt.Errorf("locales: load %s: %w", e.Name(), err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("locales: no message files embedded")
	}

	return &Bundle{
		bundle:    bundle,
		lang:      tag,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
		fallback:  i18n.NewLocalizer(bundle, language.English.String()),
	}, nil
}

// Language returns the configured language tag.
func (b *Bundle) Language() language.Tag {
	return b.lang
}

// Text returns the message for id, falling back to English and then to id.
func (b *Bundle) Text(id string, data map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id, TemplateData: data}
	if msg, err := b.localizer.Localize(cfg); err == nil {
		return msg
	}
	if msg, err := b.fallback.Localize(cfg); err == nil {
		return msg
	}
	return id
}

// T is Text without template data.
func (b *Bundle) T(id string) string {
	return b.Text(id, nil)
}
