package config

import (
	"fmt"
	"strings"
)

// Settings is the operational document that sits next to the bot config.
type Settings struct {
	Admins   []int64 `yaml:"admins" envconfig:"ADMINS"`
	Language string  `yaml:"language" envconfig:"BOT_LANGUAGE"`
}

// DefaultLanguage is used for notices when settings do not specify one.
const DefaultLanguage = "ru"

// LoadSettings reads the settings YAML document and applies env overrides.
func LoadSettings(path string) (*Settings, error) {
	var s Settings
	if err := Decode(path, &s); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if err := NormalizeSettings(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// NormalizeSettings drops invalid admin ids and fills the language default.
func NormalizeSettings(s *Settings) error {
	if s == nil {
		return fmt.Errorf("nil settings")
	}
	admins := s.Admins[:0]
	seen := make(map[int64]struct{}, len(s.Admins))
	for _, id := range s.Admins {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		admins = append(admins, id)
	}
	s.Admins = admins

	s.Language = strings.ToLower(strings.TrimSpace(s.Language))
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	return nil
}
