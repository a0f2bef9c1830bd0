// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for different languages.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	fallback     string
	mu           sync.RWMutex
}

// Default returns a Localizer over the built-in translations.
func Default(fallback string) (*Localizer, error) {
	return NewLocalizer(embedded, "locales", fallback)
}

// NewLocalizer creates and returns a new Localizer instance.
// It loads all translations from dir inside fsys.
// The directory should contain JSON files named with the language code (e.g., "en.json").
func NewLocalizer(fsys fs.FS, dir, fallback string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		fallback:     fallback,
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")

		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it falls back to the default
// language, then English, then the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, candidate := range []string{lang, l.fallback, "en"} {
		if langTranslations, ok := l.translations[candidate]; ok {
			if value, ok := langTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Format is GetString followed by fmt.Sprintf.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// Match picks the best supported language for an Accept-Language header
// value, or the fallback when none matches.
func (l *Localizer) Match(acceptLanguage string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		if _, ok := l.translations[tag]; ok {
			return tag
		}
		base := strings.SplitN(tag, "-", 2)[0]
		for lang := range l.translations {
			if strings.EqualFold(strings.SplitN(lang, "-", 2)[0], base) {
				return lang
			}
		}
	}
	return l.fallback
}
