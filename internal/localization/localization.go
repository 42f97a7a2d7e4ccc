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

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var bundled embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads every "<lang>.json" file found in dir of fsys.
func NewLocalizer(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
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

// Bundled returns a Localizer over the translations compiled into the binary.
func Bundled() (*Localizer, error) {
	return NewLocalizer(bundled, "locales")
}

// Languages returns the loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	return out
}

// Has reports whether lang has translations.
func (l *Localizer) Has(lang string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.translations[lang]
	return ok
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	// Fallback to a default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}
