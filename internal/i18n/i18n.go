// Package i18n loads the per-language string dictionaries used by the
// terminal front-end and substitutes keys with their translations.
//
// Dictionaries are flat JSON objects embedded from locales/. A missing
// language falls back to DefaultLang; a key missing from a partial
// dictionary falls back to the default dictionary, then to the key itself.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// DefaultLang is used when nothing better is available.
const DefaultLang = "en"

// Supported lists the languages with a dictionary, default first.
var Supported = []string{"en", "fr", "es", "de"}

var matcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(Supported))
	for i, s := range Supported {
		tags[i] = language.MustParse(s)
	}
	return tags
}

// IsSupported reports whether lang has a dictionary.
func IsSupported(lang string) bool {
	return slices.Contains(Supported, lang)
}

// Detect picks a language: the saved preference when supported, then the
// closest match for a POSIX locale string such as "fr_FR.UTF-8", then
// DefaultLang.
func Detect(preference, locale string) string {
	if IsSupported(preference) {
		return preference
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLang
	}
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return DefaultLang
	}
	return Supported[idx]
}

// Catalog is a loaded dictionary.
type Catalog struct {
	Lang     string
	Tag      language.Tag
	entries  map[string]string
	fallback *Catalog
}

// T returns the translation for key, or key when there is none.
func (c *Catalog) T(key string) string {
	for cur := c; cur != nil; cur = cur.fallback {
		if v, ok := cur.entries[key]; ok && v != "" {
			return v
		}
	}
	return key
}

// Has reports whether key is translated in this catalog or its fallback.
func (c *Catalog) Has(key string) bool {
	return c.T(key) != key
}

// Len is the number of entries in the catalog's own dictionary.
func (c *Catalog) Len() int { return len(c.entries) }

// Load reads the dictionary for lang. On failure it falls back to
// DefaultLang and still returns a usable catalog together with the error
// that caused the fallback.
func Load(lang string) (*Catalog, error) {
	return load(localesFS, lang)
}

func load(fsys fs.FS, lang string) (*Catalog, error) {
	def, defErr := read(fsys, DefaultLang)
	if lang == DefaultLang {
		if defErr != nil {
			return empty(), defErr
		}
		return def, nil
	}

	cat, err := read(fsys, lang)
	if err != nil {
		if defErr != nil {
			return empty(), fmt.Errorf("loading %s: %w (default also failed: %v)", lang, err, defErr)
		}
		return def, fmt.Errorf("loading %s, using %s: %w", lang, DefaultLang, err)
	}
	if defErr == nil {
		cat.fallback = def
	}
	return cat, nil
}

func read(fsys fs.FS, lang string) (*Catalog, error) {
	if !IsSupported(lang) {
		return nil, fmt.Errorf("language %q not supported", lang)
	}
	data, err := fs.ReadFile(fsys, "locales/"+lang+".json")
	if err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", lang, err)
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing dictionary %s: %w", lang, err)
	}
	return &Catalog{Lang: lang, Tag: language.Make(lang), entries: entries}, nil
}

func empty() *Catalog {
	return &Catalog{Lang: DefaultLang, Tag: language.English, entries: map[string]string{}}
}
