// Package locales embeds the Arabic and English string catalogs shared by the
// API (served to clients) and the notification service.
package locales

import (
	"embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const Default = "ar"

//go:embed ar.json en.json
var files embed.FS

var (
	loadOnce sync.Once
	catalogs map[string]map[string]map[string]string
	loadErr  error
)

// Supported reports whether lang has an embedded catalog.
func Supported(lang string) bool {
	return lang == "ar" || lang == "en"
}

// Raw returns the catalog file for lang exactly as embedded.
func Raw(lang string) ([]byte, error) {
	if !Supported(lang) {
		return nil, errors.Errorf("locales: unsupported language %q", lang)
	}
	return files.ReadFile(lang + ".json")
}

func load() {
	catalogs = make(map[string]map[string]map[string]string, 2)
	for _, lang := range []string{"ar", "en"} {
		b, err := files.ReadFile(lang + ".json")
		if err != nil {
			loadErr = err
			return
		}
		var c map[string]map[string]string
		if err := json.Unmarshal(b, &c); err != nil {
			loadErr = errors.Wrapf(err, "locales: parse %s.json", lang)
			return
		}
		catalogs[lang] = c
	}
}

// T looks up section.key for lang, falling back to the default language and
// then to the key itself. Every {name} placeholder is replaced from params.
func T(lang, section, key string, params map[string]string) string {
	loadOnce.Do(load)
	if loadErr != nil {
		return key
	}

	msg, ok := catalogs[lang][section][key]
	if !ok {
		msg, ok = catalogs[Default][section][key]
	}
	if !ok {
		return key
	}
	if len(params) == 0 {
		return msg
	}

	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
