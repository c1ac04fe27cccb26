package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLang язык, на который откатывается поиск строки
const DefaultLang = "ru"

//go:embed locales.yaml
var defaultLocales []byte

// Catalog плоский справочник строк: lang -> "group.key" -> строка
type Catalog struct {
	strings map[string]map[string]string
}

// Load разбирает YAML каталога. Вложенные ключи склеиваются через точку.
func Load(data []byte) (*Catalog, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse locales: %w", err)
	}

	c := &Catalog{strings: make(map[string]map[string]string, len(raw))}
	for lang, tree := range raw {
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.strings[lang] = flat
	}
	return c, nil
}

// Default каталог, встроенный в бинарник
func Default() (*Catalog, error) {
	return Load(defaultLocales)
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Get возвращает строку для языка. Если строки нет, берётся DefaultLang,
// затем сам ключ.
func (c *Catalog) Get(lang, key string, args ...any) string {
	s, ok := c.lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

// Is проверяет, что text совпадает со строкой key на любом языке
func (c *Catalog) Is(text, key string) bool {
	for _, flat := range c.strings {
		if s, ok := flat[key]; ok && s == text {
			return true
		}
	}
	return false
}

// Lang приводит language_code Telegram к языку каталога
func (c *Catalog) Lang(code string) string {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := c.strings[code]; ok {
		return code
	}
	return DefaultLang
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	if flat, ok := c.strings[lang]; ok {
		if s, ok := flat[key]; ok {
			return s, true
		}
	}
	s, ok := c.strings[DefaultLang][key]
	return s, ok
}
