/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package lang

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language is an analysis mode.
type Language string

const (
	Unknown    Language = ""
	JavaScript Language = "javascript"
	PHP        Language = "php"
	Python     Language = "python"
)

var extensions = map[string]Language{
	".js":    JavaScript,
	".mjs":   JavaScript,
	".cjs":   JavaScript,
	".jsx":   JavaScript,
	".php":   PHP,
	".phtml": PHP,
	".php3":  PHP,
	".php4":  PHP,
	".php5":  PHP,
	".phps":  PHP,
	".py":    Python,
}

// All returns the supported languages in a stable order.
func All() []Language {
	return []Language{JavaScript, PHP, Python}
}

// Parse validates a --language value. The empty string selects per-file detection.
func Parse(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Unknown:
		return Unknown, nil
	case JavaScript:
		return JavaScript, nil
	case PHP:
		return PHP, nil
	case Python:
		return Python, nil
	}
	return Unknown, fmt.Errorf("unsupported language %q (want javascript, php or python)", s)
}

// FromExtension maps a file path to its language by extension.
func FromExtension(path string) (Language, bool) {
	l, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// Detect returns the analysis mode for path: forced wins for any supported extension.
func Detect(path string, forced Language) (Language, bool) {
	l, ok := FromExtension(path)
	if !ok {
		return Unknown, false
	}
	if forced != Unknown {
		return forced, true
	}
	return l, true
}

// Native reports whether the built-in engine analyzes this language.
func (l Language) Native() bool {
	return l == JavaScript || l == PHP
}

func (l Language) String() string {
	if l == Unknown {
		return "auto"
	}
	return string(l)
}
