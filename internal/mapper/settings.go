package mapper

import (
	"bufio"
	"strings"

	"github.com/micromata/bankrecon/pkg/errors"
)

// ParseSettings turns an account's free-text import settings into a Mapping.
//
// The blob holds one field per line in the form
//
//	amount = Betrag*|Amount
//	subject = Verwendungszweck
//
// with '|' separating alternative header patterns. Blank lines and lines
// starting with '#' are ignored. An empty blob yields the default mapping.
func ParseSettings(blob string) (Mapping, error) {
	if strings.TrimSpace(blob) == "" {
		return DefaultMapping(), nil
	}

	mapping := make(Mapping)
	scanner := bufio.NewScanner(strings.NewReader(blob))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		field, patterns, found := strings.Cut(text, "=")
		if !found {
			return nil, errors.Newf(errors.CategoryConfiguration, errors.CodeInvalidMapping,
				"import settings line %d has no '=': %q", line, text).
				WithSuggestion("use 'field = pattern|pattern' per line")
		}

		field = strings.TrimSpace(field)
		var globs []string
		for _, pattern := range strings.Split(patterns, "|") {
			if pattern = strings.TrimSpace(pattern); pattern != "" {
				globs = append(globs, pattern)
			}
		}
		if len(globs) == 0 {
			return nil, errors.Newf(errors.CategoryConfiguration, errors.CodeInvalidMapping,
				"import settings line %d names field %q without patterns", line, field)
		}
		mapping[field] = globs
	}

	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return mapping, nil
}
