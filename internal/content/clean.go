package content

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const bullet = "•"

var (
	stripOnce   sync.Once
	stripPolicy *bluemonday.Policy
)

func stripper() *bluemonday.Policy {
	stripOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// StripMarkup removes any HTML from generated text. The policy escapes what it
// keeps, so entities are decoded again afterwards.
func StripMarkup(text string) string {
	return html.UnescapeString(stripper().Sanitize(text))
}

// CleanLine drops markdown emphasis and normalizes list markers to bullets
func CleanLine(line string) string {
	line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
	line = strings.TrimSpace(strings.ReplaceAll(line, "*", bullet))
	if strings.HasPrefix(line, "-") {
		return bullet + " " + strings.TrimSpace(strings.TrimLeft(line, "-"+bullet))
	}
	return line
}

// Lines splits chapter text into cleaned, non-blank lines
func Lines(text string) []string {
	var out []string
	for _, raw := range strings.Split(StripMarkup(text), "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if line := CleanLine(raw); line != "" {
			out = append(out, line)
		}
	}
	return out
}
