// Package sanitizer cleans backend-supplied text before it reaches the
// terminal. Task descriptions and error strings come from model providers
// and may carry escape sequences or stray control bytes.
package sanitizer

import (
	"regexp"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// orphanedMouse matches mouse reports whose ESC prefix was already eaten.
var orphanedMouse = regexp.MustCompile(`\[<[0-9]+;[0-9]+;[0-9]+[Mm]`)

type Config struct {
	AllowNewlines      bool
	ReplaceNewlineWith string
	MaxRunes           int
}

// Text is what detail views use: newlines survive.
func TextConfig() Config {
	return Config{AllowNewlines: true}
}

// Line is what tables use: everything collapses onto one line.
func LineConfig() Config {
	return Config{ReplaceNewlineWith: " "}
}

type Sanitizer struct {
	config Config
}

func New(config Config) *Sanitizer {
	return &Sanitizer{config: config}
}

var line = New(LineConfig())

// Line sanitizes with LineConfig and trims surrounding space.
func Line(input string) string {
	return strings.TrimSpace(line.Sanitize(input))
}

func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	input = xansi.Strip(input)
	input = orphanedMouse.ReplaceAllString(input, "")

	var b strings.Builder
	b.Grow(len(input))
	count := 0
	for _, r := range input {
		if s.config.MaxRunes > 0 && count >= s.config.MaxRunes {
			break
		}
		switch {
		case r == '\n':
			if s.config.AllowNewlines {
				b.WriteRune(r)
			} else {
				b.WriteString(s.config.ReplaceNewlineWith)
			}
		case r == '\t':
			b.WriteByte(' ')
		case r < 32 || r == 127:
			continue
		default:
			b.WriteRune(r)
		}
		count++
	}
	return b.String()
}
