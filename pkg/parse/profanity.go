package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// defaultProfanity is the built-in mask set. Config can extend it; tokens are
// matched case-insensitively on word boundaries.
var defaultProfanity = []string{
	"asshole",
	"bastard",
	"bitch",
	"bullshit",
	"cunt",
	"dick",
	"fuck",
	"fucked",
	"fucking",
	"motherfucker",
	"piss",
	"prick",
	"shit",
	"shitty",
	"slut",
	"twat",
	"whore",
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)

// ProfanityFilter replaces disallowed tokens with mask characters so raw
// profanity never leaves the process.
type ProfanityFilter struct {
	words map[string]struct{}
}

func NewProfanityFilter(extra ...string) *ProfanityFilter {
	words := make(map[string]struct{}, len(defaultProfanity)+len(extra))
	for _, word := range defaultProfanity {
		words[word] = struct{}{}
	}
	for _, word := range extra {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			words[word] = struct{}{}
		}
	}

	return &ProfanityFilter{words: words}
}

// Mask returns text with every disallowed token replaced by asterisks of the
// same rune length. Spacing and punctuation are preserved.
func (f *ProfanityFilter) Mask(text string) string {
	return wordPattern.ReplaceAllStringFunc(text, func(word string) string {
		if _, bad := f.words[strings.ToLower(word)]; !bad {
			return word
		}

		return strings.Repeat("*", utf8.RuneCountInString(word))
	})
}
