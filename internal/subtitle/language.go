package subtitle

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// NormalizeLanguage canonicalizes a subtitle language code (for example
// "zh-cn" becomes "zh-CN"). Unknown codes are returned trimmed but otherwise
// untouched so sidecar filenames still round-trip.
func NormalizeLanguage(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	return tag.String()
}

// LanguageName returns the native display name for a language code, falling
// back to the code itself when the tag cannot be parsed or has no name.
func LanguageName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return trimmed
}

// MatchesLanguage reports whether a sidecar language code satisfies a
// configured language. Exact match wins; otherwise the base language must
// agree (en matches en-US, zh-CN matches zh-Hans).
func MatchesLanguage(candidate, want string) bool {
	candidate = NormalizeLanguage(candidate)
	want = NormalizeLanguage(want)
	if candidate == "" || want == "" {
		return false
	}
	if strings.EqualFold(candidate, want) {
		return true
	}
	candidateTag, err := language.Parse(candidate)
	if err != nil {
		return false
	}
	wantTag, err := language.Parse(want)
	if err != nil {
		return false
	}
	candidateBase, _ := candidateTag.Base()
	wantBase, _ := wantTag.Base()
	return candidateBase == wantBase
}
