package subtitle

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"zh-cn", "zh-CN"},
		{"EN", "en"},
		{" en-US ", "en-US"},
		{"", ""},
		{"not a code!", "not a code!"},
	}
	for _, tc := range cases {
		if got := NormalizeLanguage(tc.in); got != tc.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLanguageNameFallsBackToCode(t *testing.T) {
	if got := LanguageName("not a code!"); got != "not a code!" {
		t.Fatalf("fallback = %q", got)
	}
	if got := LanguageName("en"); got == "" {
		t.Fatal("expected a display name for en")
	}
	if got := LanguageName("zh-CN"); got == "" {
		t.Fatal("expected a display name for zh-CN")
	}
}

func TestMatchesLanguage(t *testing.T) {
	cases := []struct {
		candidate string
		want      string
		matches   bool
	}{
		{"en", "en", true},
		{"en-US", "en", true},
		{"zh-Hans", "zh-CN", true},
		{"zh-CN", "zh-CN", true},
		{"ja", "en", false},
		{"", "en", false},
	}
	for _, tc := range cases {
		if got := MatchesLanguage(tc.candidate, tc.want); got != tc.matches {
			t.Fatalf("MatchesLanguage(%q, %q) = %v, want %v", tc.candidate, tc.want, got, tc.matches)
		}
	}
}
