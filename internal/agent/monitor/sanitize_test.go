package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle_MaskedPasswords(t *testing.T) {
	cases := []string{
		"Login - Password: ••••••••",
		"Account *** hidden",
		"••••••***",
		"prefix •••• suffix",
	}
	for _, title := range cases {
		assert.Equal(t, "[Sensitive Content]", SanitizeTitle(title), "title %q", title)
	}
}

func TestSanitizeTitle_ProtectedApps(t *testing.T) {
	cases := []string{
		"Bank of America",
		"Finance Dashboard",
		"Password Manager",
		"Login to Google",
		"1Password - My Vault",
		"Bitwarden Settings",
		"KeePass Database",
		"  Bank  of  America  ",
		"\tPassword\tManager\t",
	}
	for _, title := range cases {
		assert.Equal(t, "[Protected App]", SanitizeTitle(title), "title %q", title)
	}
}

func TestSanitizeTitle_MaskedMarkerWinsOverKeyword(t *testing.T) {
	assert.Equal(t, "[Sensitive Content]", SanitizeTitle("Bank Account: ••••"))
}

func TestSanitizeTitle_CaseSensitiveKeywords(t *testing.T) {
	// Keyword matching is case-sensitive; lowercase variants pass through.
	assert.Equal(t, "bank of america", SanitizeTitle("bank of america"))
	assert.Equal(t, "password reset", SanitizeTitle("password reset"))
}

func TestSanitizeTitle_PassThrough(t *testing.T) {
	cases := []string{
		"",
		"Visual Studio Code",
		"My Document - Word",
		"Chrome - New Tab",
		"日本語 - テスト",
		"العربية",
		"Hello 🌍 World",
		"Test Café",
		"File @#$% - Test",
	}
	for _, title := range cases {
		assert.Equal(t, title, SanitizeTitle(title), "title %q", title)
	}
}

func TestSanitizeTitle_LongTitle(t *testing.T) {
	long := strings.Repeat("A", 10000)
	assert.Equal(t, long, SanitizeTitle(long))
}
