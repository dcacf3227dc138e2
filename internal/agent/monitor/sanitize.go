package monitor

import "strings"

const (
	sensitiveContentMarker = "[Sensitive Content]"
	protectedAppMarker     = "[Protected App]"
)

// sensitiveKeywords are matched case-sensitively against window titles.
// A hit replaces the whole title; partial redaction is never attempted.
var sensitiveKeywords = []string{
	"Bank",
	"Finance",
	"Password",
	"Login",
	"1Password",
	"Bitwarden",
	"KeePass",
}

// SanitizeTitle strips private content from a window title before it is ever
// stored or transmitted. Masked-password markers (runs of bullets or
// asterisks) win over keyword matches; everything else, including non-ASCII
// and emoji, passes through unchanged.
func SanitizeTitle(title string) string {
	if strings.Contains(title, "•••") || strings.Contains(title, "***") {
		return sensitiveContentMarker
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(title, kw) {
			return protectedAppMarker
		}
	}
	return title
}
