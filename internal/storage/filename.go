package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// maxFilenameBytes bounds a stored file name including suffix and extension.
	maxFilenameBytes = 240

	// reservedSuffixBytes leaves room for "_<probe>" and ".html".
	reservedSuffixBytes = 16

	// hashLength is the number of hex characters taken from the URL hash.
	hashLength = 16
)

// unsafeChars matches everything not allowed in a path component.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeComponent replaces unsafe characters with '_' and trims leading and
// trailing underscores. fallback is returned when nothing is left.
func SanitizeComponent(value, fallback string) string {
	cleaned := strings.Trim(unsafeChars.ReplaceAllString(value, "_"), "_")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// TruncateUTF8 shortens s to at most limit bytes without splitting a rune.
func TruncateUTF8(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// URLHash returns the first 16 hex characters of sha256(pageURL).
func URLHash(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return hex.EncodeToString(sum[:])[:hashLength]
}

// FilenameStem returns the file name stem for a page, without extension.
func FilenameStem(pageURL, leadingNumber string) string {
	if leadingNumber != "" {
		const prefix = "post_"
		return prefix + TruncateUTF8(leadingNumber, maxFilenameBytes-reservedSuffixBytes-len(prefix))
	}

	segment := lastSegment(pageURL)
	hash := URLHash(pageURL)
	budget := maxFilenameBytes - reservedSuffixBytes - len(hash) - 1
	segment = TruncateUTF8(SanitizeComponent(segment, "segment"), budget)

	return segment + "_" + hash
}

// lastSegment returns the last non-empty path segment, or "root".
func lastSegment(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "root"
	}
	trimmed := strings.Trim(u.EscapedPath(), "/")
	if trimmed == "" {
		return "root"
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// hostDir returns the directory name for a page's hostname.
func hostDir(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "site"
	}
	return SanitizeComponent(strings.ToLower(u.Hostname()), "site")
}
