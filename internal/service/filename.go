package service

import (
	"strings"
	"unicode/utf8"

	"ytproxy/internal/core/domain"
)

const fallbackBaseName = "download"

// SanitizeFilename strips control characters, path-illegal characters and
// line separators, then trims surrounding whitespace. It is idempotent.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r == '\u2028', r == '\u2029':
			return -1
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return -1
		}
		return r
	}, name))
}

// Extension is the format's container, or mp3/mp4 when yt-dlp left it out.
func Extension(f domain.Format) string {
	if f.Ext != "" {
		return f.Ext
	}
	if f.AudioOnly() {
		return "mp3"
	}
	return "mp4"
}

// ComputeFilename picks the download name: the sanitized custom name, else
// the sanitized title, else "download". The extension is appended only when
// the base name has no dot.
func ComputeFilename(custom, title string, f domain.Format) string {
	base := SanitizeFilename(custom)
	if base == "" {
		base = SanitizeFilename(title)
	}
	if base == "" {
		base = fallbackBaseName
	}
	if strings.Contains(base, ".") {
		return base
	}
	return base + "." + Extension(f)
}

// ContentDisposition renders an attachment header. Non-ASCII names get an
// ASCII fallback plus an RFC 5987 filename* parameter.
func ContentDisposition(filename string) string {
	if isASCII(filename) {
		return `attachment; filename="` + filename + `"`
	}
	fallback := strings.Map(func(r rune) rune {
		if r >= utf8.RuneSelf {
			return '_'
		}
		return r
	}, filename)
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + encodeExtValue(filename)
}

// encodeExtValue percent-encodes everything outside RFC 5987 attr-char.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
