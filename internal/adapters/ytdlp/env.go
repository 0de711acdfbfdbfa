package ytdlp

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Some platforms reject process environments holding characters outside
// Latin-1, so the environment is cleaned before spawning yt-dlp. Arguments
// pass through untouched.

// SanitizedEnv drops every KEY=VALUE entry whose value is not pure Latin-1.
func SanitizedEnv(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		if key == "PATH" || isLatin1(value) {
			out = append(out, kv)
		}
	}
	return out
}

func isLatin1(s string) bool {
	for _, r := range s {
		if _, ok := charmap.ISO8859_1.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
