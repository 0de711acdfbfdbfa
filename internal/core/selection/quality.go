package selection

import "strings"

var qualityHeights = map[string]int{
	"144p":  144,
	"240p":  240,
	"360p":  360,
	"480p":  480,
	"720p":  720,
	"1080p": 1080,
	"1440p": 1440,
	"2160p": 2160,
	"4k":    2160,
}

// QualityHeight maps a quality label like "720p" or "4K" to a pixel height.
// Unknown or empty labels return 0, meaning no target.
func QualityHeight(q string) int {
	return qualityHeights[strings.ToLower(strings.TrimSpace(q))]
}
