// Package rtp extracts RTP ranges from free-form answers.
package rtp

import (
	"regexp"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// Marker is the literal that introduces an RTP value in an answer.
const Marker = "RTP:"

// rtpPattern matches "RTP: 96.5", "RTP: 94-96.2", "RTP: 94% – 96%".
var rtpPattern = regexp.MustCompile(`RTP:\s*(\d+(?:\.\d+)?)\s*%?(?:\s*[-–]\s*(\d+(?:\.\d+)?)\s*%?)?`)

// Parse returns the range from the last RTP marker in text. The answer is
// asked to restate the value at the end, so the final occurrence is the one
// that counts. A single value yields a fixed range. Min and max are kept as
// written, even when min > max.
func Parse(text string) (models.RTPRange, bool) {
	matches := rtpPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return models.RTPRange{}, false
	}
	last := matches[len(matches)-1]

	low, err := models.ParsePercent(last[1])
	if err != nil {
		return models.RTPRange{}, false
	}
	high := low
	if last[2] != "" {
		if high, err = models.ParsePercent(last[2]); err != nil {
			return models.RTPRange{}, false
		}
	}

	return models.RTPRange{Min: low, Max: high}, true
}
