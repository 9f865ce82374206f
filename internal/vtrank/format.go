package vtrank

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var scorePrinter = message.NewPrinter(language.English)

// FormatScore renders a real (already converted) score for display: values
// under 1000 round to the nearest integer, larger values get locale
// grouping.
func FormatScore(score float64) string {
	rounded := int64(math.Round(score))
	if rounded < 1000 {
		return strconv.FormatInt(rounded, 10)
	}
	return scorePrinter.Sprintf("%d", rounded)
}
