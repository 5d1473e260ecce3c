package social_archiver

import (
	"fmt"
	"strings"
	"time"

	"github.com/mirrorbeam/social-archiver/generic"
)

// A Caption holds the pieces of the message text posted alongside a video.
// Platform packages fill it from their own metadata fields; Render produces
// the final markdown.
type Caption struct {
	Title       string
	VideoURL    string
	CreatedAt   time.Time
	ChannelName string
	ChannelURL  string
	Views       generic.Option[int64]
	Likes       generic.Option[int64]
}

// Render builds the caption text:
//
//	[Video Title](https://youtube.com/watch?v=xxx)
//	📅 10.11.2025 14:30 | 👁️ 1.2M | ❤️ 45K
//	👤 [Channel Name](https://youtube.com/@channel)
func (c Caption) Render() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "[%s](%s)\n", c.Title, c.VideoURL)
	fmt.Fprintf(&b, "📅 %s", c.CreatedAt.Format("02.01.2006 15:04"))
	if c.Views.IsSome() {
		fmt.Fprintf(&b, " | 👁️ %s", FormatCount(c.Views.Unwrap()))
	}
	if c.Likes.IsSome() {
		fmt.Fprintf(&b, " | ❤️ %s", FormatCount(c.Likes.Unwrap()))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "👤 [%s](%s)", c.ChannelName, c.ChannelURL)
	return b.String()
}

// FormatCount renders large counts with K/M/B suffixes: 525 -> "525",
// 16354 -> "16.3K", 1500000 -> "1.5M", 1456091000 -> "1.5B". One decimal is
// kept below 100 units, none above, and trailing ".0" is dropped.
func FormatCount(n int64) string {
	switch {
	case n < 1_000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return formatScaled(float64(n)/1_000, "K")
	case n < 1_000_000_000:
		return formatScaled(float64(n)/1_000_000, "M")
	default:
		return formatScaled(float64(n)/1_000_000_000, "B")
	}
}

func formatScaled(v float64, suffix string) string {
	if v == float64(int64(v)) || v >= 100 {
		return fmt.Sprintf("%d%s", int64(v), suffix)
	}
	s := fmt.Sprintf("%.1f%s", v, suffix)
	return strings.Replace(s, ".0"+suffix, suffix, 1)
}
