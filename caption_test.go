package social_archiver

import (
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/mirrorbeam/social-archiver/generic"
)

func TestFormatCount(t *testing.T) {
	assert := assert_.New(t)

	for _, tc := range []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{525, "525"},
		{999, "999"},
		{1000, "1K"},
		{16300, "16.3K"},
		{150000, "150K"},
		{1500000, "1.5M"},
		{2000000, "2M"},
		{1500000000, "1.5B"},
		{2000000000, "2B"},
	} {
		assert.Equal(tc.want, FormatCount(tc.n), "n=%d", tc.n)
	}
}

func TestCaptionRender(t *testing.T) {
	assert := assert_.New(t)

	c := Caption{
		Title:       "Some Video",
		VideoURL:    "https://www.youtube.com/watch?v=abc",
		CreatedAt:   time.Date(2025, 11, 10, 14, 30, 0, 0, time.UTC),
		ChannelName: "Some Channel",
		ChannelURL:  "https://www.youtube.com/@somechannel",
		Views:       generic.Some[int64](1_200_000),
		Likes:       generic.Some[int64](45_000),
	}
	want := "[Some Video](https://www.youtube.com/watch?v=abc)\n" +
		"📅 10.11.2025 14:30 | 👁️ 1.2M | ❤️ 45K\n" +
		"👤 [Some Channel](https://www.youtube.com/@somechannel)"
	assert.Equal(want, c.Render())
}

func TestCaptionRenderWithoutCounts(t *testing.T) {
	assert := assert_.New(t)

	c := Caption{
		Title:       "Untitled",
		VideoURL:    "https://vk.com/video-1_2",
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
		ChannelName: "club",
		ChannelURL:  "https://vk.com/club1",
	}
	want := "[Untitled](https://vk.com/video-1_2)\n" +
		"📅 02.01.2025 03:04\n" +
		"👤 [club](https://vk.com/club1)"
	assert.Equal(want, c.Render())
}
