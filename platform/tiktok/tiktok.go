package tiktok

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/generic"
	"github.com/mirrorbeam/social-archiver/internal/media"
)

const Name = "tiktok"

const DefaultFormat = "best"

var (
	videoPath = regexp.MustCompile(`^/@[^/]+/video/(\d+)`)
	embedPath = regexp.MustCompile(`^/embed/v2/(\d+)`)
)

// Extract video ID from TikTok URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m).tiktok.com/@{USER}/video/{ID}
//	http(s?)://(www|m).tiktok.com/embed/v2/{ID}
//
// Precedence: the canonical /@user/video/ form wins over the embed form.
// vm.tiktok.com share links redirect server-side and carry no ID in their
// shape, so they do not match.
func extractVideoID(u *url.URL) (string, error) {
	switch u.Hostname() {
	case "www.tiktok.com", "m.tiktok.com", "tiktok.com":
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if m := videoPath.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if m := embedPath.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("could not extract video ID")
}

func Match(u *url.URL) (string, error) {
	return extractVideoID(u)
}

func Caption(info *media.Info) social_archiver.Caption {
	channelName := info.Channel
	if channelName == "" {
		channelName = info.Uploader
	}
	channelURL := info.UploaderURL
	if channelURL == "" && info.UploaderID != "" {
		channelURL = fmt.Sprintf("https://www.tiktok.com/@%s", strings.TrimPrefix(info.UploaderID, "@"))
	}
	return social_archiver.Caption{
		Title:       info.BestTitle(),
		VideoURL:    info.WebpageURL,
		CreatedAt:   info.CreationTime(),
		ChannelName: channelName,
		ChannelURL:  channelURL,
		Views:       generic.FromPtr(info.ViewCount),
		Likes:       generic.FromPtr(info.LikeCount),
	}
}

// Classify: TikTok is always short-form.
func Classify(_ string, _ *media.Info) social_archiver.ContentType {
	return social_archiver.ContentTypeShort
}

func New() social_archiver.Platform {
	return social_archiver.Platform{
		Name:          Name,
		Match:         Match,
		DefaultFormat: DefaultFormat,
		Caption:       Caption,
		Classify:      Classify,
	}
}

func init() {
	social_archiver.DefaultPlatformRegistry.MustAdd(New())
}
