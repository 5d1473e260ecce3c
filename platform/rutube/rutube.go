package rutube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/generic"
	"github.com/mirrorbeam/social-archiver/internal/media"
)

const Name = "rutube"

const DefaultFormat = "best"

var idPath = regexp.MustCompile(`^/(?:video|shorts|play/embed)/([0-9a-f]{32}|\d+)`)

// Extract video ID from Rutube URL.
//
// Allowed URL formats:
//
//	http(s?)://rutube.ru/video/{ID}/
//	http(s?)://rutube.ru/shorts/{ID}/
//	http(s?)://rutube.ru/play/embed/{ID}
//
// IDs are 32-char hex strings (numeric for some legacy embeds); all three
// URL shapes share the same ID scheme.
func extractVideoID(u *url.URL) (string, error) {
	switch u.Hostname() {
	case "rutube.ru", "www.rutube.ru":
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if m := idPath.FindStringSubmatch(u.Path); m != nil {
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
	channelURL := info.ChannelURL
	if channelURL == "" {
		channelURL = info.UploaderURL
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

func Classify(rawURL string, _ *media.Info) social_archiver.ContentType {
	if strings.Contains(strings.ToLower(rawURL), "/shorts/") {
		return social_archiver.ContentTypeShort
	}
	return social_archiver.ContentTypeVideo
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
