package youtube

import (
	"fmt"
	"net/url"
	"strings"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/generic"
	"github.com/mirrorbeam/social-archiver/internal/media"
)

const Name = "youtube"

// DefaultFormat prefers an mp4a audio track so the result plays inline in
// Telegram clients, with progressively laxer fallbacks.
const DefaultFormat = "bestvideo+bestaudio[acodec^=mp4a]/bestvideo*+bestaudio/best"

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m).youtube.com/watch?v={VIDEO_ID}
//	http(s?)://(www|m).youtube.com/(shorts|v|embed)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
//
// Precedence: the explicit ?v= query parameter wins over path segments. The
// ID scheme is shared between long-form and shorts URLs, so both map to the
// same ContentID.
func extractVideoID(u *url.URL) (string, error) {
	var id string
	switch u.Hostname() {
	case "www.youtube.com", "m.youtube.com", "youtube.com":
		if u.Path == "/watch" || u.Path == "/details" {
			if u.Query().Has("v") {
				id = u.Query().Get("v")
			} else {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
		} else {
			for _, prefix := range []string{"/shorts/", "/v/", "/embed/", "/live/"} {
				if strings.HasPrefix(u.Path, prefix) {
					id = strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]
					break
				}
			}
		}
	case "youtu.be":
		id = strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}

func Match(u *url.URL) (string, error) {
	return extractVideoID(u)
}

// Caption maps YouTube metadata: fulltitle over title, original_url for
// shorts (webpage_url resolves to the long-form watch URL), uploader_url for
// the channel link.
func Caption(info *media.Info) social_archiver.Caption {
	videoURL := info.WebpageURL
	if isShortURL(info.OriginalURL) && info.OriginalURL != "" {
		videoURL = info.OriginalURL
	}
	channelName := info.Channel
	if channelName == "" {
		channelName = info.Uploader
	}
	return social_archiver.Caption{
		Title:       info.BestTitle(),
		VideoURL:    videoURL,
		CreatedAt:   info.CreationTime(),
		ChannelName: channelName,
		ChannelURL:  info.UploaderURL,
		Views:       generic.FromPtr(info.ViewCount),
		Likes:       generic.FromPtr(info.LikeCount),
	}
}

func Classify(rawURL string, info *media.Info) social_archiver.ContentType {
	if isShortURL(rawURL) || (info != nil && isShortURL(info.OriginalURL)) {
		return social_archiver.ContentTypeShort
	}
	return social_archiver.ContentTypeVideo
}

func isShortURL(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "/shorts/")
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
