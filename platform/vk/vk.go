package vk

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/generic"
	"github.com/mirrorbeam/social-archiver/internal/media"
)

const Name = "vk"

const DefaultFormat = "best"

// VK video IDs are "{owner}_{video}" where the owner part is negative for
// communities, e.g. "-123456_789012".
var (
	pathID = regexp.MustCompile(`^/(?:video|clip)(-?\d+_\d+)$`)
	hosts  = map[string]bool{
		"vk.com":     true,
		"www.vk.com": true,
		"m.vk.com":   true,
		"vk.ru":      true,
	}
)

// Extract video ID from VK URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m).vk.com/video{OWNER}_{ID}
//	http(s?)://(www|m).vk.com/clip{OWNER}_{ID}
//	http(s?)://(www|m).vk.com/video_ext.php?oid={OWNER}&id={ID}
//
// Precedence: the path form wins; the video_ext query form is the fallback.
// Both clips and videos share the same ID scheme.
func extractVideoID(u *url.URL) (string, error) {
	if !hosts[u.Hostname()] {
		return "", fmt.Errorf("unrecognised hostname")
	}
	if m := pathID.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if u.Path == "/video_ext.php" {
		oid := u.Query().Get("oid")
		id := u.Query().Get("id")
		if oid != "" && id != "" {
			return fmt.Sprintf("%s_%s", oid, id), nil
		}
		return "", fmt.Errorf("video_ext.php missing oid/id parameters")
	}
	return "", fmt.Errorf("could not extract video ID")
}

func Match(u *url.URL) (string, error) {
	return extractVideoID(u)
}

// Caption maps VK metadata. VK reports no channel URL, so it is rebuilt from
// the uploader ID: negative IDs are communities (club pages), positive IDs
// are user pages.
func Caption(info *media.Info) social_archiver.Caption {
	channelName := info.Channel
	if channelName == "" {
		channelName = info.Uploader
	}
	channelURL := info.ChannelURL
	if channelURL == "" && info.UploaderID != "" {
		if strings.HasPrefix(info.UploaderID, "-") {
			channelURL = fmt.Sprintf("https://vk.com/club%s", strings.TrimPrefix(info.UploaderID, "-"))
		} else {
			channelURL = fmt.Sprintf("https://vk.com/id%s", info.UploaderID)
		}
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
	if strings.Contains(strings.ToLower(rawURL), "/clip") {
		return social_archiver.ContentTypeClip
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
