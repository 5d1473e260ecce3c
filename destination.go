package social_archiver

// ContentType classifies an item for destination routing.
type ContentType string

const (
	ContentTypeVideo ContentType = "video"
	ContentTypeShort ContentType = "short"
	ContentTypeClip  ContentType = "clip"
)

// topicKey maps a content type to the key used in a platform's topic table.
// Clips share the shorts topic.
func (t ContentType) topicKey() string {
	switch t {
	case ContentTypeShort, ContentTypeClip:
		return "shorts"
	default:
		return "videos"
	}
}

// A Destination is the (entity, topic) pair an item is published to.
type Destination struct {
	EntityID int64
	TopicID  int
}

// IsZero reports whether the destination is unset.
func (d Destination) IsZero() bool {
	return d.EntityID == 0 && d.TopicID == 0
}

// DefaultTopicID is the forum topic used when a platform has no topic
// configured for a content type.
const DefaultTopicID = 1

// An EntityConfig is one platform's destination configuration: the primary
// entity plus a topic per content-type key.
type EntityConfig struct {
	GroupID int64          `json:"group_id"`
	Topics  map[string]int `json:"topics"`
}

// A DestinationTable maps platform names to their destination configuration.
type DestinationTable map[string]EntityConfig

// Resolve returns the destination for (platform, content type). Unconfigured
// topics fall back to the platform's "videos" topic and then to
// DefaultTopicID; an unconfigured platform resolves to (zero, false).
func (t DestinationTable) Resolve(platform string, contentType ContentType) (Destination, bool) {
	cfg, ok := t[platform]
	if !ok || cfg.GroupID == 0 {
		return Destination{}, false
	}
	topicID, ok := cfg.Topics[contentType.topicKey()]
	if !ok {
		if topicID, ok = cfg.Topics["videos"]; !ok {
			topicID = DefaultTopicID
		}
	}
	return Destination{EntityID: cfg.GroupID, TopicID: topicID}, true
}
