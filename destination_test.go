package social_archiver

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestDestinationTableResolve(t *testing.T) {
	assert := assert_.New(t)
	table := DestinationTable{
		"youtube": {GroupID: -100111, Topics: map[string]int{"videos": 2, "shorts": 3}},
		"vk":      {GroupID: -100222, Topics: map[string]int{"videos": 5}},
		"rutube":  {GroupID: -100333},
	}

	dest, ok := table.Resolve("youtube", ContentTypeVideo)
	assert.True(ok)
	assert.Equal(Destination{EntityID: -100111, TopicID: 2}, dest)

	// Short-form content routes to the shorts topic.
	dest, ok = table.Resolve("youtube", ContentTypeShort)
	assert.True(ok)
	assert.Equal(Destination{EntityID: -100111, TopicID: 3}, dest)

	// Clips share the shorts topic.
	dest, ok = table.Resolve("youtube", ContentTypeClip)
	assert.True(ok)
	assert.Equal(Destination{EntityID: -100111, TopicID: 3}, dest)

	// No shorts topic configured: fall back to the videos topic.
	dest, ok = table.Resolve("vk", ContentTypeClip)
	assert.True(ok)
	assert.Equal(Destination{EntityID: -100222, TopicID: 5}, dest)

	// No topics at all: fall back to the default topic.
	dest, ok = table.Resolve("rutube", ContentTypeVideo)
	assert.True(ok)
	assert.Equal(Destination{EntityID: -100333, TopicID: DefaultTopicID}, dest)

	_, ok = table.Resolve("tiktok", ContentTypeVideo)
	assert.False(ok)
}

func TestDestinationIsZero(t *testing.T) {
	assert := assert_.New(t)
	assert.True(Destination{}.IsZero())
	assert.False(Destination{EntityID: -100111}.IsZero())
	assert.False(Destination{TopicID: 1}.IsZero())
}
