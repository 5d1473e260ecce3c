package pubsub

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestPublisherFanOut(t *testing.T) {
	assert := assert_.New(t)
	p := NewPublisher[int]()
	a, err := p.Subscribe()
	assert.NoError(err)
	b, err := p.SubscribeBufSize(10)
	assert.NoError(err)

	assert.True(p.Send(1))
	assert.Equal(1, <-a.Receive())
	assert.Equal(1, <-b.Receive())

	p.Close()
	_, ok := <-a.Receive()
	assert.False(ok)
	_, ok = <-b.Receive()
	assert.False(ok)
}

func TestPublisherSubscribeAfterClose(t *testing.T) {
	assert := assert_.New(t)
	p := NewPublisher[int]()
	p.Close()
	_, err := p.Subscribe()
	assert.ErrorIs(err, ErrPublisherClosed)
	assert.False(p.Send(1))
}

func TestPublisherDroppedSubscriber(t *testing.T) {
	assert := assert_.New(t)
	p := NewPublisher[int]()
	s, err := p.Subscribe()
	assert.NoError(err)
	// A closed subscriber gets dropped instead of wedging the publisher.
	s.Close()
	assert.True(p.Send(1))
	assert.True(p.Send(2))
	p.Close()
}
