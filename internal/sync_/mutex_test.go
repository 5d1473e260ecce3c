package sync_

import (
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

// Verify that intended interfaces are implemented
var _ RMutexer[int] = NewMutexed(123)
var _ Mutexer[int] = NewMutexed(123)
var _ RMutexer[int] = NewRWMutexed(123)
var _ Mutexer[int] = NewRWMutexed(123)
var _ RMutexer[int] = NewRWMutexed(123).RMutexer()

func TestMutexedSimple(t *testing.T) {
	assert := assert_.New(t)
	rw := NewRWMutexed(123)
	r := rw.RMutexer()
	assert.Equal(123, rw.Get())
	assert.Equal(123, r.Get())
	assert.Equal(123, rw.Swap(456))
	assert.Equal(456, r.Get())
}

func TestMutexedRace(t *testing.T) {
	assert := assert_.New(t)
	counter := 0
	m := NewMutexed(&counter)
	start := make(chan struct{})
	wg := sync.WaitGroup{}

	// Increment by 2500 with 50 goroutines in parallel
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				_ = m.Locked(func(v *int) error {
					*v = *v + 1
					return nil
				})
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(2500, *m.Get())
}
