package async

import "github.com/mirrorbeam/social-archiver/generic"

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T)
	go func() {
		c <- f()
	}()
	return c
}

// RunResult is like Run, but for functions returning a (value, error) pair,
// delivered as a generic.Result.
func RunResult[T any](f func() (T, error)) <-chan generic.Result[T] {
	c := make(chan generic.Result[T])
	go func() {
		c <- generic.NewResult(f())
	}()
	return c
}
