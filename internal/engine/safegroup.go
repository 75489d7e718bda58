package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/poltergeist/phasebuild/pkg/logger"
)

// SafeGroup is an errgroup whose goroutines report panics as errors
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup whose context is cancelled on the first error
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{group: g, logger: log}, ctx
}

// Go runs fn in a new goroutine. name identifies it when it panics.
func (sg *SafeGroup) Go(name string, fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				sg.logger.Error("Recovered panic",
					logger.WithField("goroutine", name),
					logger.WithField("panic", r),
					logger.WithField("stack", string(debug.Stack())))
				err = fmt.Errorf("%w: %s: %v", ErrGoroutinePanicked, name, r)
			}
		}()
		return fn()
	})
}

// Wait blocks until every goroutine returned and reports the first error
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
