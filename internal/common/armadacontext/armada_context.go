package armadacontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Context is a context.Context that also carries a logger, so that a worker's log fields (e.g. its id) travel
// with its cancellation signal.
type Context struct {
	context.Context
	Log *logrus.Entry
}

// Background is context.Background with the standard logger attached.
func Background() *Context {
	return New(context.Background(), logrus.NewEntry(logrus.StandardLogger()))
}

func New(ctx context.Context, log *logrus.Entry) *Context {
	return &Context{
		Context: ctx,
		Log:     log,
	}
}

// WithCancel is context.WithCancel; the logger is inherited from parent.
func WithCancel(parent *Context) (*Context, context.CancelFunc) {
	c, cancel := context.WithCancel(parent.Context)
	return New(c, parent.Log), cancel
}

// WithLogField returns a copy of parent whose logger has the given field added.
func WithLogField(parent *Context, key string, val interface{}) *Context {
	return New(parent.Context, parent.Log.WithField(key, val))
}

// ErrGroup is errgroup.WithContext for a Context: the returned Context is cancelled as soon as any function
// started by the group returns an error.
func ErrGroup(ctx *Context) (*errgroup.Group, *Context) {
	group, goctx := errgroup.WithContext(ctx)
	return group, New(goctx, ctx.Log)
}
