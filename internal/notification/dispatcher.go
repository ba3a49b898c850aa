package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDispatchFailure = errors.New("notification dispatch failed")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Dispatcher delivers a single message. It makes one attempt; callers
// decide what to do with the error.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

type DispatcherFunc func(ctx context.Context, msg Message) error

func (f DispatcherFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type timeoutDispatcher struct {
	next    Dispatcher
	timeout time.Duration
}

// WithTimeout bounds every Send by timeout. Any failure, including the
// deadline, comes back wrapped in ErrDispatchFailure.
func WithTimeout(next Dispatcher, timeout time.Duration) Dispatcher {
	return &timeoutDispatcher{next: next, timeout: timeout}
}

func (d *timeoutDispatcher) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.next.Send(ctx, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDispatchFailure, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: gave up after %s: %w", ErrDispatchFailure, d.timeout, ctx.Err())
	}
}

type fanout []Dispatcher

// Fanout sends to every dispatcher and joins their errors.
func Fanout(dispatchers ...Dispatcher) Dispatcher {
	return fanout(dispatchers)
}

func (f fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, d := range f {
		if err := d.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
