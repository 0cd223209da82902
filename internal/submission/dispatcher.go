package submission

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/logger"
	"hunter_trials/internal/metrics"
)

type Sink interface {
	Submit(ctx context.Context, r domain.SessionResult) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, r domain.SessionResult) error

func (f SinkFunc) Submit(ctx context.Context, r domain.SessionResult) error { return f(ctx, r) }

type namedSink struct {
	name string
	sink Sink
}

// Dispatcher delivers one result to every registered sink concurrently.
// A failing sink does not stop the others.
type Dispatcher struct {
	sinks []namedSink
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Add(name string, s Sink) *Dispatcher {
	if s != nil {
		d.sinks = append(d.sinks, namedSink{name: name, sink: s})
	}
	return d
}

func (d *Dispatcher) Len() int { return len(d.sinks) }

// Submit returns the joined errors of the failed sinks.
func (d *Dispatcher) Submit(ctx context.Context, r domain.SessionResult) error {
	errs := make([]error, len(d.sinks))

	var g errgroup.Group
	for i, s := range d.sinks {
		g.Go(func() error {
			if err := s.sink.Submit(ctx, r); err != nil {
				metrics.Submissions.WithLabelValues(s.name, "error").Inc()
				errs[i] = fmt.Errorf("%s: %w", s.name, err)
				return nil
			}
			metrics.Submissions.WithLabelValues(s.name, "ok").Inc()
			logger.Debug("result delivered", "sink", s.name, "session_id", r.SessionID)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
