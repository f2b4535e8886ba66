// Package monitor holds the tasks that watch a running mission.
package monitor

import (
	"context"
	"fmt"
	"iter"

	"drone-dispatch/internal/mission"
)

type ProgressSource interface {
	SubscribeProgress(ctx context.Context) (<-chan mission.ProgressSample, error)
}

// ProgressMonitor reports every progress sample until it is cancelled. It
// has no end condition of its own.
type ProgressMonitor struct {
	Source ProgressSource
	Report func(mission.ProgressSample)
}

// Samples subscribes on first iteration. The sequence ends when ctx is
// done or the consumer stops; a closed upstream just waits for ctx.
func (m *ProgressMonitor) Samples(ctx context.Context) iter.Seq2[mission.ProgressSample, error] {
	return func(yield func(mission.ProgressSample, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, err := m.Source.SubscribeProgress(ctx)
		if err != nil {
			yield(mission.ProgressSample{}, err)
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-ch:
				if !ok {
					ch = nil
					continue
				}
				if ctx.Err() != nil {
					return
				}
				if !yield(s, nil) {
					return
				}
			}
		}
	}
}

// Run returns nil once ctx is cancelled.
func (m *ProgressMonitor) Run(ctx context.Context) error {
	for s, err := range m.Samples(ctx) {
		if err != nil {
			return fmt.Errorf("subscribe progress: %w", err)
		}
		if m.Report != nil {
			m.Report(s)
		}
	}
	return nil
}
