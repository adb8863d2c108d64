// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package services

import "context"

// Runner matches *asyncjob.System's Run/Shutdown pair.
type Runner interface {
	Run(ctx context.Context) error
	Shutdown()
}

// JobSystemService adapts the async job system's worker loop to
// suture.Service.
type JobSystemService struct {
	system Runner
}

// NewJobSystemService wraps an async job system as a supervised service.
func NewJobSystemService(system Runner) *JobSystemService {
	return &JobSystemService{system: system}
}

// Serve implements suture.Service. On context cancellation it calls
// Shutdown, which queues a halt job ahead of anything still queued, so
// Run returns promptly without running the remaining jobs.
func (s *JobSystemService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.system.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.system.Shutdown()
		<-errCh
		return nil
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *JobSystemService) String() string {
	return "asyncjob-system"
}
