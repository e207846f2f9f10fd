package approval

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically resolves approval gates whose expiry has passed,
// so a run doesn't wait forever on approvers who never act.
type Sweeper struct {
	service  *Service
	interval time.Duration
	done     chan struct{}
}

// NewSweeper creates a Sweeper that checks for expired gates every
// interval. A non-positive interval falls back to one minute.
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in its own goroutine until Stop is called.
func (s *Sweeper) Start() {
	go s.loop()
}

// Stop ends the sweep loop. Safe to call once; a second call panics on the
// closed channel, matching the rest of the codebase's single-owner
// shutdown pattern.
func (s *Sweeper) Stop() {
	close(s.done)
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-s.done:
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	pending, err := s.service.approvalRepo.FindExpiredPending(ctx)
	if err != nil {
		log.Printf("approval sweeper: failed to list expired gates: %v", err)
		return
	}
	for _, approval := range pending {
		s.service.resolveExpired(ctx, approval)
	}
}
