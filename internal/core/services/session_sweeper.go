package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSweeper evicts idle sessions on a cron schedule
type SessionSweeper struct {
	registry *SessionRegistry
	idle     time.Duration
	cron     *cron.Cron
}

// NewSessionSweeper schedules registry sweeps with a cron spec such as "@every 1m"
func NewSessionSweeper(registry *SessionRegistry, spec string, idle time.Duration) (*SessionSweeper, error) {
	s := &SessionSweeper{
		registry: registry,
		idle:     idle,
		cron:     cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start launches the scheduler
func (s *SessionSweeper) Start() {
	s.cron.Start()
	log.Println("🚀 SessionSweeper started")
}

// Stop stops the scheduler and waits for a running sweep
func (s *SessionSweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 SessionSweeper stopped")
}

func (s *SessionSweeper) sweep() {
	if removed := s.registry.Sweep(s.idle); removed > 0 {
		log.Printf("🧹 Evicted %d idle session(s), %d remaining", removed, s.registry.Len())
	}
}
