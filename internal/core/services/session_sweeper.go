package services

import (
	"context"
	"log"
	"time"

	"aegis-identity/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// SessionSweeper periodically flags expired session rows as invalid.
// Expiry is already enforced lazily at validation time, so the sweep is
// pure hygiene: it flips is_valid on rows past their expires_at and
// never deletes anything.
type SessionSweeper struct {
	sessionRepo repositories.SessionRepository
	cron        *cron.Cron
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(sessionRepo repositories.SessionRepository) *SessionSweeper {
	return &SessionSweeper{
		sessionRepo: sessionRepo,
		cron:        cron.New(),
	}
}

// Start schedules the sweep every 15 minutes
func (s *SessionSweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 15m", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("🚀 SessionSweeper started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *SessionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 SessionSweeper stopped")
}

func (s *SessionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := s.sessionRepo.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("❌ Session sweep error: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("🗑️ Swept %d expired sessions", swept)
	}
}
