package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// sleepPollInterval is how often the timer is checked against the clock.
const sleepPollInterval = time.Second

// SleepTimerService pauses playback once a local countdown expires. The
// timer is not persisted and is not part of any sync session state.
type SleepTimerService struct {
	mu     sync.Mutex
	player *PlayerService
	clock  ports.Clock
	expiry *time.Time
}

// NewSleepTimerService creates a new SleepTimerService.
func NewSleepTimerService(player *PlayerService, clock ports.Clock) *SleepTimerService {
	return &SleepTimerService{
		player: player,
		clock:  clock,
	}
}

// Set arms the timer to expire the given number of minutes from now,
// replacing any previous timer.
func (s *SleepTimerService) Set(minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}

	expiry := s.clock.Now().Add(time.Duration(minutes) * time.Minute)

	s.mu.Lock()
	s.expiry = &expiry
	s.mu.Unlock()

	slog.Info("sleep timer set", "minutes", minutes)
	return nil
}

// Clear cancels the timer immediately.
func (s *SleepTimerService) Clear() {
	s.mu.Lock()
	s.expiry = nil
	s.mu.Unlock()
}

// Expiry returns the absolute expiry time, or nil when no timer is set.
func (s *SleepTimerService) Expiry() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiry == nil {
		return nil
	}
	expiry := *s.expiry
	return &expiry
}

// Run polls the timer every second until ctx is done.
func (s *SleepTimerService) Run(ctx context.Context) {
	ticker := time.NewTicker(sleepPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkExpiry(ctx)
		}
	}
}

// checkExpiry pauses playback and clears the timer once the expiry has
// passed. The poll is only live while playing.
func (s *SleepTimerService) checkExpiry(ctx context.Context) {
	s.mu.Lock()
	expiry := s.expiry
	s.mu.Unlock()

	if expiry == nil || !s.player.IsPlaying() {
		return
	}
	if s.clock.Now().Before(*expiry) {
		return
	}

	slog.Info("sleep timer expired, pausing playback")
	if err := s.player.Pause(ctx, domain.OriginLocal); err != nil {
		slog.Warn("failed to pause on sleep timer expiry", "error", err)
	}

	s.mu.Lock()
	s.expiry = nil
	s.mu.Unlock()
}
