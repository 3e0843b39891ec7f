package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"tripsync/internal/metrics"
)

// Sweeper periodically evicts members whose heartbeats went quiet and
// reaps rooms that stayed empty past the grace period.
type Sweeper struct {
	reg        *Registry
	interval   time.Duration
	staleAfter time.Duration
	emptyAfter time.Duration
	now        func() time.Time
}

func NewSweeper(reg *Registry, interval, staleAfter, emptyAfter time.Duration) *Sweeper {
	return &Sweeper{
		reg:        reg,
		interval:   interval,
		staleAfter: staleAfter,
		emptyAfter: emptyAfter,
		now:        time.Now,
	}
}

// Run blocks until ctx is canceled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Str("module", "app.sweeper").Dur("interval", s.interval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one eviction and reap pass over every room.
func (s *Sweeper) Sweep() {
	now := s.now()
	cutoff := now.Add(-s.staleAfter)

	for _, room := range s.reg.Rooms() {
		for _, m := range room.EvictStale(cutoff) {
			metrics.MembersEvicted.Inc()
			log.Info().Str("module", "app.sweeper").Str("room", string(room.Code())).
				Str("member", string(m.ID)).Str("nickname", m.Nickname).
				Time("last_heartbeat", m.LastHeartbeat).Msg("member evicted")
		}

		if room.MemberCount() > 0 {
			continue
		}
		if empty := room.EmptySince(); !empty.IsZero() && now.Sub(empty) > s.emptyAfter {
			if s.reg.DeleteRoom(string(room.Code())) {
				log.Info().Str("module", "app.sweeper").Str("room", string(room.Code())).
					Time("empty_since", empty).Msg("empty room reaped")
			}
		}
	}
}
