package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"usersvc/api/internal/service"
)

// StatsKey is the cache key holding the latest stats snapshot.
const StatsKey = "admin:user_stats"

const statsTTL = 2 * time.Hour

// Scheduler periodically refreshes the user-stats snapshot consumed by
// the admin dashboard.
type Scheduler struct {
	cron  *cron.Cron
	users *service.UserService
	cache *redis.Client
	log   zerolog.Logger
}

func NewScheduler(users *service.UserService, cache *redis.Client, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		users: users,
		cache: cache,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.cache == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 * * * *", s.refreshStats); err != nil { // hourly
		return err
	}

	s.cron.Start()
	go s.refreshStats()
	return nil
}

// Stop waits for any running job to finish, up to a short grace
// period.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) refreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := s.users.CollectStats(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("collect user stats failed")
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal user stats failed")
		return
	}

	if err := s.cache.Set(ctx, StatsKey, payload, statsTTL).Err(); err != nil {
		s.log.Error().Err(err).Msg("cache user stats failed")
		return
	}

	s.log.Debug().Int64("total", stats.Total).Msg("user stats refreshed")
}
