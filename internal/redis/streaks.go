package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StreakCounter tracks consecutive days with at least one mosque visit.
// Bumped once per day on the first Enter event.
type StreakCounter struct {
	rdb *goredis.Client
}

func NewStreakCounter(rdb *goredis.Client) *StreakCounter {
	return &StreakCounter{rdb: rdb}
}

func streakKey(userID string) string     { return fmt.Sprintf("streak:%s", userID) }
func streakLastKey(userID string) string { return fmt.Sprintf("streak:%s:last", userID) }

// Bump records a visit day. Same-day repeats are no-ops; a gap of more than
// one day resets the streak to 1.
func (s *StreakCounter) Bump(ctx context.Context, userID string, day time.Time) {
	today := day.Format("2006-01-02")
	yesterday := day.AddDate(0, 0, -1).Format("2006-01-02")

	last, err := s.rdb.Get(ctx, streakLastKey(userID)).Result()
	if err != nil && err != goredis.Nil {
		log.Warn().Err(err).Str("user", userID).Msg("streak read failed")
		return
	}
	if last == today {
		return
	}

	pipe := s.rdb.TxPipeline()
	if last == yesterday {
		pipe.Incr(ctx, streakKey(userID))
	} else {
		pipe.Set(ctx, streakKey(userID), 1, 0)
	}
	pipe.Set(ctx, streakLastKey(userID), today, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("streak bump failed")
	}
}

// Current reports the streak length, zero when absent.
func (s *StreakCounter) Current(ctx context.Context, userID string) int {
	n, err := s.rdb.Get(ctx, streakKey(userID)).Int()
	if err != nil {
		return 0
	}
	return n
}
