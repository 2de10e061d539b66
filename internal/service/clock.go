package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const clockKey = "cadastre:block"

// ClockService is the environment's logical block counter, backed by redis
// so it stays monotonic across daemon restarts.
type ClockService struct {
	rdb *redis.Client
}

func NewClockService(redisClient *redis.Client) *ClockService {
	return &ClockService{
		rdb: redisClient,
	}
}

func (s *ClockService) Now(ctx context.Context) (int64, error) {
	value, err := s.rdb.Get(ctx, clockKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "ClockService.Now")
	}
	return value, nil
}

func (s *ClockService) Advance(ctx context.Context) (int64, error) {
	value, err := s.rdb.Incr(ctx, clockKey).Result()
	if err != nil {
		return 0, errors.Wrap(err, "ClockService.Advance")
	}
	return value, nil
}
