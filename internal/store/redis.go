package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teacherflow/api/internal/model"
)

const jobTTL = 24 * time.Hour

// RedisStore keeps job records in Redis under job:<id> with a 24h TTL.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	return s.save(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, job *model.Job) error {
	return s.save(ctx, job)
}

func (s *RedisStore) save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}
