// Package progress 在 redis 中保存每次求解最近一次的进度采样，供接口轮询
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

var ErrNoProgress = errors.New("该求解任务暂无进度")

type Store struct {
	rdb        redis.Cmdable
	expiration time.Duration
}

func NewStore(rdb redis.Cmdable, expiration time.Duration) *Store {
	return &Store{
		rdb:        rdb,
		expiration: expiration,
	}
}

func key(runID int64) string {
	return fmt.Sprintf("run_%d_progress", runID)
}

func (s *Store) Save(ctx context.Context, runID int64, sample domain.RunSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, key(runID), data, s.expiration).Err()
}

func (s *Store) Latest(ctx context.Context, runID int64) (*domain.RunSample, error) {
	data, err := s.rdb.Get(ctx, key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	sample := &domain.RunSample{}
	if err := json.Unmarshal(data, sample); err != nil {
		return nil, fmt.Errorf("解析进度失败: %w", err)
	}

	return sample, nil
}
