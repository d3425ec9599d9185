package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yt-niche-finder/internal/domain"
)

// RedisScanQueue реализует очередь задач сканирования на базе Redis lists.
type RedisScanQueue struct {
	client *redis.Client
	key    string
}

// NewRedisScanQueue создаёт очередь по указанному ключу.
func NewRedisScanQueue(client *redis.Client, key string) *RedisScanQueue {
	return &RedisScanQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisScanQueue) Enqueue(ctx context.Context, job domain.ScanJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
// Ack(false) возвращает задачу в хвост очереди для повторной доставки.
func (q *RedisScanQueue) Receive(ctx context.Context) (domain.ScanJob, domain.ScanAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ScanJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.ScanJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.ScanJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.ScanJob{}, nil, errors.New("redis queue: unexpected response")
		}
		payload := []byte(res[1])
		var job domain.ScanJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return domain.ScanJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.LPush(context.Background(), q.key, payload).Err()
		}
		return job, ack, nil
	}
}
