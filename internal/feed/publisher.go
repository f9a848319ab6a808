package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/quoting"
)

// Publisher pushes live quoting snapshots into Redis: every snapshot onto a
// stream for consumers that want the full progression, and the latest one
// into a plain key for consumers that only render current state.
type Publisher struct {
	rdb     *redis.Client
	stream  string
	snapKey string
}

func NewPublisher(cfg config.RedisConfig) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	return &Publisher{rdb: rdb, stream: cfg.Stream, snapKey: cfg.SnapKey}
}

// PublishSnapshot writes one snapshot under the given request key (pair +
// amount identifier chosen by the caller).
func (p *Publisher) PublishSnapshot(ctx context.Context, reqKey string, snap quoting.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 1024,
		Approx: true,
		Values: map[string]interface{}{
			"req":  reqKey,
			"snap": string(b),
		},
	}).Err(); err != nil {
		return err
	}
	return p.rdb.Set(ctx, p.snapKey+":"+reqKey, b, 0).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
