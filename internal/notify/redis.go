package notify

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const releaseTimeout = 2 * time.Second

// Redis publishes events on a pub/sub channel. Low-stock alerts are
// de-duplicated per item with a SET NX marker that lives for dedupeTTL or
// until the item is restocked.
type Redis struct {
	client    *redis.Client
	channel   string
	dedupeTTL time.Duration
}

func NewRedis(addr string, password string, db int, channel string, dedupeTTL time.Duration) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if channel == "" {
		channel = "laundry:events"
	}
	if dedupeTTL <= 0 {
		dedupeTTL = 12 * time.Hour
	}
	return &Redis{client: client, channel: channel, dedupeTTL: dedupeTTL}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventLowStock:
		fresh, err := r.client.SetNX(ctx, alertKey(event.EntityID), event.At.Unix(), r.dedupeTTL).Result()
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
	case EventLowStockResolved:
		if err := r.client.Del(ctx, alertKey(event.EntityID)).Err(); err != nil {
			return err
		}
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		if event.Type == EventLowStock {
			// The alert never went out; drop the marker so the next one can.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			_ = r.client.Del(releaseCtx, alertKey(event.EntityID)).Err()
		}
		return err
	}
	return nil
}

func alertKey(itemID string) string {
	return "laundry:alert:low_stock:" + itemID
}
