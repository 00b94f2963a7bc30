// Package rediscache caches computed week layouts in redis.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/schedule"
)

const keyPrefix = "metricampus:layout:"

// generationKey holds a counter bumped by Flush; week keys embed it so a flush orphans them all at once.
const generationKey = keyPrefix + "generation"

type layoutCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ schedule.LayoutCache = (*layoutCache)(nil) // interface compliance check

// NewClient connects to the redis server at conf.Cache.Address.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.Address,
		Password: conf.Cache.Password,
		DB:       conf.Cache.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewLayoutCache(client redis.Cmdable, ttl time.Duration) schedule.LayoutCache {
	return &layoutCache{client: client, ttl: ttl}
}

func weekKey(generation int64, filterKey string) string {
	return fmt.Sprintf("%sweek:%d:%s", keyPrefix, generation, filterKey)
}

func (c *layoutCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// GetWeek looks key up under the current generation. The returned token is that generation's key,
// so a week computed after this call is stored under it even if a Flush happens meanwhile.
func (c *layoutCache) GetWeek(ctx context.Context, key string) (schedule.WeekLayout, string, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return schedule.WeekLayout{}, "", false, errors.Wrap(err, "reading layout generation")
	}
	token := weekKey(gen, key)

	data, err := c.client.Get(ctx, token).Bytes()
	if err == redis.Nil {
		return schedule.WeekLayout{}, token, false, nil
	}
	if err != nil {
		return schedule.WeekLayout{}, token, false, errors.Wrap(err, "reading week layout")
	}

	var week schedule.WeekLayout
	if err = json.Unmarshal(data, &week); err != nil {
		return schedule.WeekLayout{}, token, false, errors.Wrap(err, "decoding week layout")
	}
	return week, token, true, nil
}

func (c *layoutCache) SetWeek(ctx context.Context, token string, week schedule.WeekLayout) error {
	if !strings.HasPrefix(token, keyPrefix+"week:") {
		return errors.Errorf("invalid layout token %q", token)
	}

	data, err := json.Marshal(week)
	if err != nil {
		return errors.Wrap(err, "encoding week layout")
	}
	if err = c.client.Set(ctx, token, data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "writing week layout")
	}
	return nil
}

func (c *layoutCache) Flush(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return errors.Wrap(err, "flushing layouts")
	}
	return nil
}
