/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
)

// DefaultStream is the stream history records are added to when none is
// configured.
const DefaultStream = "crond:history"

// XAdder is the subset of the redis client used by the sink. It is satisfied
// by redis.UniversalClient.
type XAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Options are the options for the redis history sink.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Client is the redis client.
	Client XAdder

	// Stream is the stream key. Defaults to DefaultStream.
	Stream string

	// MaxLen caps the stream length approximately. Zero means unbounded.
	MaxLen int64

	// Encoder renders status tokens.
	Encoder history.Encoder
}

// Redis adds each history record as an entry of a redis stream. Stream IDs
// are assigned by redis and increase monotonically, preserving append order.
type Redis struct {
	log    logr.Logger
	client XAdder
	stream string
	maxLen int64
	enc    history.Encoder
}

func New(opts Options) (*Redis, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}

	stream := opts.Stream
	if len(stream) == 0 {
		stream = DefaultStream
	}

	return &Redis{
		log:    opts.Log.WithName("history-redis"),
		client: opts.Client,
		stream: stream,
		maxLen: opts.MaxLen,
		enc:    opts.Encoder,
	}, nil
}

func (r *Redis) Append(ctx context.Context, entry api.HistoryEntry) error {
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: []any{
			"name", entry.JobName,
			"timestamp", strconv.FormatInt(entry.FiredAt.UnixMilli(), 10),
			"status", r.enc.Status(entry.Status),
			"message", entry.Message,
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to add history record to stream %q: %w", r.stream, err)
	}

	r.log.V(1).Info("Added history record", "stream", r.stream, "id", id, "job", entry.JobName)

	return nil
}

// Dial returns a redis client for the given URL, for example
// redis://localhost:6379/0.
func Dial(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
