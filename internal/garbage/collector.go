/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package garbage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/diagridio/go-shell-cron/internal/client"
)

// Options is the configuration for the garbage collector.
type Options struct {
	// Log is the logger for the collector to use.
	Log logr.Logger

	// Client is the etcd client used to delete keys.
	Client client.Interface

	// Clock defaults to the real clock.
	Clock clock.Clock

	// CollectionInterval is the interval at which queued keys are deleted.
	// When nil, defaults to 180 seconds.
	CollectionInterval *time.Duration
}

// Interface queues etcd keys for deletion so that expired history records are
// removed in bulk, away from the scheduler loop.
type Interface interface {
	// Run collects every interval, when the queue grows past its limit, and
	// once more when ctx is cancelled.
	Run(ctx context.Context) error

	// Push queues a key for deletion.
	Push(key string)
}

type collector struct {
	log                logr.Logger
	client             client.Interface
	clock              clock.Clock
	collectionInterval time.Duration
	garbageLimit       int

	lock     sync.Mutex
	keys     []string
	soonerCh chan struct{}
	running  atomic.Bool
}

// garbageLimit is the number of queued keys which triggers a collection
// before the interval elapses.
const garbageLimit = 10000

func New(opts Options) (Interface, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}

	collectionInterval := 180 * time.Second
	if opts.CollectionInterval != nil {
		if *opts.CollectionInterval <= 0 {
			return nil, errors.New("collection interval must be greater than 0")
		}
		collectionInterval = *opts.CollectionInterval
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &collector{
		log:                opts.Log.WithName("garbage-collector"),
		client:             opts.Client,
		clock:              clk,
		collectionInterval: collectionInterval,
		garbageLimit:       garbageLimit,
		soonerCh:           make(chan struct{}, 1),
	}, nil
}

func (c *collector) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("garbage collector is already running")
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Shutting down garbage collector")
			// The run context is gone, so the final collection gets its own.
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			c.collect(fctx)
			cancel()
			return nil

		case <-c.soonerCh:
			c.collect(ctx)

		case <-c.clock.After(c.collectionInterval):
			c.collect(ctx)
		}
	}
}

func (c *collector) Push(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.keys = append(c.keys, key)

	if len(c.keys) >= c.garbageLimit {
		select {
		case c.soonerCh <- struct{}{}:
		default:
		}
	}
}

// collect deletes queued keys oldest first. Keys which fail to delete stay
// queued for the next collection.
func (c *collector) collect(ctx context.Context) {
	c.lock.Lock()
	keys := c.keys
	c.keys = nil
	c.lock.Unlock()

	if len(keys) == 0 {
		c.log.V(3).Info("No keys to collect, skipping collection")
		return
	}

	c.log.Info("Collecting garbage", "keys", len(keys))

	for i, key := range keys {
		if _, err := c.client.Delete(ctx, key); err != nil {
			c.log.Error(err, "Failed to delete key, retrying next collection", "key", key)
			c.lock.Lock()
			c.keys = append(keys[i:len(keys):len(keys)], c.keys...)
			c.lock.Unlock()
			return
		}
	}

	c.log.Info("Garbage collection complete", "keys", len(keys))
}
