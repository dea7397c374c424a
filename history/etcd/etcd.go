/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package etcd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
	"github.com/diagridio/go-shell-cron/internal/client"
	"github.com/diagridio/go-shell-cron/internal/garbage"
	"github.com/diagridio/go-shell-cron/internal/key"
)

// Options are the options for the etcd history sink.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Client is the etcd client used to write records.
	Client client.Interface

	// Key is the key layout of history records.
	Key *key.Key

	// Encoder renders records.
	Encoder history.Encoder

	// Retain is the number of most recent records kept. Older records are
	// handed to Collector for deletion. Zero keeps every record.
	Retain uint64

	// Collector deletes expired records. Required when Retain is set.
	Collector garbage.Interface
}

// ETCD writes each history record to its own key, named by a sequence number
// so that a prefix range returns records in append order. Keys are only ever
// created, never overwritten.
type ETCD struct {
	log    logr.Logger
	client client.Interface
	key    *key.Key
	enc    history.Encoder

	retain    uint64
	collector garbage.Interface

	lock sync.Mutex
	seq  uint64
}

// New returns a sink which continues the sequence after the last record
// present under the key namespace.
func New(ctx context.Context, opts Options) (*ETCD, error) {
	if opts.Retain > 0 && opts.Collector == nil {
		return nil, errors.New("collector is required when retaining a bounded history")
	}

	e := &ETCD{
		log:       opts.Log.WithName("history-etcd"),
		client:    opts.Client,
		key:       opts.Key,
		enc:       opts.Encoder,
		retain:    opts.Retain,
		collector: opts.Collector,
	}

	resp, err := e.client.Get(ctx, e.key.HistoryNamespace(),
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortDescend),
		clientv3.WithLimit(1),
		clientv3.WithKeysOnly(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read last history key: %w", err)
	}

	for _, kv := range resp.Kvs {
		seq, err := e.key.Sequence(kv.Key)
		if err != nil {
			return nil, err
		}
		if seq+1 > e.seq {
			e.seq = seq + 1
		}
	}

	if err = e.expireExisting(ctx); err != nil {
		return nil, err
	}

	e.log.Info("Appending history", "namespace", e.key.HistoryNamespace(), "sequence", e.seq, "retain", e.retain)

	return e, nil
}

// expireExisting queues records left by earlier runs which fall outside the
// retained window.
func (e *ETCD) expireExisting(ctx context.Context) error {
	if e.retain == 0 || e.seq <= e.retain {
		return nil
	}

	resp, err := e.client.Get(ctx, e.key.HistoryNamespace(),
		clientv3.WithPrefix(),
		clientv3.WithKeysOnly(),
	)
	if err != nil {
		return fmt.Errorf("failed to list history keys: %w", err)
	}

	for _, kv := range resp.Kvs {
		seq, err := e.key.Sequence(kv.Key)
		if err != nil {
			return err
		}
		if seq < e.seq-e.retain {
			e.collector.Push(string(kv.Key))
		}
	}

	return nil
}

func (e *ETCD) Append(ctx context.Context, entry api.HistoryEntry) error {
	line, err := e.enc.Line(entry)
	if err != nil {
		return err
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	for {
		k := e.key.HistoryKey(e.seq)
		ok, err := e.client.PutIfNotExists(ctx, k, line)
		if err != nil {
			return fmt.Errorf("failed to write history record %q: %w", k, err)
		}
		e.seq++
		if ok {
			if e.retain > 0 && e.seq > e.retain {
				e.collector.Push(e.key.HistoryKey(e.seq - 1 - e.retain))
			}
			return nil
		}
		e.log.Info("History key already exists, skipping", "key", k)
	}
}
