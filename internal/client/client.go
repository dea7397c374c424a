/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package client

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	clientv3 "go.etcd.io/etcd/client/v3"
	"k8s.io/utils/clock"

	clienterrors "github.com/diagridio/go-shell-cron/internal/client/errors"
)

// Interface is the subset of etcd operations used by the history sink.
type Interface interface {
	Get(context.Context, string, ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(context.Context, string, string, ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(context.Context, string, ...clientv3.OpOption) (*clientv3.DeleteResponse, error)

	// PutIfNotExists writes val to key only if key has never been created.
	// Returns false if the key already exists.
	PutIfNotExists(context.Context, string, string, ...clientv3.OpOption) (bool, error)
}

type Options struct {
	// KV is the etcd KV API to wrap, typically a *clientv3.Client.
	KV clientv3.KV

	// Log is the logger to use for logging.
	Log logr.Logger

	// Clock is the clock used to wait between retries. Defaults to the real
	// clock.
	Clock clock.Clock

	// RequestTimeout bounds each individual request attempt. Defaults to 20
	// seconds.
	RequestTimeout time.Duration
}

type client struct {
	kv      clientv3.KV
	log     logr.Logger
	clock   clock.Clock
	timeout time.Duration
}

// New returns a client which retries requests that etcd rejected with a
// transient error, such as rate limiting or a leader change.
func New(opts Options) Interface {
	c := &client{
		kv:      opts.KV,
		log:     opts.Log.WithName("etcd-client"),
		clock:   opts.Clock,
		timeout: opts.RequestTimeout,
	}
	if c.clock == nil {
		c.clock = clock.RealClock{}
	}
	if c.timeout <= 0 {
		c.timeout = 20 * time.Second
	}
	return c
}

func (c *client) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	return genericPP[string, string, clientv3.OpOption, clientv3.PutResponse](ctx, c, c.kv.Put, key, val, opts...)
}

func (c *client) PutIfNotExists(ctx context.Context, key, val string, opts ...clientv3.OpOption) (bool, error) {
	var ok bool
	err := generic(ctx, c, func(ctx context.Context) error {
		tif := clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
		tthen := clientv3.OpPut(key, val, opts...)
		resp, err := c.kv.Txn(ctx).If(tif).Then(tthen).Commit()
		if err != nil {
			return err
		}
		ok = resp != nil && resp.Succeeded
		return nil
	})
	return ok, err
}

func (c *client) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	return genericP[string, clientv3.OpOption, clientv3.GetResponse](ctx, c, c.kv.Get, key, opts...)
}

func (c *client) Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	return genericP[string, clientv3.OpOption, clientv3.DeleteResponse](ctx, c, c.kv.Delete, key, opts...)
}

type genericPPFunc[T any, K any, O any, R any] func(context.Context, T, K, ...O) (*R, error)

func genericPP[T any, K any, O any, R any](ctx context.Context, c *client, op genericPPFunc[T, K, O, R], t T, k K, o ...O) (*R, error) {
	var r *R
	var err error
	return r, generic(ctx, c, func(ctx context.Context) error {
		r, err = op(ctx, t, k, o...)
		return err
	})
}

type genericPFunc[T any, O any, R any] func(context.Context, T, ...O) (*R, error)

func genericP[T any, O any, R any](ctx context.Context, c *client, op genericPFunc[T, O, R], t T, o ...O) (*R, error) {
	var r *R
	var err error
	return r, generic(ctx, c, func(ctx context.Context) error {
		r, err = op(ctx, t, o...)
		return err
	})
}

func generic(ctx context.Context, c *client, op func(context.Context) error) error {
	for {
		err := attempt(ctx, c.timeout, op)
		if err == nil {
			return nil
		}

		if !clienterrors.ShouldRetry(err) {
			return err
		}

		c.log.Error(err, "etcd client request failed with a transient error, waiting before retrying")

		select {
		case <-c.clock.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func attempt(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(ctx)
}
