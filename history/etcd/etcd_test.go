/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package etcd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
	"github.com/diagridio/go-shell-cron/internal/client"
	"github.com/diagridio/go-shell-cron/internal/client/fake"
	garbagefake "github.com/diagridio/go-shell-cron/internal/garbage/fake"
	"github.com/diagridio/go-shell-cron/internal/key"
	"github.com/diagridio/go-shell-cron/internal/tests"
)

func newKey(t *testing.T) *key.Key {
	t.Helper()
	k, err := key.New(key.Options{Namespace: "crond", ID: "host"})
	require.NoError(t, err)
	return k
}

func entry(name string) api.HistoryEntry {
	return api.HistoryEntry{
		JobName: name,
		FiredAt: time.Date(2024, 5, 5, 4, 5, 0, 0, time.UTC),
		Status:  api.StatusSuccess,
	}
}

func Test_ETCD(t *testing.T) {
	t.Parallel()

	t.Run("records are written under sequential keys", func(t *testing.T) {
		t.Parallel()

		f := fake.New()
		e, err := New(context.Background(), Options{Log: logr.Discard(), Client: f, Key: newKey(t)})
		require.NoError(t, err)

		require.NoError(t, e.Append(context.Background(), entry("a")))
		require.NoError(t, e.Append(context.Background(), entry("b")))

		resp, err := f.Get(context.Background(), "crond/history/host/", clientv3.WithPrefix())
		require.NoError(t, err)
		require.Len(t, resp.Kvs, 2)
		assert.Equal(t, "crond/history/host/00000000000000000000", string(resp.Kvs[0].Key))
		assert.Equal(t, "a,1714881900000,SUCCESS,", string(resp.Kvs[0].Value))
		assert.Equal(t, "crond/history/host/00000000000000000001", string(resp.Kvs[1].Key))
	})

	t.Run("sequence continues after existing records", func(t *testing.T) {
		t.Parallel()

		f := fake.New()
		_, err := f.Put(context.Background(), "crond/history/host/00000000000000000007", "old")
		require.NoError(t, err)
		_, err = f.Put(context.Background(), "crond/history/host/00000000000000000003", "older")
		require.NoError(t, err)

		e, err := New(context.Background(), Options{Log: logr.Discard(), Client: f, Key: newKey(t), Encoder: history.Encoder{Lowercase: true}})
		require.NoError(t, err)
		require.NoError(t, e.Append(context.Background(), entry("a")))

		resp, err := f.Get(context.Background(), "crond/history/host/00000000000000000008")
		require.NoError(t, err)
		require.Len(t, resp.Kvs, 1)
		assert.Equal(t, "a,1714881900000,success,", string(resp.Kvs[0].Value))
	})

	t.Run("records outside the retained window are collected", func(t *testing.T) {
		t.Parallel()

		gc := garbagefake.New()
		e, err := New(context.Background(), Options{
			Log: logr.Discard(), Client: fake.New(), Key: newKey(t),
			Retain: 2, Collector: gc,
		})
		require.NoError(t, err)

		for _, name := range []string{"a", "b", "c", "d"} {
			require.NoError(t, e.Append(context.Background(), entry(name)))
		}
		assert.Equal(t, []string{
			"crond/history/host/00000000000000000000",
			"crond/history/host/00000000000000000001",
		}, gc.Keys())
	})

	t.Run("records from earlier runs outside the window are collected", func(t *testing.T) {
		t.Parallel()

		f := fake.New()
		for i := 0; i < 5; i++ {
			_, err := f.Put(context.Background(), newKey(t).HistoryKey(uint64(i)), "old")
			require.NoError(t, err)
		}

		gc := garbagefake.New()
		_, err := New(context.Background(), Options{
			Log: logr.Discard(), Client: f, Key: newKey(t),
			Retain: 2, Collector: gc,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"crond/history/host/00000000000000000000",
			"crond/history/host/00000000000000000001",
			"crond/history/host/00000000000000000002",
		}, gc.Keys())
	})

	t.Run("retention requires a collector", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), Options{Log: logr.Discard(), Client: fake.New(), Key: newKey(t), Retain: 1})
		require.Error(t, err)
	})

	t.Run("existing keys are never overwritten", func(t *testing.T) {
		t.Parallel()

		f := fake.New()
		e, err := New(context.Background(), Options{Log: logr.Discard(), Client: f, Key: newKey(t)})
		require.NoError(t, err)

		_, err = f.Put(context.Background(), "crond/history/host/00000000000000000000", "foreign")
		require.NoError(t, err)

		require.NoError(t, e.Append(context.Background(), entry("a")))
		assert.Equal(t, []string{"foreign", "a,1714881900000,SUCCESS,"}, f.Values())
	})

	t.Run("client errors are returned", func(t *testing.T) {
		t.Parallel()

		f := fake.New()
		e, err := New(context.Background(), Options{Log: logr.Discard(), Client: f, Key: newKey(t)})
		require.NoError(t, err)

		f.WithError(errors.New("unavailable"))
		require.Error(t, e.Append(context.Background(), entry("a")))

		_, err = New(context.Background(), Options{Log: logr.Discard(), Client: f, Key: newKey(t)})
		require.Error(t, err)
	})

	t.Run("embedded etcd", func(t *testing.T) {
		t.Parallel()

		etcd := tests.EmbeddedETCD(t)
		c := client.New(client.Options{KV: etcd, Log: logr.Discard()})

		e, err := New(context.Background(), Options{Log: logr.Discard(), Client: c, Key: newKey(t)})
		require.NoError(t, err)
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, e.Append(context.Background(), entry(name)))
		}

		e, err = New(context.Background(), Options{Log: logr.Discard(), Client: c, Key: newKey(t)})
		require.NoError(t, err)
		require.NoError(t, e.Append(context.Background(), entry("d")))

		lines := tests.Values(t, etcd, "crond/history/host/")
		require.Len(t, lines, 4)

		var names []string
		for _, line := range lines {
			got, err := history.ParseLine(line)
			require.NoError(t, err)
			names = append(names, got.JobName)
		}
		assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	})
}
