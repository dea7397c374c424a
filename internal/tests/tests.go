/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package tests

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
)

// EmbeddedETCD starts a single member etcd server on a random local port and
// returns a client connected to it. Both are closed when the test ends.
func EmbeddedETCD(t *testing.T) *clientv3.Client {
	t.Helper()

	cfg := embed.NewConfig()
	cfg.LogLevel = "error"
	cfg.Dir = t.TempDir()
	lurl, err := url.Parse("http://127.0.0.1:0")
	require.NoError(t, err)
	cfg.ListenPeerUrls = []url.URL{*lurl}
	cfg.ListenClientUrls = []url.URL{*lurl}

	etcd, err := embed.StartEtcd(cfg)
	require.NoError(t, err)
	t.Cleanup(etcd.Close)

	select {
	case <-etcd.Server.ReadyNotify():
	case <-time.After(5 * time.Second):
		t.Fatal("etcd took too long to start")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{etcd.Clients[0].Addr().String()},
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// Values returns the values stored under prefix in key order.
func Values(t *testing.T, c clientv3.KV, prefix string) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	require.NoError(t, err)

	vals := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		vals = append(vals, string(kv.Value))
	}
	return vals
}
