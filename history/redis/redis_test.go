/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
)

type fakeClient struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("1714881900000-0")
	}
	return cmd
}

func Test_Redis(t *testing.T) {
	t.Parallel()

	firedAt := time.Date(2024, 5, 5, 4, 5, 0, 0, time.UTC)

	t.Run("entries are added to the stream", func(t *testing.T) {
		t.Parallel()

		c := new(fakeClient)
		r, err := New(Options{Log: logr.Discard(), Client: c, Encoder: history.Encoder{Lowercase: true}})
		require.NoError(t, err)

		require.NoError(t, r.Append(context.Background(), api.HistoryEntry{
			JobName: "backup", FiredAt: firedAt, Status: api.StatusError, Message: "no space",
		}))

		require.Len(t, c.args, 1)
		assert.Equal(t, &redis.XAddArgs{
			Stream: DefaultStream,
			Values: []any{
				"name", "backup",
				"timestamp", "1714881900000",
				"status", "error",
				"message", "no space",
			},
		}, c.args[0])
	})

	t.Run("max length trims approximately", func(t *testing.T) {
		t.Parallel()

		c := new(fakeClient)
		r, err := New(Options{Log: logr.Discard(), Client: c, Stream: "jobs", MaxLen: 1000})
		require.NoError(t, err)
		require.NoError(t, r.Append(context.Background(), api.HistoryEntry{JobName: "a", FiredAt: firedAt}))

		require.Len(t, c.args, 1)
		assert.Equal(t, "jobs", c.args[0].Stream)
		assert.Equal(t, int64(1000), c.args[0].MaxLen)
		assert.True(t, c.args[0].Approx)
	})

	t.Run("client errors are returned", func(t *testing.T) {
		t.Parallel()

		r, err := New(Options{Log: logr.Discard(), Client: &fakeClient{err: errors.New("down")}})
		require.NoError(t, err)
		require.Error(t, r.Append(context.Background(), api.HistoryEntry{JobName: "a"}))
	})

	t.Run("client is required", func(t *testing.T) {
		t.Parallel()
		_, err := New(Options{Log: logr.Discard()})
		require.Error(t, err)
	})

	t.Run("dial parses the url", func(t *testing.T) {
		t.Parallel()

		c, err := Dial("redis://localhost:6379/2")
		require.NoError(t, err)
		require.NoError(t, c.Close())

		_, err = Dial("http://localhost")
		require.Error(t, err)
	})
}
