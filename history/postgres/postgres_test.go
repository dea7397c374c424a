/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
)

type query struct {
	Ctx context.Context
	SQL string
	Arg []any
}

type fakeConn struct {
	queries   []query
	queryErrs []error
}

func (c *fakeConn) Exec(ctx context.Context, sql string, a ...any) (pgconn.CommandTag, error) {
	var err error
	if len(c.queryErrs) > len(c.queries) {
		err = c.queryErrs[len(c.queries)]
	}
	c.queries = append(c.queries, query{ctx, sql, a})
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

var opts = []cmp.Option{
	cmpopts.IgnoreInterfaces(struct{ context.Context }{}),
	cmpopts.EquateEmpty(),
}

func Test_Postgres(t *testing.T) {
	t.Parallel()

	firedAt := time.Date(2024, 5, 5, 4, 5, 0, 0, time.UTC)

	t.Run("table is created and records are inserted", func(t *testing.T) {
		t.Parallel()

		conn := new(fakeConn)
		p, err := New(context.Background(), Options{Log: logr.Discard(), Conn: conn, Encoder: history.Encoder{Lowercase: true}})
		require.NoError(t, err)

		require.NoError(t, p.Append(context.Background(), api.HistoryEntry{
			JobName: "backup", FiredAt: firedAt, Status: api.StatusSuccess,
		}))
		require.NoError(t, p.Append(context.Background(), api.HistoryEntry{
			JobName: "backup", FiredAt: firedAt.Add(time.Minute), Status: api.StatusError, Message: "boom",
		}))

		want := []query{
			{SQL: `CREATE TABLE IF NOT EXISTS "crond_history" (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	fired_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL
)`},
			{
				SQL: `INSERT INTO "crond_history" (name, fired_at, status, message) VALUES ($1, $2, $3, $4)`,
				Arg: []any{"backup", firedAt, "success", ""},
			},
			{
				SQL: `INSERT INTO "crond_history" (name, fired_at, status, message) VALUES ($1, $2, $3, $4)`,
				Arg: []any{"backup", firedAt.Add(time.Minute), "error", "boom"},
			},
		}
		if diff := cmp.Diff(want, conn.queries, opts...); diff != "" {
			t.Errorf("queries -want +got\n%s", diff)
		}
	})

	t.Run("table name is quoted", func(t *testing.T) {
		t.Parallel()

		conn := new(fakeConn)
		p, err := New(context.Background(), Options{Log: logr.Discard(), Conn: conn, Table: `odd"name`})
		require.NoError(t, err)
		require.NoError(t, p.Append(context.Background(), api.HistoryEntry{JobName: "a", FiredAt: firedAt}))
		require.Len(t, conn.queries, 2)
		assert.Contains(t, conn.queries[1].SQL, `INSERT INTO "odd""name"`)
	})

	t.Run("create failure is returned", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{queryErrs: []error{errors.New("denied")}}
		_, err := New(context.Background(), Options{Log: logr.Discard(), Conn: conn})
		require.Error(t, err)
	})

	t.Run("insert failure is returned", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{queryErrs: []error{nil, errors.New("denied")}}
		p, err := New(context.Background(), Options{Log: logr.Discard(), Conn: conn})
		require.NoError(t, err)
		require.Error(t, p.Append(context.Background(), api.HistoryEntry{JobName: "a", FiredAt: firedAt}))
	})

	t.Run("connection is required", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), Options{Log: logr.Discard()})
		require.Error(t, err)
	})
}
