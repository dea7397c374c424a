/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagridio/go-shell-cron/api"
)

func Test_Memory(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Append(context.Background(), api.HistoryEntry{JobName: "a"}))
	require.NoError(t, m.Append(context.Background(), api.HistoryEntry{JobName: "b"}))

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].JobName)
	assert.Equal(t, "b", entries[1].JobName)

	m.WithError(errors.New("full"))
	require.Error(t, m.Append(context.Background(), api.HistoryEntry{JobName: "c"}))
	assert.Len(t, m.Entries(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.WithError(nil).Append(ctx, api.HistoryEntry{}), context.Canceled)
}
