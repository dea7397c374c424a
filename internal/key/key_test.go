/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HistoryKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		namespace string
		id        string
		seq       uint64
		expKey    string
	}{
		{
			namespace: "",
			id:        "host",
			seq:       0,
			expKey:    "history/host/00000000000000000000",
		},
		{
			namespace: "crond",
			id:        "host",
			seq:       42,
			expKey:    "crond/history/host/00000000000000000042",
		},
		{
			namespace: "/crond",
			id:        "a",
			seq:       18446744073709551615,
			expKey:    "/crond/history/a/18446744073709551615",
		},
	}

	for _, test := range tests {
		t.Run(test.expKey, func(t *testing.T) {
			t.Parallel()

			key, err := New(Options{Namespace: test.namespace, ID: test.id})
			require.NoError(t, err)
			assert.Equal(t, test.id, key.ID())
			assert.Equal(t, test.expKey, key.HistoryKey(test.seq))

			seq, err := key.Sequence([]byte(test.expKey))
			require.NoError(t, err)
			assert.Equal(t, test.seq, seq)
		})
	}
}

func Test_New(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Namespace: "ns"})
	require.Error(t, err)

	_, err = New(Options{Namespace: "ns", ID: "a/b"})
	require.Error(t, err)
}

func Test_Sequence(t *testing.T) {
	t.Parallel()

	key, err := New(Options{Namespace: "ns", ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ns/history/a/", key.HistoryNamespace())

	_, err = key.Sequence([]byte("ns/history/b/00000000000000000001"))
	require.Error(t, err)
	_, err = key.Sequence([]byte("ns/history/a/abc"))
	require.Error(t, err)

	assert.Less(t, key.HistoryKey(9), key.HistoryKey(10))
}
