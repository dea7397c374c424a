/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package key

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

type Options struct {
	// Namespace is the key namespace of all objects.
	Namespace string

	// ID is the unique identifier of the daemon writing history. Daemons
	// sharing a namespace must use distinct IDs.
	ID string
}

// Key returns the correct namespaced key for history records.
type Key struct {
	// namespace is the key namespace of all objects.
	namespace string

	historyNamespace string

	// id is the unique identifier of this daemon.
	id string
}

// New returns a new Key with the given namespace.
func New(opts Options) (*Key, error) {
	if len(opts.ID) == 0 {
		return nil, errors.New("daemon id cannot be empty")
	}
	if strings.Contains(opts.ID, "/") {
		return nil, fmt.Errorf("daemon id cannot contain '/': %q", opts.ID)
	}

	return &Key{
		namespace:        opts.Namespace,
		historyNamespace: path.Join(opts.Namespace, "history", opts.ID) + "/",
		id:               opts.ID,
	}, nil
}

// HistoryNamespace returns the prefix of every history key written by this
// daemon, including the trailing separator.
func (k *Key) HistoryNamespace() string {
	return k.historyNamespace
}

// HistoryKey returns the history key for the given sequence number. Sequence
// numbers are zero padded so that lexical key order is append order.
func (k *Key) HistoryKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", k.historyNamespace, seq)
}

// Sequence returns the sequence number of the given history key.
func (k *Key) Sequence(key []byte) (uint64, error) {
	s, ok := strings.CutPrefix(string(key), k.historyNamespace)
	if !ok {
		return 0, fmt.Errorf("key %q is not in history namespace %q", key, k.historyNamespace)
	}
	return strconv.ParseUint(s, 10, 64)
}

// ID returns the daemon ID.
func (k *Key) ID() string {
	return k.id
}
