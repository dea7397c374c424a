/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package fake

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Fake is an in-memory client. Get honours the prefix option only and always
// returns keys in ascending order. Every call fails with the configured error
// when one is set.
type Fake struct {
	lock sync.Mutex
	kvs  map[string]string
	rev  int64

	calls atomic.Uint32
	err   error
}

func New() *Fake {
	return &Fake{kvs: make(map[string]string)}
}

func (f *Fake) WithError(err error) *Fake {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.err = err
	return f
}

func (f *Fake) Put(_ context.Context, k, v string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.calls.Add(1)
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.rev++
	f.kvs[k] = v
	return new(clientv3.PutResponse), nil
}

func (f *Fake) PutIfNotExists(_ context.Context, k, v string, _ ...clientv3.OpOption) (bool, error) {
	f.calls.Add(1)
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.kvs[k]; ok {
		return false, nil
	}
	f.rev++
	f.kvs[k] = v
	return true, nil
}

func (f *Fake) Get(_ context.Context, k string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.calls.Add(1)
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	op := clientv3.OpGet(k, opts...)
	prefix := len(op.RangeBytes()) > 0

	var keys []string
	for key := range f.kvs {
		if key == k || (prefix && strings.HasPrefix(key, k)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	resp := &clientv3.GetResponse{Count: int64(len(keys))}
	for _, key := range keys {
		resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(key), Value: []byte(f.kvs[key])})
	}
	return resp, nil
}

func (f *Fake) Delete(_ context.Context, k string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.calls.Add(1)
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	_, ok := f.kvs[k]
	delete(f.kvs, k)
	resp := new(clientv3.DeleteResponse)
	if ok {
		resp.Deleted = 1
	}
	return resp, nil
}

// Values returns the stored values ordered by key.
func (f *Fake) Values() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	keys := make([]string, 0, len(f.kvs))
	for k := range f.kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, f.kvs[k])
	}
	return vals
}

func (f *Fake) Calls() uint32 {
	return f.calls.Load()
}
