/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package fake

import (
	"context"
	"sync"
)

// Fake is an implementation of the garbage Interface which only records the
// keys pushed to it.
type Fake struct {
	lock sync.Mutex
	keys []string
}

func New() *Fake {
	return new(Fake)
}

func (f *Fake) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *Fake) Push(key string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.keys = append(f.keys, key)
}

// Keys returns the pushed keys in push order.
func (f *Fake) Keys() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.keys...)
}
