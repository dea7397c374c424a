/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package grave

import (
	"sort"
	"sync"
	"time"
)

// Grave records why a job was removed from the active set.
type Grave struct {
	Name      string
	Reason    string
	RemovedAt time.Time

	idx uint64
}

// Yard is a graveyard for jobs removed from the active set, kept so that the
// removal can be reported after the fact. Jobs are tracked by their name; a
// later burial of the same name replaces the earlier one. If more than
// maxGraves jobs are tracked, the oldest evictCount are forgotten to prevent
// the map from growing indefinitely.
type Yard struct {
	idx    uint64
	graves map[string]Grave
	lock   sync.Mutex
}

const (
	maxGraves  = 10000
	evictCount = 1000
)

func New() *Yard {
	return &Yard{
		graves: make(map[string]Grave),
	}
}

// Bury records that the named job was removed.
func (y *Yard) Bury(name, reason string, at time.Time) {
	y.lock.Lock()
	defer y.lock.Unlock()

	y.graves[name] = Grave{
		Name:      name,
		Reason:    reason,
		RemovedAt: at,
		idx:       y.idx,
	}
	y.idx++

	if len(y.graves) > maxGraves {
		target := y.idx - (maxGraves - evictCount)
		for k, g := range y.graves {
			if g.idx < target {
				delete(y.graves, k)
			}
		}
	}
}

// Get returns the grave of the named job, if it was removed.
func (y *Yard) Get(name string) (Grave, bool) {
	y.lock.Lock()
	defer y.lock.Unlock()
	g, ok := y.graves[name]
	return g, ok
}

// Len returns the number of tracked graves.
func (y *Yard) Len() int {
	y.lock.Lock()
	defer y.lock.Unlock()
	return len(y.graves)
}

// Graves returns every tracked grave in burial order.
func (y *Yard) Graves() []Grave {
	y.lock.Lock()
	defer y.lock.Unlock()

	graves := make([]Grave, 0, len(y.graves))
	for _, g := range y.graves {
		graves = append(graves, g)
	}
	sort.Slice(graves, func(i, j int) bool {
		return graves[i].idx < graves[j].idx
	})
	return graves
}
