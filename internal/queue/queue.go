/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package queue

import (
	"container/heap"

	"github.com/diagridio/go-shell-cron/api/errors"
	"github.com/diagridio/go-shell-cron/internal/job"
)

// Queue holds the active jobs ordered by their next run, with ties broken by
// name. It is not safe for concurrent use.
type Queue struct {
	items items
	names map[string]struct{}
}

func New(jobs ...*job.Job) (*Queue, error) {
	q := &Queue{
		names: make(map[string]struct{}, len(jobs)),
	}
	for _, j := range jobs {
		if err := q.Push(j); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Push adds a job to the queue. Job names are unique within the queue.
func (q *Queue) Push(j *job.Job) error {
	if _, ok := q.names[j.Name]; ok {
		return errors.NewJobAlreadyExists(j.Name)
	}
	q.names[j.Name] = struct{}{}
	heap.Push(&q.items, j)
	return nil
}

// Peek returns the job with the earliest next run without removing it, or
// nil if the queue is empty.
func (q *Queue) Peek() *job.Job {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Pop removes and returns the job with the earliest next run, or nil if the
// queue is empty.
func (q *Queue) Pop() *job.Job {
	if len(q.items) == 0 {
		return nil
	}
	j := heap.Pop(&q.items).(*job.Job)
	delete(q.names, j.Name)
	return j
}

// Len returns the number of jobs in the queue.
func (q *Queue) Len() int {
	return len(q.items)
}

// Snapshot returns a copy of every job in the queue in firing order.
func (q *Queue) Snapshot() []job.Job {
	cp := make(items, len(q.items))
	copy(cp, q.items)

	jobs := make([]job.Job, 0, len(cp))
	for len(cp) > 0 {
		jobs = append(jobs, *heap.Pop(&cp).(*job.Job))
	}
	return jobs
}

type items []*job.Job

func (i items) Len() int {
	return len(i)
}

func (i items) Less(a, b int) bool {
	if i[a].NextRun.Equal(i[b].NextRun) {
		return i[a].Name < i[b].Name
	}
	return i[a].NextRun.Before(i[b].NextRun)
}

func (i items) Swap(a, b int) {
	i[a], i[b] = i[b], i[a]
}

func (i *items) Push(x any) {
	*i = append(*i, x.(*job.Job))
}

func (i *items) Pop() any {
	old := *i
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*i = old[:n-1]
	return j
}
