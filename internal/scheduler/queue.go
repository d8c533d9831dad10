package scheduler

import "time"

// entry is one pending firing in the run queue.
type entry struct {
	name string
	at   time.Time
}

// runQueue is a min-heap ordered by fire time.
type runQueue []*entry

func (q runQueue) Len() int           { return len(q) }
func (q runQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q runQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *runQueue) Push(x any)        { *q = append(*q, x.(*entry)) }

func (q *runQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
