package scheduler

// taskLess is the queue's total order: priority descending, then scheduled
// time ascending.
func taskLess(a, b *ScrapeTask) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ScheduledTime.Before(b.ScheduledTime)
}

// taskQueue implements container/heap over scheduled tasks.
type taskQueue []*ScrapeTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool { return taskLess(q[i], q[j]) }

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*ScrapeTask)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
