package transformer

import "sync"

// errAgg aggregates failure messages across concurrent invocations.
type errAgg struct {
	mu          sync.Mutex
	limit       int
	count       int
	invocations int
	first       []string
	buckets     map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	a.buckets[msg]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

func (a *errAgg) invoked() {
	a.mu.Lock()
	a.invocations++
	a.mu.Unlock()
}

func (a *errAgg) report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Report{
		Invocations: a.invocations,
		Failures:    a.count,
		Distinct:    len(a.buckets),
		Warnings:    append([]string(nil), a.first...),
	}
}
