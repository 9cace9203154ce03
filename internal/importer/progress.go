package importer

import (
	"sync"

	"github.com/google/uuid"
)

// Progress is a point-in-time view of one import job.
type Progress struct {
	JobID   string  `json:"job_id"`
	Loaded  int     `json:"loaded"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`
}

// Tracker maps import-job ids to progress records so concurrent
// imports never interfere through shared counters.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*jobState
}

type jobState struct {
	loaded int
	total  int
	done   bool
	failed bool
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*jobState)}
}

// Begin registers a new job and returns its id.
func (t *Tracker) Begin() string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &jobState{}
	return id
}

func (t *Tracker) SetTotal(jobID string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[jobID]; ok {
		j.total = total
	}
}

func (t *Tracker) Increment(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[jobID]; ok {
		j.loaded++
	}
}

func (t *Tracker) Finish(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[jobID]; ok {
		j.done = true
	}
}

func (t *Tracker) Fail(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[jobID]; ok {
		j.done = true
		j.failed = true
	}
}

func (t *Tracker) Get(jobID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[jobID]
	if !ok {
		return Progress{}, false
	}

	p := Progress{
		JobID:  jobID,
		Loaded: j.loaded,
		Total:  j.total,
	}
	if j.total > 0 {
		p.Percent = float64(j.loaded) / float64(j.total) * 100
	} else if j.done {
		p.Percent = 100
	}
	switch {
	case j.failed:
		p.Status = "error"
	case j.done:
		p.Status = "done"
	default:
		p.Status = "in progress"
	}
	return p, true
}
