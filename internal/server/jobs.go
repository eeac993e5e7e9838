package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
)

type JobEventType string

const (
	JobEventStatus JobEventType = "status"
	JobEventResult JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// Result is set on the terminal event of a finished import.
	Result *model.ImportResult `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobCanceled JobStatus = "canceled"
)

type Job struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"` // "url" | "text"
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Events    chan JobEvent `json:"-"`

	Result *model.ImportResult `json:"result,omitempty"`
}

// importFunc is one import operation bound to its request parameters.
type importFunc func(ctx context.Context) *model.ImportResult

// jobManager tracks asynchronous imports: uuid ids, a buffered event
// channel per job and a cancel func held under the mutex.
type jobManager struct {
	logger logging.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
}

func newJobManager(logger logging.Logger) *jobManager {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &jobManager{
		logger:  logger.With(logging.Field{Key: "component", Value: "jobs"}),
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

func (m *jobManager) emit(jobID string, ev JobEvent) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (m *jobManager) setStatus(jobID string, status JobStatus, errMsg string) {
	m.mu.Lock()
	if j, ok := m.jobs[jobID]; ok {
		j.Status = status
		j.Error = errMsg
	}
	m.mu.Unlock()
	m.emit(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: status, Error: errMsg})
}

// Start registers a new job and runs the import in a goroutine. The job's
// parent context is detached from the HTTP request so the import survives
// the response.
func (m *jobManager) Start(kind string, run importFunc) *Job {
	jobID := uuid.New().String()
	job := &Job{
		ID:        jobID,
		Kind:      kind,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 16),
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	m.mu.Unlock()

	jobCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()

	m.emit(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobPending})

	go func() {
		defer func() {
			m.mu.Lock()
			if j, ok := m.jobs[jobID]; ok {
				j.EndedAt = time.Now().UTC()
			}
			delete(m.cancels, jobID)
			j := m.jobs[jobID]
			m.mu.Unlock()

			// Close the events channel so websocket loops terminate.
			if j != nil && j.Events != nil {
				close(j.Events)
			}
		}()

		m.setStatus(jobID, JobRunning, "")

		result := run(jobCtx)

		if jobCtx.Err() != nil {
			m.setStatus(jobID, JobCanceled, jobCtx.Err().Error())
			return
		}

		m.mu.Lock()
		if j, ok := m.jobs[jobID]; ok {
			j.Status = JobDone
			j.Result = result
		}
		m.mu.Unlock()
		m.emit(jobID, JobEvent{JobID: jobID, Type: JobEventResult, Status: JobDone, Result: result})
		m.logger.Info("import job finished",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "import_status", Value: string(result.Status)})
	}()

	return job
}

func (m *jobManager) Get(jobID string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID]
}

func (m *jobManager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}

func (m *jobManager) Cancel(jobID string) {
	m.mu.Lock()
	cancel := m.cancels[jobID]
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels every running job.
func (m *jobManager) Close() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.cancels))
	for _, c := range m.cancels {
		cancels = append(cancels, c)
	}
	m.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}
