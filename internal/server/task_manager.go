package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus defines the possible states of a task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task represents a long-running operation such as a bulk load or a
// workload run.
type Task struct {
	ID              string
	Kind            string
	Status          TaskStatus
	ProgressMessage string
	Error           string
	Result          any
	Started         time.Time
	Finished        time.Time
	mu              sync.RWMutex
}

// TaskView is the JSON form of a task.
type TaskView struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	Status          TaskStatus `json:"status"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	Error           string     `json:"error,omitempty"`
	Result          any        `json:"result,omitempty"`
	Started         time.Time  `json:"started"`
	Finished        time.Time  `json:"finished,omitzero"`
}

// TaskManager tracks all asynchronous tasks.
type TaskManager struct {
	tasks map[string]*Task
	mu    sync.RWMutex

	// ctx is cancelled on shutdown; running tasks observe it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskManager creates a new task manager.
func NewTaskManager() *TaskManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewTask creates a new task, registers it, and returns it.
func (tm *TaskManager) NewTask(kind string) *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task := &Task{
		ID:      uuid.New().String(),
		Kind:    kind,
		Status:  TaskStatusStarted,
		Started: time.Now(),
	}
	tm.tasks[task.ID] = task
	return task
}

// Go registers a task and runs fn in the background. The value returned by
// fn becomes the task result.
func (tm *TaskManager) Go(kind string, fn func(ctx context.Context, t *Task) (any, error)) *Task {
	task := tm.NewTask(kind)
	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		task.SetStatus(TaskStatusRunning)
		res, err := fn(tm.ctx, task)
		if err != nil {
			task.SetError(err)
			return
		}
		task.Complete(res)
	}()
	return task
}

// GetTask safely retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// List returns every task, in no particular order.
func (tm *TaskManager) List() []TaskView {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	out := make([]TaskView, 0, len(tm.tasks))
	for _, t := range tm.tasks {
		out = append(out, t.View())
	}
	return out
}

// Stop cancels running tasks and waits for them to return.
func (tm *TaskManager) Stop() {
	tm.cancel()
	tm.wg.Wait()
}

// --- Methods for updating a Task ---

// SetStatus updates the status of the task.
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = status
}

// SetError marks the task as failed and records the error message.
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusFailed
	t.Error = err.Error()
	t.Finished = time.Now()
}

// Complete marks the task as completed with its result.
func (t *Task) Complete(result any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusCompleted
	t.Result = result
	t.Finished = time.Now()
}

// SetProgress updates the progress message for the task.
func (t *Task) SetProgress(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ProgressMessage = message
}

// View returns a consistent copy of the task.
func (t *Task) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskView{
		ID:              t.ID,
		Kind:            t.Kind,
		Status:          t.Status,
		ProgressMessage: t.ProgressMessage,
		Error:           t.Error,
		Result:          t.Result,
		Started:         t.Started,
		Finished:        t.Finished,
	}
}
