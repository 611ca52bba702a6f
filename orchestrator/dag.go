package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"captionburn/models"
)

// ErrDependencyFailed marks tasks skipped because a dependency failed.
var ErrDependencyFailed = errors.New("dependency failed")

// ResourceType represents different types of hardware resources
type ResourceType string

const (
	ResourceCPU       ResourceType = "cpu"        // software decode, composite and encode (parallel)
	ResourceGPUEncode ResourceType = "gpu-encode" // hardware encoder sessions (limited)
	ResourceIO        ResourceType = "io"         // file copies and uploads (sequential)
)

// Job is the work a task performs. Exports are the usual job.
type Job interface {
	Run(ctx context.Context) (*models.ExportResult, error)
	OutputPath() string
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	Output string
	Fn     func(ctx context.Context) (*models.ExportResult, error)
}

func (j JobFunc) Run(ctx context.Context) (*models.ExportResult, error) { return j.Fn(ctx) }
func (j JobFunc) OutputPath() string                                     { return j.Output }

// Task represents a unit of work with dependencies and resource requirements
type Task struct {
	ID           string
	Job          Job
	Dependencies []string // IDs of tasks that must complete before this one
	Resource     ResourceType
	Status       TaskStatus
	Error        error
	Result       *TaskResult
	StartTime    time.Time
	EndTime      time.Time
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	TaskID     string
	OutputPath string
	Export     *models.ExportResult
	Success    bool
	Error      error
	Elapsed    time.Duration
}

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskReady              // Dependencies met, waiting for resource
	TaskRunning
	TaskCompleted
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ResourceConstraint defines limits for a resource type
type ResourceConstraint struct {
	Type     ResourceType
	MaxSlots int // Maximum concurrent tasks for this resource
}

// DAGOrchestrator runs tasks respecting dependencies and resource limits.
type DAGOrchestrator struct {
	tasks       map[string]*Task
	order       []string // insertion order, for deterministic scheduling
	constraints map[ResourceType]*ResourceConstraint

	// Resource tracking
	activeSlots map[ResourceType]int
	slotsMutex  sync.Mutex

	tasksMutex sync.RWMutex
	wake       chan struct{}

	// Progress tracking
	onProgress func(completed, total int, task *Task)
}

// NewDAGOrchestrator creates a new orchestrator with resource constraints
func NewDAGOrchestrator(constraints []ResourceConstraint) *DAGOrchestrator {
	constraintMap := make(map[ResourceType]*ResourceConstraint)
	for i := range constraints {
		c := constraints[i]
		if c.MaxSlots < 1 {
			c.MaxSlots = 1
		}
		constraintMap[c.Type] = &c
	}

	return &DAGOrchestrator{
		tasks:       make(map[string]*Task),
		constraints: constraintMap,
		activeSlots: make(map[ResourceType]int),
		wake:        make(chan struct{}, 1),
	}
}

// AddTask adds a task to the orchestrator
func (o *DAGOrchestrator) AddTask(task *Task) error {
	if task == nil || task.Job == nil {
		return fmt.Errorf("task must have a job")
	}
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	if _, exists := o.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = TaskPending
	o.tasks[task.ID] = task
	o.order = append(o.order, task.ID)
	return nil
}

// SetProgressCallback sets a callback for progress updates. It is called
// from the Execute goroutine once per finished task.
func (o *DAGOrchestrator) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

// Execute runs all tasks respecting dependencies and resource constraints.
//
// Task failures do not make Execute fail; they are reported in the results
// and every dependent task is failed with ErrDependencyFailed. When ctx is
// cancelled, running jobs see the cancellation and tasks not yet started
// fail with the context error. Results are in task insertion order.
func (o *DAGOrchestrator) Execute(ctx context.Context) ([]*TaskResult, error) {
	if err := o.validateDAG(); err != nil {
		return nil, err
	}

	total := len(o.order)
	completed := 0
	var running sync.WaitGroup
	finished := make(chan *Task, total)

	for completed < total {
		for _, task := range o.skipBlocked(ctx) {
			completed++
			o.report(completed, total, task)
		}
		if completed == total {
			break
		}

		for _, task := range o.getReadyTasks() {
			if !o.tryAcquireResource(task.Resource) {
				continue
			}
			o.markRunning(task)
			running.Add(1)
			go func(task *Task) {
				defer running.Done()
				o.executeTask(ctx, task)
				finished <- task
			}(task)
		}

		select {
		case task := <-finished:
			completed++
			o.report(completed, total, task)
		case <-ctx.Done():
			// Loop once more so pending tasks are failed; running ones
			// report through finished.
			select {
			case task := <-finished:
				completed++
				o.report(completed, total, task)
			case <-o.wake:
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	running.Wait()

	return o.results(), nil
}

func (o *DAGOrchestrator) report(completed, total int, task *Task) {
	if o.onProgress != nil {
		o.onProgress(completed, total, task)
	}
}

func (o *DAGOrchestrator) results() []*TaskResult {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	results := make([]*TaskResult, 0, len(o.order))
	for _, id := range o.order {
		if r := o.tasks[id].Result; r != nil {
			results = append(results, r)
		}
	}
	return results
}

// getReadyTasks returns tasks whose dependencies have completed
func (o *DAGOrchestrator) getReadyTasks() []*Task {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	ready := make([]*Task, 0)
	for _, id := range o.order {
		task := o.tasks[id]
		if task.Status == TaskPending && o.dependenciesMet(task) {
			task.Status = TaskReady
		}
		if task.Status == TaskReady {
			ready = append(ready, task)
		}
	}
	return ready
}

// dependenciesMet checks if all dependencies of a task are completed
func (o *DAGOrchestrator) dependenciesMet(task *Task) bool {
	for _, depID := range task.Dependencies {
		depTask, exists := o.tasks[depID]
		if !exists || depTask.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// skipBlocked fails every waiting task that can no longer run, because a
// dependency failed or ctx is done, and returns them.
func (o *DAGOrchestrator) skipBlocked(ctx context.Context) []*Task {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	var skipped []*Task
	for _, id := range o.order {
		task := o.tasks[id]
		if task.Status != TaskPending && task.Status != TaskReady {
			continue
		}
		var err error
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case o.hasFailedDependency(task):
			err = ErrDependencyFailed
		default:
			continue
		}
		now := time.Now()
		task.Status = TaskFailed
		task.Error = err
		task.StartTime, task.EndTime = now, now
		task.Result = &TaskResult{
			TaskID:     task.ID,
			OutputPath: task.Job.OutputPath(),
			Error:      err,
		}
		skipped = append(skipped, task)
	}
	return skipped
}

// tryAcquireResource attempts to acquire a resource slot
func (o *DAGOrchestrator) tryAcquireResource(resourceType ResourceType) bool {
	o.slotsMutex.Lock()
	defer o.slotsMutex.Unlock()

	constraint, exists := o.constraints[resourceType]
	if !exists {
		// No constraint, allow execution
		return true
	}

	if o.activeSlots[resourceType] < constraint.MaxSlots {
		o.activeSlots[resourceType]++
		return true
	}
	return false
}

// releaseResource releases a resource slot
func (o *DAGOrchestrator) releaseResource(resourceType ResourceType) {
	o.slotsMutex.Lock()
	defer o.slotsMutex.Unlock()

	if o.activeSlots[resourceType] > 0 {
		o.activeSlots[resourceType]--
	}
}

func (o *DAGOrchestrator) markRunning(task *Task) {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()
	task.Status = TaskRunning
	task.StartTime = time.Now()
}

// executeTask runs a single task
func (o *DAGOrchestrator) executeTask(ctx context.Context, task *Task) {
	defer o.releaseResource(task.Resource)

	export, err := task.Job.Run(ctx)

	o.tasksMutex.Lock()
	task.EndTime = time.Now()
	result := &TaskResult{
		TaskID:     task.ID,
		OutputPath: task.Job.OutputPath(),
		Export:     export,
		Success:    err == nil,
		Error:      err,
		Elapsed:    task.EndTime.Sub(task.StartTime),
	}
	if err != nil {
		task.Status = TaskFailed
		task.Error = err
	} else {
		task.Status = TaskCompleted
	}
	task.Result = result
	o.tasksMutex.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// hasFailedDependency checks if any dependency has failed
func (o *DAGOrchestrator) hasFailedDependency(task *Task) bool {
	for _, depID := range task.Dependencies {
		if depTask, exists := o.tasks[depID]; exists {
			if depTask.Status == TaskFailed {
				return true
			}
			// Recursively check if dependency has failed dependencies
			if o.hasFailedDependency(depTask) {
				return true
			}
		}
	}
	return false
}

// validateDAG validates the task graph
func (o *DAGOrchestrator) validateDAG() error {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	// Check all dependencies exist
	for _, id := range o.order {
		task := o.tasks[id]
		for _, depID := range task.Dependencies {
			if _, exists := o.tasks[depID]; !exists {
				return fmt.Errorf("task %s depends on non-existent task %s", task.ID, depID)
			}
		}
	}

	// Check for cycles (simple DFS-based cycle detection)
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(taskID string) bool
	hasCycle = func(taskID string) bool {
		visited[taskID] = true
		recStack[taskID] = true

		for _, depID := range o.tasks[taskID].Dependencies {
			if !visited[depID] {
				if hasCycle(depID) {
					return true
				}
			} else if recStack[depID] {
				return true
			}
		}

		recStack[taskID] = false
		return false
	}

	for _, id := range o.order {
		if !visited[id] && hasCycle(id) {
			return fmt.Errorf("cycle detected in task dependencies")
		}
	}
	return nil
}

// GetTaskStatus returns the status of a task
func (o *DAGOrchestrator) GetTaskStatus(taskID string) (TaskStatus, error) {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	task, exists := o.tasks[taskID]
	if !exists {
		return TaskPending, fmt.Errorf("task %s not found", taskID)
	}
	return task.Status, nil
}

// Stats counts tasks by status.
type Stats struct {
	Total     int
	Pending   int
	Ready     int
	Running   int
	Completed int
	Failed    int
}

// GetStats returns execution statistics
func (o *DAGOrchestrator) GetStats() Stats {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	stats := Stats{Total: len(o.tasks)}
	for _, task := range o.tasks {
		switch task.Status {
		case TaskPending:
			stats.Pending++
		case TaskReady:
			stats.Ready++
		case TaskRunning:
			stats.Running++
		case TaskCompleted:
			stats.Completed++
		case TaskFailed:
			stats.Failed++
		}
	}
	return stats
}

// TaskIDs returns the task IDs in sorted order.
func (o *DAGOrchestrator) TaskIDs() []string {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()
	ids := append([]string(nil), o.order...)
	sort.Strings(ids)
	return ids
}
