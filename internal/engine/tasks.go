package engine

import (
	"context"

	"iuhsched/internal/model"
	"iuhsched/internal/tasks"
)

// CreateTask adds a task on the writer goroutine.
func (e *Engine) CreateTask(ctx context.Context, in tasks.NewTask) (task model.TaskEntry, err error) {
	if doErr := e.do(ctx, func() { task, err = e.tasks.Create(in) }); doErr != nil {
		return model.TaskEntry{}, doErr
	}
	return task, err
}

// UpdateTask applies a patch to a task.
func (e *Engine) UpdateTask(ctx context.Context, id model.TaskID, p tasks.Patch) (task model.TaskEntry, err error) {
	if doErr := e.do(ctx, func() { task, err = e.tasks.Update(id, p) }); doErr != nil {
		return model.TaskEntry{}, doErr
	}
	return task, err
}

// ToggleTask flips the done flag of a task.
func (e *Engine) ToggleTask(ctx context.Context, id model.TaskID) (task model.TaskEntry, err error) {
	if doErr := e.do(ctx, func() { task, err = e.tasks.Toggle(id) }); doErr != nil {
		return model.TaskEntry{}, doErr
	}
	return task, err
}

// DeleteTask removes a task.
func (e *Engine) DeleteTask(ctx context.Context, id model.TaskID) (err error) {
	if doErr := e.do(ctx, func() { err = e.tasks.Delete(id) }); doErr != nil {
		return doErr
	}
	return err
}

// Tasks lists all tasks.
func (e *Engine) Tasks(ctx context.Context) (list []model.TaskEntry, err error) {
	err = e.do(ctx, func() { list = e.tasks.List() })
	return list, err
}
