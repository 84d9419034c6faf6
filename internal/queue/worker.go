package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

type PostPublisher interface {
	PublishPost(ctx context.Context, postID int64) error
	RetryPost(ctx context.Context, postID int64) error
}

type AnalyticsSyncer interface {
	SyncPost(ctx context.Context, postID int64) error
}

type Worker struct {
	sched PostPublisher
	an    AnalyticsSyncer
}

func NewWorker(sched PostPublisher, an AnalyticsSyncer) *Worker {
	return &Worker{
		sched: sched,
		an:    an,
	}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
	mux.HandleFunc(TaskTypeRetryPost, w.HandleRetryPostTask)
	mux.HandleFunc(TaskTypeAnalyticsSync, w.HandleAnalyticsSyncTask)
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PostTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.sched.PublishPost(ctx, payload.PostID)
}

func (w *Worker) HandleRetryPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PostTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.sched.RetryPost(ctx, payload.PostID)
}

func (w *Worker) HandleAnalyticsSyncTask(ctx context.Context, task *asynq.Task) error {
	var payload PostTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.an.SyncPost(ctx, payload.PostID)
}
