package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypePublishPost   = "publish:post"
	TaskTypeRetryPost     = "retry:post"
	TaskTypeAnalyticsSync = "analytics:sync"
)

type PostTaskPayload struct {
	PostID int64 `json:"post_id"`
}

// Enqueuer schedules a task for later processing. Services depend on
// this instead of the asynq client so tests can run tasks inline.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any, delay time.Duration) error
}

type Client struct {
	asynqClient *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynqClient: asynqClient}
}

func (c *Client) Enqueue(ctx context.Context, taskType string, payload any, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskType, taskPayload)

	_, err = c.asynqClient.EnqueueContext(ctx, task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %s %s", taskType, taskPayload)
	return nil
}
