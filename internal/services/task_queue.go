package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/peerhub/peerhub/internal/config"
	"github.com/peerhub/peerhub/pkg/logger"
)

// TaskTypeTranscription is the queue task that submits an upload for
// transcription.
const TaskTypeTranscription = "transcription:submit"

// TranscriptionTask is the payload of a transcription submission task.
type TranscriptionTask struct {
	UploadID uint `json:"upload_id"`
}

// TranscriptionProcessor runs a transcription submission. Implemented by
// TranscriptionService.
type TranscriptionProcessor interface {
	SubmitForUpload(ctx context.Context, uploadID uint) error
}

// TaskQueue dispatches transcription submissions. With Redis configured the
// queue is a real broker worked by a separate consumer; without it, tasks
// run on a local goroutine so a single-node deployment needs no extra
// moving parts.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *TranscriptionTask) error
	IsAsync() bool
	Close() error
}

// NewTaskQueue picks the queue implementation from the Redis config.
func NewTaskQueue(cfg *config.RedisConfig, processor TranscriptionProcessor) TaskQueue {
	if cfg != nil && cfg.Enabled {
		logger.Infof("task queue: redis broker at %s", cfg.Addr)
		return NewAsyncQueue(cfg)
	}
	logger.Info().Msg("task queue: redis not configured, running tasks in-process")
	return NewSyncQueue(processor)
}

// SyncQueue runs each task on its own goroutine inside the server process.
type SyncQueue struct {
	processor TranscriptionProcessor
	timeout   time.Duration
}

func NewSyncQueue(processor TranscriptionProcessor) *SyncQueue {
	return &SyncQueue{processor: processor, timeout: 5 * time.Minute}
}

func (q *SyncQueue) Enqueue(_ context.Context, task *TranscriptionTask) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.processor.SubmitForUpload(ctx, task.UploadID); err != nil {
			logger.Errorf("transcription task for upload %d: %v", task.UploadID, err)
		}
	}()
	return nil
}

func (q *SyncQueue) IsAsync() bool { return false }
func (q *SyncQueue) Close() error  { return nil }

// AsyncQueue publishes tasks to Redis for the worker process.
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) *AsyncQueue {
	return &AsyncQueue{client: asynq.NewClient(asynqRedisOpt(cfg))}
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *TranscriptionTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	// Submission failures degrade to "no transcription", so a task is
	// never retried.
	_, err = q.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeTranscription, payload),
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
	)
	return err
}

func (q *AsyncQueue) IsAsync() bool { return true }
func (q *AsyncQueue) Close() error  { return q.client.Close() }

func asynqRedisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
