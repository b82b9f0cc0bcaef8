package services

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/peerhub/peerhub/internal/config"
	"github.com/peerhub/peerhub/pkg/logger"
)

// Worker consumes queued transcription tasks from Redis. Only started when
// the async queue is in use.
type Worker struct {
	server    *asynq.Server
	processor TranscriptionProcessor
}

func NewWorker(cfg *config.RedisConfig, processor TranscriptionProcessor) *Worker {
	server := asynq.NewServer(asynqRedisOpt(cfg), asynq.Config{
		Concurrency: 2,
		Logger:      asynqLogger{},
	})
	return &Worker{server: server, processor: processor}
}

// Start runs the consumer loop in the background.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeTranscription, w.handleTranscription)
	return w.server.Start(mux)
}

// Shutdown waits for in-flight tasks and stops the consumer.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleTranscription(ctx context.Context, task *asynq.Task) error {
	var payload TranscriptionTask
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Errorf("transcription task payload: %v", err)
		return nil
	}
	return w.processor.SubmitForUpload(ctx, payload.UploadID)
}

// asynqLogger routes the queue's own log lines through the app logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.Debugf("asynq: %v", args) }
func (asynqLogger) Info(args ...interface{})  { logger.Infof("asynq: %v", args) }
func (asynqLogger) Warn(args ...interface{})  { logger.Warnf("asynq: %v", args) }
func (asynqLogger) Error(args ...interface{}) { logger.Errorf("asynq: %v", args) }
func (asynqLogger) Fatal(args ...interface{}) { logger.Errorf("asynq: %v", args) }
