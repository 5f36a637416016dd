package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/pkg/jobs"
)

const jobTypeDeleteObject = "storage.delete"

type objectDeleter interface {
	Delete(key string) error
}

type cleanupPayload struct {
	Key    string
	Reason string
}

// StorageCleanupService deletes stored files in the background with retries.
// It is used after a record has already been removed, so a failing delete
// never blocks the request that triggered it.
type StorageCleanupService struct {
	storage objectDeleter
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStorageCleanupService wires the cleanup queue. Call Start before use.
func NewStorageCleanupService(storage objectDeleter, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *StorageCleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &StorageCleanupService{storage: storage, metrics: metrics, logger: logger}
	cfg.Logger = logger
	cfg.OnDrop = svc.onDrop
	svc.queue = jobs.NewQueue("storage-cleanup", svc.handle, cfg)
	return svc
}

// Start launches the workers.
func (s *StorageCleanupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains workers.
func (s *StorageCleanupService) Stop() {
	s.queue.Stop()
}

// Schedule queues deletion of key without blocking. When the queue is full
// or stopped the delete is attempted inline once.
func (s *StorageCleanupService) Schedule(key, reason string) {
	if key == "" {
		return
	}
	job := jobs.Job{Type: jobTypeDeleteObject, Payload: cleanupPayload{Key: key, Reason: reason}}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Warn("cleanup queue unavailable, deleting inline", zap.String("key", key), zap.Error(err))
		if err := s.handle(context.Background(), job); err != nil {
			s.logger.Error("inline object delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *StorageCleanupService) handle(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(cleanupPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if err := s.storage.Delete(payload.Key); err != nil {
		s.metrics.RecordCleanup("retry")
		return err
	}
	s.metrics.RecordCleanup("deleted")
	s.logger.Debug("object deleted", zap.String("key", payload.Key), zap.String("reason", payload.Reason))
	return nil
}

func (s *StorageCleanupService) onDrop(job jobs.Job, err error) {
	s.metrics.RecordCleanup("dropped")
	key := ""
	if payload, ok := job.Payload.(cleanupPayload); ok {
		key = payload.Key
	}
	s.logger.Error("object delete abandoned", zap.String("key", key), zap.Int("attempts", job.Attempt), zap.Error(err))
}
