// internal/common/camunda/worker.go
package camunda

import (
	"sync"

	"agrocredit-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobWorkerOpener is the part of zbc.Client needed to open job workers.
type JobWorkerOpener interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

var _ JobWorkerOpener = zbc.Client(nil)

// WorkerGroup tracks opened job workers so they can be closed together.
type WorkerGroup struct {
	client JobWorkerOpener
	log    *zap.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerGroup(client JobWorkerOpener, log *zap.Logger) *WorkerGroup {
	return &WorkerGroup{client: client, log: log, workers: make(map[string]worker.JobWorker)}
}

// Start opens a worker for taskType unless it is disabled in configuration.
// It reports whether a worker was opened.
func (g *WorkerGroup) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		g.log.Info("worker disabled", zap.String("taskType", taskType))
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.workers[taskType]; ok {
		g.log.Warn("worker already started", zap.String("taskType", taskType))
		return false
	}

	w := g.client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()
	g.workers[taskType] = w

	g.log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return true
}

// TaskTypes lists the task types with an open worker.
func (g *WorkerGroup) TaskTypes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.workers))
	for t := range g.workers {
		out = append(out, t)
	}
	return out
}

// Close stops polling and waits for in-flight jobs of every worker.
func (g *WorkerGroup) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for taskType, w := range g.workers {
		g.log.Info("stopping worker", zap.String("taskType", taskType))
		w.Close()
		w.AwaitClose()
	}
	g.workers = make(map[string]worker.JobWorker)
}
