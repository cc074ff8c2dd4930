// internal/workers/matching/run-partner-match/handler.go
package runpartnermatch

import (
	"context"
	"fmt"
	"time"

	"agrocredit-workers/internal/common/config"
	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/common/metrics"
	"agrocredit-workers/internal/common/validation"
	"agrocredit-workers/internal/pipeline"
	"agrocredit-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = registry.TaskRunPartnerMatch

var inputSchema = validation.MustCompileSchema(registry.MustBuiltin(TaskType).InputSchema)

type Handler struct {
	config       *Config
	logger       logger.Logger
	runner       pipeline.Runner
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Runner       pipeline.Runner
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = FromAppConfig(opts.AppConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("%s: pipeline runner is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		logger:       log,
		runner:       opts.Runner,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing partner match job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"retries":            job.GetRetries(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey":      job.GetKey(),
			"operationId": input.OperationID,
			"error":       err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute runs the matching stage. The operation must already carry a risk score.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	run, err := h.runner.RunMatch(ctx, input.OperationID)
	if err != nil {
		return nil, err
	}
	return newOutput(run), nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := inputSchema.ValidateInput(variables)
	if !result.Valid {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("validation errors: %v", result.GetErrorMessages()))
	}
	return &Input{OperationID: variables["operationId"].(string)}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(outputVariables(output))
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := request.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}

// outputVariables leaves topPartnerId empty when no partner cleared the threshold
// so gateways can branch on matchCount alone.
func outputVariables(output *Output) map[string]interface{} {
	top := ""
	if len(output.Matches) > 0 {
		top = output.Matches[0].PartnerID
	}
	return map[string]interface{}{
		"operationId":   output.OperationID,
		"totalPartners": output.TotalPartners,
		"matchCount":    len(output.Matches),
		"topPartnerId":  top,
		"matches":       output.Matches,
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
