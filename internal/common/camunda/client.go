// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrocredit-workers/internal/common/config"
	"agrocredit-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Stage names carried in the process variables so the BPMN gateway can
// skip straight to matching when a score already exists.
const (
	StageScoring  = "scoring"
	StageMatching = "matching"
)

// RetryConfig defines retry behavior for transient broker failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

type createInstanceFunc func(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)

// Client starts pipeline process instances on the Zeebe broker.
type Client struct {
	zb             zbc.Client
	processID      string
	requestTimeout time.Duration
	retry          *RetryConfig
	create         createInstanceFunc
}

// NewClient dials the gateway and checks the topology before returning.
func NewClient(ctx context.Context, cfg config.CamundaConfig) (*Client, error) {
	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: cfg.Plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{
		zb:             zb,
		processID:      cfg.ProcessID,
		requestTimeout: config.GetDuration(cfg.RequestTimeout),
		retry:          DefaultRetryConfig,
	}
	c.create = c.createInstance

	if err := c.HealthCheck(ctx); err != nil {
		_ = zb.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}
	return c, nil
}

// Zeebe returns the raw client used to open job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// StartPipeline creates a process instance for the operation and returns its key.
func (c *Client) StartPipeline(ctx context.Context, operationID, stage string) (int64, error) {
	variables := map[string]interface{}{
		"operationId": operationID,
		"stage":       stage,
	}

	var key int64
	err := c.ExecuteWithRetry(ctx, "create-instance", func(ctx context.Context) error {
		k, err := c.create(ctx, c.processID, variables)
		if err != nil {
			return err
		}
		key = k
		return nil
	})
	if err != nil {
		return 0, err
	}
	return key, nil
}

func (c *Client) createInstance(ctx context.Context, processID string, variables map[string]interface{}) (int64, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	cmd, err := c.zb.NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(variables)
	if err != nil {
		return 0, fmt.Errorf("build create instance command: %w", err)
	}
	resp, err := cmd.Send(ctx)
	if err != nil {
		return 0, err
	}
	return resp.GetProcessInstanceKey(), nil
}

// ExecuteWithRetry runs fn with exponential backoff. Only transient broker
// errors are retried; the final failure is reported as ENQUEUE_FAILED.
func (c *Client) ExecuteWithRetry(ctx context.Context, operationName string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableZeebeError(err) || attempt == c.retry.MaxRetries {
			return mapZeebeError(err, operationName, attempt)
		}

		delay := c.retry.BaseDelay * time.Duration(1<<attempt)
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.NewEnqueueFailedError(fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err()))
		}
	}
	return mapZeebeError(lastErr, operationName, c.retry.MaxRetries)
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
		"resource exhausted",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) error {
	lower := strings.ToLower(err.Error())

	prefix := fmt.Sprintf("zeebe %s", operation)
	if attempt > 0 {
		prefix += fmt.Sprintf(" after %d retries", attempt)
	}

	switch {
	case strings.Contains(lower, "notfound"), strings.Contains(lower, "not found"):
		// process definition not deployed
		return errors.NewEnqueueFailedError(fmt.Errorf("%s: process not deployed: %w", prefix, err))
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "unauthenticated"):
		return errors.NewAuthenticationError(fmt.Sprintf("%s: %s", prefix, err.Error()))
	default:
		return errors.NewEnqueueFailedError(fmt.Errorf("%s: %w", prefix, err))
	}
}

// HealthCheck asks the gateway for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	timeout := c.requestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.zb.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// Ping satisfies the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.HealthCheck(ctx)
}
