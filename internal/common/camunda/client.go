// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hub-connectors/internal/common/config"
	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const service = "zeebe"

// Client owns the Zeebe connection and the job workers opened on it.
type Client struct {
	client  zbc.Client
	timeout time.Duration
	logger  logger.Logger

	mu      sync.Mutex
	workers []worker.JobWorker
}

// Connect dials the gateway and confirms it answers a topology request
// within the configured timeout.
func Connect(ctx context.Context, cfg config.CamundaConfig, log logger.Logger) (*Client, error) {
	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{
		client:  zc,
		timeout: timeoutOrDefault(cfg.RequestTimeout),
		logger:  log.WithFields(map[string]interface{}{"component": "camunda"}),
	}
	if err := c.HealthCheck(ctx); err != nil {
		zc.Close()
		return nil, err
	}
	return c, nil
}

func timeoutOrDefault(ms int) time.Duration {
	if ms <= 0 {
		return 10 * time.Second
	}
	return config.GetDuration(ms)
}

// StartWorker opens a job worker for taskType. Disabled workers are skipped.
func (c *Client) StartWorker(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
	if !wcfg.Enabled {
		c.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	w := c.client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	c.mu.Lock()
	c.workers = append(c.workers, w)
	c.mu.Unlock()

	c.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// HealthCheck sends a topology request to the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return mapZeebeError(err, "topology")
	}
	return nil
}

// Close stops the workers, waits for in-flight jobs and releases the
// connection.
func (c *Client) Close() error {
	c.mu.Lock()
	workers := c.workers
	c.workers = nil
	c.mu.Unlock()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	return c.client.Close()
}

// isRetryableZeebeError checks if the error is transient and should be retried.
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
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError converts gateway errors into application errors.
func mapZeebeError(err error, operation string) error {
	lowerMsg := strings.ToLower(err.Error())
	wrapped := fmt.Errorf("zeebe operation '%s' failed: %w", operation, err)

	switch {
	case strings.Contains(lowerMsg, "timeout") ||
		strings.Contains(lowerMsg, "deadline exceeded"):
		return apperrors.NewUpstreamTimeoutError(service, wrapped)

	case strings.Contains(lowerMsg, "permission denied") ||
		strings.Contains(lowerMsg, "unauthenticated") ||
		strings.Contains(lowerMsg, "unauthorized"):
		return apperrors.NewUpstreamAuthFailedError(service, 0)

	case isRetryableZeebeError(err):
		return apperrors.NewUpstreamUnavailableError(service, wrapped)

	default:
		return apperrors.NewInternalError(wrapped)
	}
}
