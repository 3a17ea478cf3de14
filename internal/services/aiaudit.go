package services

import (
	"context"
	"time"

	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// AuditedAIClient wraps a completion client and records one AICallLog row per
// call. Logging is best-effort; an audit write failure never fails the call.
type AuditedAIClient struct {
	inner openai.Client
	model string
	logs  repos.AICallLogRepo
	log   *logger.Logger
}

func NewAuditedAIClient(inner openai.Client, model string, logs repos.AICallLogRepo, baseLog *logger.Logger) *AuditedAIClient {
	return &AuditedAIClient{
		inner: inner,
		model: model,
		logs:  logs,
		log:   baseLog.With("service", "AuditedAIClient"),
	}
}

func (c *AuditedAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	start := time.Now()
	out, err := c.inner.GenerateJSON(ctx, system, user, schemaName, schema)
	outputChars := 0
	if out != nil {
		outputChars = len(out)
	}
	c.record(ctx, "generate_json", len(system)+len(user), outputChars, start, err)
	return out, err
}

func (c *AuditedAIClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	out, err := c.inner.GenerateText(ctx, system, user)
	c.record(ctx, "generate_text", len(system)+len(user), len(out), start, err)
	return out, err
}

func (c *AuditedAIClient) record(ctx context.Context, callType string, promptChars, outputChars int, start time.Time, callErr error) {
	entry := &types.AICallLog{
		CallType:    callType,
		Model:       c.model,
		PromptChars: promptChars,
		OutputChars: outputChars,
		LatencyMS:   time.Since(start).Milliseconds(),
		Success:     callErr == nil,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if _, err := c.logs.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
		c.log.Warn("could not write ai call log", "call_type", callType, "error", err)
	}
}

var _ openai.Client = (*AuditedAIClient)(nil)
