package grounding

import (
	"context"
	"strconv"

	"github.com/go-logr/logr"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/danishi/adk-blog-writer-agent/pkg/metrics"
	"github.com/danishi/adk-blog-writer-agent/pkg/telemetry"
)

// AfterModelCallback returns an llmagent callback that annotates grounded
// responses. Partial (streamed) chunks are left alone; grounding metadata is
// only complete on the final response.
func AfterModelCallback(logger logr.Logger) llmagent.AfterModelCallback {
	return func(ctx agent.CallbackContext, resp *model.LLMResponse, respErr error) (*model.LLMResponse, error) {
		return annotateTurn(ctx, logger, ctx.AgentName(), ctx.InvocationID(), resp, respErr), nil
	}
}

// annotateTurn returns the annotated response, or nil to keep resp.
func annotateTurn(ctx context.Context, logger logr.Logger, agentName, invocationID string, resp *model.LLMResponse, respErr error) *model.LLMResponse {
	if respErr != nil || resp == nil || resp.Partial {
		return nil
	}

	spanCtx, span := telemetry.StartSpan(ctx, "grounding.annotate", map[string]string{
		telemetry.AttrAgentName:    agentName,
		telemetry.AttrInvocationID: invocationID,
	})
	defer span.End()

	res := AnnotateResponse(resp)
	telemetry.SetSpanAttributes(spanCtx, map[string]string{
		telemetry.AttrCitations:  strconv.Itoa(res.Citations),
		telemetry.AttrReferences: strconv.Itoa(len(res.References)),
	})
	if res.Citations == 0 {
		return nil
	}

	metrics.CitationsInserted.Add(float64(res.Citations))
	logger.V(1).Info("Annotated grounded response",
		"agent", agentName,
		"invocationID", invocationID,
		"citations", res.Citations,
		"sources", sourceURIs(res.References))
	return res.Response
}
