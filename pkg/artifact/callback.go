package artifact

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/danishi/adk-blog-writer-agent/pkg/metrics"
	"github.com/danishi/adk-blog-writer-agent/pkg/telemetry"
)

// AfterModelCallback returns an llmagent callback that runs the Inliner over
// every completed model turn. Any failure, including a panic while decoding,
// leaves the turn untouched.
func AfterModelCallback(in *Inliner, logger logr.Logger) llmagent.AfterModelCallback {
	return func(ctx agent.CallbackContext, resp *model.LLMResponse, respErr error) (*model.LLMResponse, error) {
		return in.afterModel(ctx, NewAgentStore(ctx.Artifacts()), logger, ctx.AgentName(), ctx.InvocationID(), resp, respErr), nil
	}
}

// afterModel returns the rewritten response, or nil to keep resp.
func (in *Inliner) afterModel(ctx context.Context, store Store, logger logr.Logger, agentName, invocationID string, resp *model.LLMResponse, respErr error) (out *model.LLMResponse) {
	if respErr != nil || resp == nil || resp.Partial {
		return nil
	}

	spanCtx, span := telemetry.StartSpan(ctx, "artifact.inline", map[string]string{
		telemetry.AttrAgentName:    agentName,
		telemetry.AttrInvocationID: invocationID,
		telemetry.AttrArtifactName: in.Name,
	})
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			metrics.InlineFailures.Inc()
			logger.Error(fmt.Errorf("panic: %v", r), "Artifact inlining panicked, returning original response",
				"artifact", in.Name, "invocationID", invocationID)
			out = nil
		}
	}()

	res, err := in.Inline(spanCtx, store, resp)
	if err != nil {
		metrics.InlineFailures.Inc()
		span.RecordError(err)
		logger.Error(err, "Artifact inlining failed, returning original response",
			"artifact", in.Name, "invocationID", invocationID)
		return nil
	}

	telemetry.SetSpanAttributes(spanCtx, map[string]string{
		telemetry.AttrPreviews: strconv.Itoa(res.Previews),
	})
	if res.Missing > 0 {
		metrics.MissingArtifacts.Add(float64(res.Missing))
		logger.V(1).Info("Artifact placeholder without artifact", "artifact", in.Name, "count", res.Missing)
	}
	if res.Previews > 0 {
		metrics.PreviewsInlined.Add(float64(res.Previews))
		logger.V(1).Info("Inlined artifact preview", "artifact", in.Name, "previews", res.Previews)
	}
	if res.Response == resp {
		return nil
	}
	return res.Response
}

// StripPreviews returns a before-model callback that drops inlined previews
// from the history sent to the model. Previews are for the user; resending
// them only spends tokens.
func StripPreviews() llmagent.BeforeModelCallback {
	return func(_ agent.CallbackContext, req *model.LLMRequest) (*model.LLMResponse, error) {
		if req == nil {
			return nil, nil
		}
		req.Contents = stripPreviews(req.Contents)
		return nil, nil
	}
}

// stripPreviews returns contents without preview parts. Contents holding no
// preview are reused as they are; the others are copied.
func stripPreviews(contents []*genai.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		if c == nil || !hasPreview(c.Parts) {
			out = append(out, c)
			continue
		}
		parts := make([]*genai.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			if !IsPreview(p) {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		cp := *c
		cp.Parts = parts
		out = append(out, &cp)
	}
	return out
}

func hasPreview(parts []*genai.Part) bool {
	for _, p := range parts {
		if IsPreview(p) {
			return true
		}
	}
	return false
}
