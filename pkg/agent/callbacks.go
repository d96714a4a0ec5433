package agent

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/tool"

	"github.com/danishi/adk-blog-writer-agent/pkg/imagegen"
	"github.com/danishi/adk-blog-writer-agent/pkg/logging"
	"github.com/danishi/adk-blog-writer-agent/pkg/metrics"
)

const (
	maxLoggedArgs = 1000

	toolStatusOK    = "ok"
	toolStatusError = "error"
)

// subAgentOutputKeys maps each agent tool to the state key its answer lands in.
var subAgentOutputKeys = map[string]string{
	ResearcherName:       ResearcherOutputKey,
	BlogEditorName:       BlogEditorOutputKey,
	EyecatchDesignerName: EyecatchDesignerOutputKey,
}

// toolFields are the log fields shared by every tool callback. Agent tools
// also carry the output key of the sub-agent they delegate to.
func toolFields(ctx tool.Context, t tool.Tool) []any {
	fields := []any{
		"tool", t.Name(),
		"agent", ctx.AgentName(),
		"functionCallID", ctx.FunctionCallID(),
		"sessionID", ctx.SessionID(),
		"invocationID", ctx.InvocationID(),
	}
	if key, ok := subAgentOutputKeys[t.Name()]; ok {
		fields = append(fields, "outputKey", key)
	}
	return fields
}

func makeBeforeToolCallback(logger logr.Logger) llmagent.BeforeToolCallback {
	return func(ctx tool.Context, t tool.Tool, args map[string]any) (map[string]any, error) {
		fields := toolFields(ctx, t)
		if t.Name() == imagegen.ToolName {
			// the prompt is the interesting part of an image request
			prompt, _ := args["prompt"].(string)
			fields = append(fields, "prompt", logging.Truncate(prompt, maxLoggedArgs, "... (truncated)"))
		} else {
			fields = append(fields, "args", truncateArgs(args))
		}
		logger.Info("Tool execution started", fields...)
		return nil, nil
	}
}

func makeAfterToolCallback(logger logr.Logger) llmagent.AfterToolCallback {
	return func(ctx tool.Context, t tool.Tool, args, result map[string]any, err error) (map[string]any, error) {
		status := toolStatus(result, err)
		metrics.ToolCalls.WithLabelValues(t.Name(), status).Inc()

		fields := append(toolFields(ctx, t), "status", status)
		if err != nil {
			logger.Error(err, "Tool execution completed with error", fields...)
			return nil, nil
		}

		switch {
		case t.Name() == imagegen.ToolName:
			fields = append(fields, "filename", result["filename"], "detail", result["detail"])
			if status != imagegen.StatusSuccess {
				logger.Info("Image generation did not produce an artifact", fields...)
				return nil, nil
			}
		case subAgentOutputKeys[t.Name()] != "":
			if text, ok := result["result"].(string); ok {
				fields = append(fields, "answerBytes", len(text))
			}
		default:
			fields = append(fields, "resultKeys", mapKeys(result))
		}
		logger.Info("Tool execution completed", fields...)
		return nil, nil
	}
}

func makeOnToolErrorCallback(logger logr.Logger) llmagent.OnToolErrorCallback {
	return func(ctx tool.Context, t tool.Tool, args map[string]any, err error) (map[string]any, error) {
		metrics.ToolCalls.WithLabelValues(t.Name(), toolStatusError).Inc()
		logger.Error(err, "Tool execution failed", append(toolFields(ctx, t), "args", truncateArgs(args))...)
		return nil, nil
	}
}

// toolStatus reads the status a tool reported in its result. Tools that do not
// report one count as ok.
func toolStatus(result map[string]any, err error) string {
	if err != nil {
		return toolStatusError
	}
	if s, ok := result["status"].(string); ok && s != "" {
		return s
	}
	return toolStatusOK
}

// mapKeys returns the sorted keys of m.
func mapKeys(m map[string]any) []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateArgs returns args as JSON, shortened for logging.
func truncateArgs(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	return logging.Truncate(string(b), maxLoggedArgs, "... (truncated)")
}
