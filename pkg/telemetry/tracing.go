// Package telemetry wraps the OpenTelemetry tracer used around the
// response post-processing and image generation steps.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/danishi/adk-blog-writer-agent"

// Span attribute keys shared by the post-processing pipelines.
const (
	AttrAgentName    = "blogwriter.agent_name"
	AttrInvocationID = "blogwriter.invocation_id"
	AttrArtifactName = "blogwriter.artifact_name"
	AttrCitations    = "blogwriter.citations"
	AttrReferences   = "blogwriter.references"
	AttrPreviews     = "blogwriter.previews"
	AttrProvider     = "blogwriter.image_provider"
	AttrStatus       = "blogwriter.status"
)

// StartSpan starts a span from the global tracer provider and records the
// non-empty attributes on it.
func StartSpan(ctx context.Context, name string, attributes map[string]string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	return SetSpanAttributes(ctx, attributes), span
}

// SetSpanAttributes sets string attributes on the span carried by ctx.
func SetSpanAttributes(ctx context.Context, attributes map[string]string) context.Context {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		for key, value := range attributes {
			if value != "" {
				span.SetAttributes(attribute.String(key, value))
			}
		}
	}
	return ctx
}
