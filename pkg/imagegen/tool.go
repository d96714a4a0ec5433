package imagegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"github.com/danishi/adk-blog-writer-agent/pkg/artifact"
	"github.com/danishi/adk-blog-writer-agent/pkg/metrics"
	"github.com/danishi/adk-blog-writer-agent/pkg/telemetry"
)

const (
	ToolName = "generate_image"

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Args are the arguments the model passes to generate_image.
type Args struct {
	Prompt string `json:"prompt" jsonschema:"Description of the eye-catch image to generate."`
}

// Result is returned to the calling agent.
type Result struct {
	Status   string `json:"status" jsonschema:"success or failed."`
	Detail   string `json:"detail,omitempty" jsonschema:"Human readable outcome."`
	Filename string `json:"filename,omitempty" jsonschema:"Artifact name the image was stored under."`
}

// Tool generates a single image and stores it under a fixed artifact name.
type Tool struct {
	gen    Generator
	name   string
	logger logr.Logger
}

// NewTool creates the tool. An empty name selects artifact.DefaultName.
func NewTool(gen Generator, name string, logger logr.Logger) *Tool {
	if name == "" {
		name = artifact.DefaultName
	}
	return &Tool{gen: gen, name: name, logger: logger}
}

// ArtifactName is the name images are stored under.
func (t *Tool) ArtifactName() string { return t.name }

// Run issues one generation request and stores the first image. Generation
// problems are reported in the Result; the returned error is always nil so the
// agent can explain the failure to the user.
func (t *Tool) Run(ctx context.Context, store artifact.Store, prompt string) (Result, error) {
	provider := t.gen.Provider()
	ctx, span := telemetry.StartSpan(ctx, "imagegen.generate", map[string]string{
		telemetry.AttrProvider:     provider,
		telemetry.AttrArtifactName: t.name,
	})
	defer span.End()

	res := t.run(ctx, store, prompt)
	metrics.ImageGenerations.WithLabelValues(provider, res.Status).Inc()
	telemetry.SetSpanAttributes(ctx, map[string]string{telemetry.AttrStatus: res.Status})
	return res, nil
}

func (t *Tool) run(ctx context.Context, store artifact.Store, prompt string) Result {
	if strings.TrimSpace(prompt) == "" {
		return Result{Status: StatusFailed, Detail: "prompt is empty"}
	}

	images, err := t.gen.Generate(ctx, prompt, 1)
	if err != nil {
		t.logger.Error(err, "Image generation failed", "provider", t.gen.Provider())
		return Result{Status: StatusFailed, Detail: err.Error()}
	}
	if len(images) == 0 {
		t.logger.Info("Image generation returned no images", "provider", t.gen.Provider())
		return Result{Status: StatusFailed, Detail: "the image model returned no images"}
	}

	img := images[0]
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	if err := store.Save(ctx, t.name, genai.NewPartFromBytes(img.Data, mimeType)); err != nil {
		t.logger.Error(err, "Failed to store generated image", "artifact", t.name)
		return Result{Status: StatusFailed, Detail: err.Error()}
	}

	t.logger.Info("Stored generated image", "artifact", t.name, "bytes", len(img.Data), "mimeType", mimeType)
	return Result{
		Status:   StatusSuccess,
		Detail:   "Image generated successfully and stored in artifacts.",
		Filename: t.name,
	}
}

// ADKTool exposes Run as the generate_image function tool. The image is saved
// into the artifact service of the calling session.
func (t *Tool) ADKTool() (tool.Tool, error) {
	adkTool, err := functiontool.New(functiontool.Config{
		Name: ToolName,
		Description: fmt.Sprintf("Generates an eye-catch image from a text prompt and stores it as the %q artifact. "+
			"Reference the result in your reply as %s.", t.name, artifact.Placeholder(t.name)),
	}, func(ctx tool.Context, args Args) (Result, error) {
		return t.Run(ctx, artifact.NewAgentStore(ctx.Artifacts()), args.Prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", ToolName, err)
	}
	return adkTool, nil
}
