// Package agent assembles the blog coordinator and its sub-agents.
package agent

import (
	"context"
	"fmt"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-logr/logr"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	adkgemini "google.golang.org/adk/model/gemini"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/agenttool"
	"google.golang.org/adk/tool/geminitool"
	"google.golang.org/adk/tool/loadartifactstool"

	"github.com/danishi/adk-blog-writer-agent/pkg/artifact"
	"github.com/danishi/adk-blog-writer-agent/pkg/config"
	"github.com/danishi/adk-blog-writer-agent/pkg/grounding"
	"github.com/danishi/adk-blog-writer-agent/pkg/imagegen"
	"github.com/danishi/adk-blog-writer-agent/pkg/models"
	"github.com/danishi/adk-blog-writer-agent/pkg/tools"
)

const (
	CoordinatorName      = "blog_coordinator"
	ResearcherName       = "researcher_agent"
	BlogEditorName       = "blog_editor_agent"
	EyecatchDesignerName = "eyecatch_designer_agent"

	ResearcherOutputKey       = "researcher_agent_output"
	BlogEditorOutputKey       = "blog_editor_output"
	EyecatchDesignerOutputKey = "eyecatch_designer_output"
)

// ModelFactory returns the text model with the given name.
type ModelFactory func(ctx context.Context, name string) (adkmodel.LLM, error)

// Deps are the collaborators NewCoordinator wires together. Nil fields are
// built from Config.
type Deps struct {
	Models         ModelFactory
	ImageGenerator imagegen.Generator
	Clock          *tools.Clock
	Toolsets       []tool.Toolset
}

// NewResearcher creates the agent that proposes ranked, search-grounded
// topic ideas. Its answers are annotated with citations.
func NewResearcher(m adkmodel.LLM, language string, logger logr.Logger) (agent.Agent, error) {
	return newLLMAgent(llmagent.Config{
		Name:        ResearcherName,
		Model:       m,
		Description: "Proposes at least 10 ranked blog post ideas for a theme or keyword, grounded in web search results.",
		Instruction: withLanguage(researcherPrompt, language),
		OutputKey:   ResearcherOutputKey,
		Tools:       []tool.Tool{geminitool.GoogleSearch{}},
		AfterModelCallbacks: []llmagent.AfterModelCallback{
			grounding.AfterModelCallback(logger.WithName("grounding")),
		},
	}, logger)
}

// NewBlogEditor creates the agent that writes the full article for a topic.
func NewBlogEditor(m adkmodel.LLM, language string, logger logr.Logger) (agent.Agent, error) {
	return newLLMAgent(llmagent.Config{
		Name:        BlogEditorName,
		Model:       m,
		Description: "Writes a complete, SEO-aware blog post with headline, sectioned body and call to action for a chosen topic.",
		Instruction: withLanguage(blogEditorPrompt, language),
		OutputKey:   BlogEditorOutputKey,
	}, logger)
}

// NewEyecatchDesigner creates the agent variant of the image capability: it
// writes the image prompt itself and calls imageTool.
func NewEyecatchDesigner(m adkmodel.LLM, imageTool tool.Tool, artifactName, language string, logger logr.Logger) (agent.Agent, error) {
	return newLLMAgent(llmagent.Config{
		Name:  EyecatchDesignerName,
		Model: m,
		Description: "Creates a professional eye-catch image for a blog post from the post's theme and the user's brand image, " +
			"and stores it as a session artifact.",
		Instruction: withLanguage(fmt.Sprintf(eyecatchDesignerPrompt, imagegen.ToolName, artifact.Placeholder(artifactName)), language),
		OutputKey:   EyecatchDesignerOutputKey,
		Tools:       []tool.Tool{imageTool, loadartifactstool.New()},
	}, logger)
}

// NewCoordinator builds the full agent tree described by cfg.
func NewCoordinator(ctx context.Context, cfg *config.Config, deps Deps) (agent.Agent, error) {
	log := logr.FromContextOrDiscard(ctx)

	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Models == nil {
		deps.Models = ConfiguredModels(cfg)
	}
	if deps.ImageGenerator == nil {
		gen, err := NewImageGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.ImageGenerator = gen
	}
	if deps.Clock == nil {
		clock := tools.NewClock(cfg.TimeLocation())
		deps.Clock = &clock
	}

	model := func(name string) (adkmodel.LLM, error) {
		m, err := deps.Models(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM %s: %w", name, err)
		}
		return m, nil
	}

	researcherModel, err := model(cfg.Models.Researcher)
	if err != nil {
		return nil, err
	}
	researcher, err := NewResearcher(researcherModel, cfg.Language, log.WithName(ResearcherName))
	if err != nil {
		return nil, err
	}

	editorModel, err := model(cfg.Models.Editor)
	if err != nil {
		return nil, err
	}
	editor, err := NewBlogEditor(editorModel, cfg.Language, log.WithName(BlogEditorName))
	if err != nil {
		return nil, err
	}

	generator := imagegen.NewTool(deps.ImageGenerator, cfg.Artifact.Name, log.WithName("imagegen"))
	imageTool, err := generator.ADKTool()
	if err != nil {
		return nil, err
	}
	imageCapability := imageTool
	imageCapabilityName := imagegen.ToolName
	if cfg.EyecatchMode == config.EyecatchModeAgent {
		designerModel, err := model(cfg.Models.Designer)
		if err != nil {
			return nil, err
		}
		designer, err := NewEyecatchDesigner(designerModel, imageTool, generator.ArtifactName(), cfg.Language, log.WithName(EyecatchDesignerName))
		if err != nil {
			return nil, err
		}
		imageCapability = agenttool.New(designer, nil)
		imageCapabilityName = EyecatchDesignerName
	}

	datetimeTool, err := tools.NewCurrentDatetimeTool(*deps.Clock)
	if err != nil {
		return nil, err
	}

	coordinatorModel, err := model(cfg.Models.Coordinator)
	if err != nil {
		return nil, err
	}

	inliner := artifact.NewInliner(generator.ArtifactName(), cfg.Artifact.TargetWidth, cfg.Artifact.JPEGQuality)
	instruction := fmt.Sprintf(coordinatorPrompt,
		ResearcherName, BlogEditorName, imageCapabilityName,
		artifact.Placeholder(inliner.Name), tools.CurrentDatetimeToolName)

	log.Info("Creating blog coordinator",
		"eyecatchMode", cfg.EyecatchMode,
		"imageProvider", deps.ImageGenerator.Provider(),
		"artifact", inliner.Name,
		"toolsetsCount", len(deps.Toolsets))

	return newLLMAgent(llmagent.Config{
		Name:  CoordinatorName,
		Model: coordinatorModel,
		Description: "Helps the user write an engaging blog post step by step: choosing a theme, " +
			"writing the article and designing its eye-catch image.",
		Instruction:     withLanguage(instruction, cfg.Language),
		IncludeContents: llmagent.IncludeContentsDefault,
		Tools: []tool.Tool{
			agenttool.New(researcher, nil),
			agenttool.New(editor, nil),
			imageCapability,
			datetimeTool,
			loadartifactstool.New(),
		},
		Toolsets: deps.Toolsets,
		BeforeModelCallbacks: []llmagent.BeforeModelCallback{
			artifact.StripPreviews(),
		},
		AfterModelCallbacks: []llmagent.AfterModelCallback{
			artifact.AfterModelCallback(inliner, log.WithName("artifact")),
		},
	}, log.WithName(CoordinatorName))
}

// newLLMAgent adds the tool logging callbacks shared by every agent.
func newLLMAgent(cfg llmagent.Config, logger logr.Logger) (agent.Agent, error) {
	cfg.BeforeToolCallbacks = append(cfg.BeforeToolCallbacks, makeBeforeToolCallback(logger))
	cfg.AfterToolCallbacks = append(cfg.AfterToolCallbacks, makeAfterToolCallback(logger))
	cfg.OnToolErrorCallbacks = append(cfg.OnToolErrorCallbacks, makeOnToolErrorCallback(logger))

	a, err := llmagent.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %s: %w", cfg.Name, err)
	}
	logger.V(1).Info("Created LLM agent",
		"name", cfg.Name,
		"hasInstruction", cfg.Instruction != "",
		"toolsCount", len(cfg.Tools),
		"toolsetsCount", len(cfg.Toolsets))
	return a, nil
}

// GeminiModels returns a factory for Gemini models on the configured backend.
func GeminiModels(cfg *config.Config) ModelFactory {
	return func(ctx context.Context, name string) (adkmodel.LLM, error) {
		cc, err := cfg.GenAIClientConfig()
		if err != nil {
			return nil, err
		}
		return adkgemini.NewModel(ctx, name, cc)
	}
}

// ConfiguredModels serves Claude model names through Anthropic and every other
// name through Gemini.
func ConfiguredModels(cfg *config.Config) ModelFactory {
	gemini := GeminiModels(cfg)
	return func(ctx context.Context, name string) (adkmodel.LLM, error) {
		if !models.IsAnthropicModel(name) {
			return gemini(ctx, name)
		}
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("model %s requires ANTHROPIC_API_KEY", name)
		}
		opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(cfg.Anthropic.APIKey)}
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return models.NewAnthropic(name, opts...), nil
	}
}

// NewImageGenerator creates the configured image provider.
func NewImageGenerator(ctx context.Context, cfg *config.Config) (imagegen.Generator, error) {
	switch cfg.Image.Provider {
	case imagegen.ProviderOpenAI:
		opts := []option.RequestOption{option.WithAPIKey(cfg.Image.OpenAIAPIKey)}
		if cfg.Image.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Image.OpenAIBaseURL))
		}
		return imagegen.NewOpenAIGenerator(cfg.Image.Model, opts...), nil
	case imagegen.ProviderImagen, "":
		cc, err := cfg.GenAIClientConfig()
		if err != nil {
			return nil, err
		}
		gen, err := imagegen.NewGenAIGenerator(ctx, cfg.Image.Model, cc)
		if err != nil {
			return nil, fmt.Errorf("failed to create image generator: %w", err)
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.Image.Provider)
	}
}
