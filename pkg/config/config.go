// Package config loads the blog writer settings from an optional config file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/danishi/adk-blog-writer-agent/pkg/artifact"
	"github.com/danishi/adk-blog-writer-agent/pkg/imagegen"
)

const (
	BackendVertexAI  = "vertex_ai"
	BackendGeminiAPI = "gemini_api"

	EyecatchModeTool  = "tool"
	EyecatchModeAgent = "agent"

	DefaultConfigDir = "./config"
	DefaultAppName   = "blog_writer_agents"
)

// Config is the explicit configuration passed to every component.
type Config struct {
	AppName         string `mapstructure:"app_name"`
	Backend         string `mapstructure:"backend"`
	UseVertexAI     bool   `mapstructure:"use_vertexai"`
	Project         string `mapstructure:"project"`
	Location        string `mapstructure:"location"`
	CredentialsFile string `mapstructure:"credentials_file"`
	APIKey          string `mapstructure:"api_key"`

	Models    Models    `mapstructure:"models"`
	Anthropic Anthropic `mapstructure:"anthropic"`
	Image     Image     `mapstructure:"image"`
	Artifact  Artifact  `mapstructure:"artifact"`

	// Language is the language every agent answers in.
	Language     string `mapstructure:"language"`
	TimeZone     string `mapstructure:"time_zone"`
	EyecatchMode string `mapstructure:"eyecatch_mode"`
	Stream       bool   `mapstructure:"stream"`

	HttpTools []MCPServer `mapstructure:"http_tools"`
	SseTools  []MCPServer `mapstructure:"sse_tools"`
}

// Models names the text model used by each agent.
type Models struct {
	Coordinator string `mapstructure:"coordinator"`
	Researcher  string `mapstructure:"researcher"`
	Editor      string `mapstructure:"editor"`
	Designer    string `mapstructure:"designer"`
}

// Anthropic configures Claude models. Any model name starting with "claude"
// is served through it.
type Anthropic struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// UsesAnthropic reports whether any agent is configured with a Claude model.
func (m Models) UsesAnthropic() bool {
	for _, name := range []string{m.Coordinator, m.Researcher, m.Editor, m.Designer} {
		if strings.HasPrefix(strings.ToLower(name), "claude") {
			return true
		}
	}
	return false
}

// Image selects the image generation provider.
type Image struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
}

// Artifact configures the stored eye-catch image and its inline preview.
type Artifact struct {
	Name        string `mapstructure:"name"`
	TargetWidth int    `mapstructure:"target_width"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// MCPServer is a remote MCP server whose tools are offered to the coordinator.
type MCPServer struct {
	URL            string            `mapstructure:"url"`
	Headers        map[string]string `mapstructure:"headers"`
	Tools          []string          `mapstructure:"tools"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	SseReadTimeout time.Duration     `mapstructure:"sse_read_timeout"`

	TLSDisableVerify    bool   `mapstructure:"tls_disable_verify"`
	TLSCACertPath       string `mapstructure:"tls_ca_cert_path"`
	TLSDisableSystemCAs bool   `mapstructure:"tls_disable_system_cas"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("backend", "")
	v.SetDefault("use_vertexai", false)
	v.SetDefault("location", "us-central1")
	v.SetDefault("models.coordinator", "gemini-2.5-pro")
	v.SetDefault("models.researcher", "gemini-2.5-flash")
	v.SetDefault("models.editor", "gemini-2.5-pro")
	v.SetDefault("models.designer", "gemini-2.5-flash")
	v.SetDefault("image.provider", imagegen.ProviderImagen)
	v.SetDefault("image.model", "")
	v.SetDefault("artifact.name", artifact.DefaultName)
	v.SetDefault("artifact.target_width", artifact.DefaultTargetWidth)
	v.SetDefault("artifact.jpeg_quality", artifact.DefaultJPEGQuality)
	v.SetDefault("language", "Japanese")
	v.SetDefault("time_zone", "Local")
	v.SetDefault("eyecatch_mode", EyecatchModeTool)
	v.SetDefault("stream", true)
}

// env names checked in order for each key.
var envBindings = map[string][]string{
	"project":               {"GOOGLE_CLOUD_PROJECT"},
	"location":              {"GOOGLE_CLOUD_LOCATION", "GOOGLE_CLOUD_REGION"},
	"credentials_file":      {"GOOGLE_APPLICATION_CREDENTIALS"},
	"api_key":               {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"use_vertexai":          {"GOOGLE_GENAI_USE_VERTEXAI"},
	"artifact.name":         {"IMAGE_FILE_NAME"},
	"image.openai_api_key":  {"OPENAI_API_KEY"},
	"image.openai_base_url": {"OPENAI_BASE_URL"},
	"anthropic.api_key":     {"ANTHROPIC_API_KEY"},
	"anthropic.base_url":    {"ANTHROPIC_BASE_URL"},
}

// Load reads config.{yaml,json,toml} from dir when present, then applies
// environment overrides. Every key can also be set as BLOGWRITER_<KEY> with
// dots replaced by underscores.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if dir == "" {
		dir = DefaultConfigDir
	}
	v.SetConfigName("config")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("BLOGWRITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.resolveBackend()
	return &cfg, nil
}

// resolveBackend picks Vertex AI when asked to or when no API key is present.
func (c *Config) resolveBackend() {
	if c.Backend != "" {
		return
	}
	if c.UseVertexAI || c.APIKey == "" {
		c.Backend = BackendVertexAI
		return
	}
	c.Backend = BackendGeminiAPI
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	switch c.Backend {
	case BackendVertexAI:
		if c.Project == "" || c.Location == "" {
			return fmt.Errorf("backend %s requires GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION (or GOOGLE_CLOUD_REGION)", c.Backend)
		}
	case BackendGeminiAPI:
		if c.APIKey == "" {
			return fmt.Errorf("backend %s requires GOOGLE_API_KEY or GEMINI_API_KEY", c.Backend)
		}
	default:
		return fmt.Errorf("unsupported backend %q, expected %s or %s", c.Backend, BackendVertexAI, BackendGeminiAPI)
	}

	if c.Models.Coordinator == "" || c.Models.Researcher == "" || c.Models.Editor == "" || c.Models.Designer == "" {
		return fmt.Errorf("models.coordinator, models.researcher, models.editor and models.designer are required")
	}
	// The researcher relies on Google Search grounding.
	if strings.HasPrefix(strings.ToLower(c.Models.Researcher), "claude") {
		return fmt.Errorf("models.researcher must be a Gemini model, got %q", c.Models.Researcher)
	}
	if c.Models.UsesAnthropic() && c.Anthropic.APIKey == "" {
		return fmt.Errorf("claude models require ANTHROPIC_API_KEY")
	}

	switch c.Image.Provider {
	case imagegen.ProviderImagen:
	case imagegen.ProviderOpenAI:
		if c.Image.OpenAIAPIKey == "" {
			return fmt.Errorf("image provider %s requires OPENAI_API_KEY", c.Image.Provider)
		}
	default:
		return fmt.Errorf("unsupported image provider %q", c.Image.Provider)
	}

	if c.Artifact.Name == "" {
		return fmt.Errorf("artifact.name is required")
	}
	if c.Artifact.TargetWidth <= 0 {
		return fmt.Errorf("artifact.target_width must be positive, got %d", c.Artifact.TargetWidth)
	}
	if c.Artifact.JPEGQuality < 1 || c.Artifact.JPEGQuality > 100 {
		return fmt.Errorf("artifact.jpeg_quality must be between 1 and 100, got %d", c.Artifact.JPEGQuality)
	}

	if c.EyecatchMode != EyecatchModeTool && c.EyecatchMode != EyecatchModeAgent {
		return fmt.Errorf("eyecatch_mode must be %s or %s, got %q", EyecatchModeTool, EyecatchModeAgent, c.EyecatchMode)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time_zone %q: %w", c.TimeZone, err)
	}

	for i, s := range c.HttpTools {
		if s.URL == "" {
			return fmt.Errorf("http_tools[%d].url is required", i)
		}
	}
	for i, s := range c.SseTools {
		if s.URL == "" {
			return fmt.Errorf("sse_tools[%d].url is required", i)
		}
	}
	return nil
}

// TimeLocation returns the configured time zone, falling back to time.Local.
func (c *Config) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Summary returns a multi-line description without secrets.
func (c *Config) Summary() string {
	if c == nil {
		return "Config: nil"
	}

	summary := "Config:\n"
	summary += fmt.Sprintf("  Backend: %s\n", c.Backend)
	summary += fmt.Sprintf("  Project: %s\n", c.Project)
	summary += fmt.Sprintf("  Location: %s\n", c.Location)
	summary += fmt.Sprintf("  Credentials: %s\n", redact(c.CredentialsFile != "" || c.APIKey != ""))
	summary += fmt.Sprintf("  Models: coordinator=%s researcher=%s editor=%s designer=%s\n",
		c.Models.Coordinator, c.Models.Researcher, c.Models.Editor, c.Models.Designer)
	if c.Models.UsesAnthropic() {
		summary += fmt.Sprintf("  Anthropic: key=%s base_url=%s\n", redact(c.Anthropic.APIKey != ""), c.Anthropic.BaseURL)
	}
	summary += fmt.Sprintf("  Image: %s (%s)\n", c.Image.Provider, c.Image.Model)
	summary += fmt.Sprintf("  Artifact: %s width=%d quality=%d\n", c.Artifact.Name, c.Artifact.TargetWidth, c.Artifact.JPEGQuality)
	summary += fmt.Sprintf("  Language: %s\n", c.Language)
	summary += fmt.Sprintf("  EyecatchMode: %s\n", c.EyecatchMode)
	summary += fmt.Sprintf("  Stream: %v\n", c.Stream)
	summary += fmt.Sprintf("  HttpTools: %d\n", len(c.HttpTools))
	summary += fmt.Sprintf("  SseTools: %d\n", len(c.SseTools))

	return summary
}

func redact(set bool) string {
	if set {
		return "(set)"
	}
	return "(default)"
}
