package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// clearEnv unsets every variable Load reads so the host environment does not
// leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, e := range envs {
			t.Setenv(e, "")
			require.NoError(t, os.Unsetenv(e))
		}
	}
}

func validConfig() *Config {
	return &Config{
		Backend:  BackendVertexAI,
		Project:  "my-project",
		Location: "us-central1",
		Models: Models{
			Coordinator: "gemini-2.5-pro",
			Researcher:  "gemini-2.5-flash",
			Editor:      "gemini-2.5-pro",
			Designer:    "gemini-2.5-flash",
		},
		Image:        Image{Provider: "imagen"},
		Artifact:     Artifact{Name: "image.png", TargetWidth: 500, JPEGQuality: 70},
		Language:     "Japanese",
		TimeZone:     "UTC",
		EyecatchMode: EyecatchModeTool,
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, BackendVertexAI, cfg.Backend)
	assert.Equal(t, "image.png", cfg.Artifact.Name)
	assert.Equal(t, 500, cfg.Artifact.TargetWidth)
	assert.Equal(t, 70, cfg.Artifact.JPEGQuality)
	assert.Equal(t, "imagen", cfg.Image.Provider)
	assert.Equal(t, EyecatchModeTool, cfg.EyecatchMode)
	assert.Equal(t, DefaultAppName, cfg.AppName)
	assert.True(t, cfg.Stream)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "env-project")
	t.Setenv("GOOGLE_CLOUD_REGION", "asia-northeast1")
	t.Setenv("IMAGE_FILE_NAME", "cover.png")
	t.Setenv("BLOGWRITER_ARTIFACT_JPEG_QUALITY", "85")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "env-project", cfg.Project)
	assert.Equal(t, "asia-northeast1", cfg.Location)
	assert.Equal(t, "cover.png", cfg.Artifact.Name)
	assert.Equal(t, 85, cfg.Artifact.JPEGQuality)
}

func TestLoad_APIKeySelectsGeminiAPI(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, BackendGeminiAPI, cfg.Backend)
	assert.Equal(t, "key", cfg.APIKey)

	t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", "true")
	cfg, err = Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, BackendVertexAI, cfg.Backend)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := `
backend: vertex_ai
project: file-project
language: English
eyecatch_mode: agent
artifact:
  target_width: 320
image:
  provider: openai
  model: dall-e-3
http_tools:
  - url: http://localhost:8084/mcp
    tools: [search]
    timeout: 30s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("GOOGLE_CLOUD_PROJECT", "env-wins")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "env-wins", cfg.Project)
	assert.Equal(t, "English", cfg.Language)
	assert.Equal(t, EyecatchModeAgent, cfg.EyecatchMode)
	assert.Equal(t, 320, cfg.Artifact.TargetWidth)
	assert.Equal(t, 70, cfg.Artifact.JPEGQuality)
	assert.Equal(t, "dall-e-3", cfg.Image.Model)
	require.Len(t, cfg.HttpTools, 1)
	assert.Equal(t, "http://localhost:8084/mcp", cfg.HttpTools[0].URL)
	assert.Equal(t, []string{"search"}, cfg.HttpTools[0].Tools)
	assert.Equal(t, 30*time.Second, cfg.HttpTools[0].Timeout)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [unterminated"), 0o600))

	_, err := Load(dir)

	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"vertex without project", func(c *Config) { c.Project = "" }, "GOOGLE_CLOUD_PROJECT"},
		{"gemini without key", func(c *Config) { c.Backend = BackendGeminiAPI }, "GOOGLE_API_KEY"},
		{"gemini with key", func(c *Config) { c.Backend = BackendGeminiAPI; c.APIKey = "k" }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "bedrock" }, "unsupported backend"},
		{"missing model", func(c *Config) { c.Models.Editor = "" }, "models.editor"},
		{"openai without key", func(c *Config) { c.Image.Provider = "openai" }, "OPENAI_API_KEY"},
		{"unknown image provider", func(c *Config) { c.Image.Provider = "midjourney" }, "unsupported image provider"},
		{"empty artifact name", func(c *Config) { c.Artifact.Name = "" }, "artifact.name"},
		{"zero width", func(c *Config) { c.Artifact.TargetWidth = 0 }, "target_width"},
		{"quality too high", func(c *Config) { c.Artifact.JPEGQuality = 101 }, "jpeg_quality"},
		{"eyecatch mode", func(c *Config) { c.EyecatchMode = "both" }, "eyecatch_mode"},
		{"time zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "time_zone"},
		{"http tool url", func(c *Config) { c.HttpTools = []MCPServer{{}} }, "http_tools[0].url"},
		{"sse tool url", func(c *Config) { c.SseTools = []MCPServer{{URL: "x"}, {}} }, "sse_tools[1].url"},
		{"claude without key", func(c *Config) { c.Models.Editor = "claude-sonnet-4-5" }, "ANTHROPIC_API_KEY"},
		{"claude with key", func(c *Config) { c.Models.Editor = "claude-sonnet-4-5"; c.Anthropic.APIKey = "k" }, ""},
		{"claude researcher", func(c *Config) { c.Models.Researcher = "claude-sonnet-4-5"; c.Anthropic.APIKey = "k" }, "must be a Gemini model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	var nilCfg *Config
	assert.ErrorContains(t, nilCfg.Validate(), "nil")
}

func TestLoad_AnthropicEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("ANTHROPIC_BASE_URL", "http://localhost:9000")
	t.Setenv("BLOGWRITER_MODELS_COORDINATOR", "claude-sonnet-4-5")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "sk-ant", cfg.Anthropic.APIKey)
	assert.Equal(t, "http://localhost:9000", cfg.Anthropic.BaseURL)
	assert.True(t, cfg.Models.UsesAnthropic())
	assert.Contains(t, cfg.Summary(), "Anthropic: key=(set)")
	assert.NotContains(t, cfg.Summary(), "sk-ant")
}

func TestSummary(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = "super-secret"

	summary := cfg.Summary()

	assert.Contains(t, summary, "Backend: vertex_ai")
	assert.Contains(t, summary, "Artifact: image.png width=500 quality=70")
	assert.NotContains(t, summary, "super-secret")

	var nilCfg *Config
	assert.Equal(t, "Config: nil", nilCfg.Summary())
}

func TestGenAIClientConfig(t *testing.T) {
	cfg := validConfig()
	cc, err := cfg.GenAIClientConfig()
	require.NoError(t, err)
	assert.Equal(t, genai.BackendVertexAI, cc.Backend)
	assert.Equal(t, "my-project", cc.Project)
	assert.Nil(t, cc.Credentials)

	cfg.Backend = BackendGeminiAPI
	cfg.APIKey = "k"
	cc, err = cfg.GenAIClientConfig()
	require.NoError(t, err)
	assert.Equal(t, genai.BackendGeminiAPI, cc.Backend)
	assert.Equal(t, "k", cc.APIKey)

	cfg.Backend = BackendVertexAI
	cfg.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.GenAIClientConfig()
	assert.ErrorContains(t, err, "failed to load credentials")
}

func TestTimeLocation(t *testing.T) {
	cfg := validConfig()
	cfg.TimeZone = "Asia/Tokyo"
	assert.Equal(t, "Asia/Tokyo", cfg.TimeLocation().String())

	cfg.TimeZone = "nowhere"
	assert.Equal(t, time.Local, cfg.TimeLocation())
}
