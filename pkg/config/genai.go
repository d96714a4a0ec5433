package config

import (
	"fmt"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GenAIClientConfig builds the genai client settings shared by the text
// models and the Imagen generator. An explicit credentials file is loaded
// here; otherwise genai falls back to Application Default Credentials.
func (c *Config) GenAIClientConfig() (*genai.ClientConfig, error) {
	switch c.Backend {
	case BackendGeminiAPI:
		return &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  c.APIKey,
		}, nil
	case BackendVertexAI:
		cc := &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  c.Project,
			Location: c.Location,
		}
		if c.CredentialsFile != "" {
			creds, err := credentials.DetectDefault(&credentials.DetectOptions{
				Scopes:          []string{cloudPlatformScope},
				CredentialsFile: c.CredentialsFile,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to load credentials from %s: %w", c.CredentialsFile, err)
			}
			cc.Credentials = creds
		}
		return cc, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", c.Backend)
	}
}
