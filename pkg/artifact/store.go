package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	adkartifact "google.golang.org/adk/artifact"
	"google.golang.org/genai"
)

// Store is the per-session artifact slot map the pipelines read and write.
// Load returns nil, nil when no artifact with that name exists.
type Store interface {
	Save(ctx context.Context, name string, part *genai.Part) error
	Load(ctx context.Context, name string) (*genai.Part, error)
}

// adkArtifacts is the subset of agent.Artifacts used here. Both
// agent.CallbackContext and tool.Context expose it through Artifacts().
type adkArtifacts interface {
	Save(ctx context.Context, name string, data *genai.Part) (*adkartifact.SaveResponse, error)
	Load(ctx context.Context, name string) (*adkartifact.LoadResponse, error)
}

// agentStore adapts the ADK session-scoped artifact service.
type agentStore struct {
	artifacts adkArtifacts
}

// NewAgentStore wraps the artifacts handle of an ADK callback or tool context.
// A nil handle yields a store where nothing exists and saving fails.
func NewAgentStore(artifacts adkArtifacts) Store {
	return &agentStore{artifacts: artifacts}
}

func (s *agentStore) Save(ctx context.Context, name string, part *genai.Part) error {
	if s.artifacts == nil {
		return fmt.Errorf("failed to save artifact %q: no artifact service configured", name)
	}
	if _, err := s.artifacts.Save(ctx, name, part); err != nil {
		return fmt.Errorf("failed to save artifact %q: %w", name, err)
	}
	return nil
}

func (s *agentStore) Load(ctx context.Context, name string) (*genai.Part, error) {
	if s.artifacts == nil {
		return nil, nil
	}
	resp, err := s.artifacts.Load(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load artifact %q: %w", name, err)
	}
	if resp == nil {
		return nil, nil
	}
	return resp.Part, nil
}

var _ Store = (*agentStore)(nil)
