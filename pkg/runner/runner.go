// Package runner runs the coordinator in process with the runtime's session
// and artifact services.
package runner

import (
	"context"
	"fmt"
	"iter"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	adkartifact "google.golang.org/adk/artifact"
	adkrunner "google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// Config configures a Runner. Nil services default to the in-memory ones.
type Config struct {
	AppName         string
	Agent           agent.Agent
	SessionService  session.Service
	ArtifactService adkartifact.Service
	// Stream asks the model for partial responses.
	Stream bool
}

// Runner sends user messages to the agent and manages per-user sessions.
type Runner struct {
	appName   string
	stream    bool
	runner    *adkrunner.Runner
	sessions  session.Service
	artifacts adkartifact.Service
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if cfg.AppName == "" {
		cfg.AppName = cfg.Agent.Name()
	}
	if cfg.SessionService == nil {
		cfg.SessionService = session.InMemoryService()
	}
	if cfg.ArtifactService == nil {
		cfg.ArtifactService = adkartifact.InMemoryService()
	}

	r, err := adkrunner.New(adkrunner.Config{
		AppName:         cfg.AppName,
		Agent:           cfg.Agent,
		SessionService:  cfg.SessionService,
		ArtifactService: cfg.ArtifactService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &Runner{
		appName:   cfg.AppName,
		stream:    cfg.Stream,
		runner:    r,
		sessions:  cfg.SessionService,
		artifacts: cfg.ArtifactService,
	}, nil
}

// AppName is the application name sessions are stored under.
func (r *Runner) AppName() string { return r.appName }

// ListArtifacts returns the names of the artifacts stored in a session.
func (r *Runner) ListArtifacts(ctx context.Context, userID, sessionID string) ([]string, error) {
	resp, err := r.artifacts.List(ctx, &adkartifact.ListRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts for session %s: %w", sessionID, err)
	}
	return resp.FileNames, nil
}

// CreateSession creates a session for userID. An empty sessionID gets a
// generated one.
func (r *Runner) CreateSession(ctx context.Context, userID, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	resp, err := r.sessions.Create(ctx, &session.CreateRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session for user %s: %w", userID, err)
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("Created session", "userID", userID, "sessionID", resp.Session.ID())
	return resp.Session.ID(), nil
}

// EnsureSession returns sessionID when it exists for userID and creates it
// otherwise.
func (r *Runner) EnsureSession(ctx context.Context, userID, sessionID string) (string, error) {
	if sessionID != "" {
		if _, err := r.sessions.Get(ctx, &session.GetRequest{
			AppName:   r.appName,
			UserID:    userID,
			SessionID: sessionID,
		}); err == nil {
			return sessionID, nil
		}
	}
	return r.CreateSession(ctx, userID, sessionID)
}

// ListSessions returns the IDs of userID's sessions.
func (r *Runner) ListSessions(ctx context.Context, userID string) ([]string, error) {
	resp, err := r.sessions.List(ctx, &session.ListRequest{AppName: r.appName, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	ids := make([]string, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		ids = append(ids, s.ID())
	}
	return ids, nil
}

// Send runs one user turn and yields the agent's events as they arrive.
func (r *Runner) Send(ctx context.Context, userID, sessionID, text string) iter.Seq2[*session.Event, error] {
	mode := agent.StreamingModeNone
	if r.stream {
		mode = agent.StreamingModeSSE
	}
	msg := genai.NewContentFromText(text, genai.RoleUser)
	return r.runner.Run(ctx, userID, sessionID, msg, agent.RunConfig{StreamingMode: mode})
}
