package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/abiosoft/ishell/v2"
	"github.com/abiosoft/readline"
	"github.com/briandowns/spinner"
	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/danishi/adk-blog-writer-agent/pkg/runner"
)

const (
	sessionCreateNew = "[New Session]"

	defaultTurnTimeout = 10 * time.Minute
)

// Options configure a chat Client.
type Options struct {
	UserID     string
	SessionID  string
	PreviewDir string
	Verbose    bool
	// Spinner shows progress on stderr while waiting for the agent.
	Spinner     bool
	TurnTimeout time.Duration
}

// Client talks to the coordinator through an in-process runner.
type Client struct {
	runner *runner.Runner
	opts   Options
	logger logr.Logger
}

// NewClient creates a Client.
func NewClient(r *runner.Runner, opts Options, logger logr.Logger) *Client {
	if opts.UserID == "" {
		opts.UserID = "user1"
	}
	if opts.PreviewDir == "" {
		opts.PreviewDir = "previews"
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}
	return &Client{runner: r, opts: opts, logger: logger}
}

// Turn sends text as one user message and renders the reply to out.
func (c *Client) Turn(ctx context.Context, sessionID, text string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.TurnTimeout)
	defer cancel()

	var s *spinner.Spinner
	if c.opts.Spinner {
		s = spinner.New(spinner.CharSets[35], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " thinking..."
		s.Start()
		defer s.Stop()
	}

	renderer := NewRenderer(out, c.opts.PreviewDir, sessionID, c.opts.Verbose)
	events := 0
	for ev, err := range c.runner.Send(ctx, c.opts.UserID, sessionID, text) {
		if s != nil {
			s.Stop()
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("agent turn timed out or was cancelled: %w", ctx.Err())
			}
			return fmt.Errorf("agent turn failed: %w", err)
		}
		events++
		if err := renderer.Render(ev); err != nil {
			c.logger.Error(err, "Failed to render event", "sessionID", sessionID)
		}
	}
	c.logger.V(1).Info("Turn completed", "sessionID", sessionID, "events", events, "previews", len(renderer.Previews()))
	return nil
}

// ListSessions prints the user's sessions.
func (c *Client) ListSessions(ctx context.Context, out io.Writer) error {
	ids, err := c.runner.ListSessions(ctx, c.opts.UserID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

// ListArtifacts prints the artifacts stored in a session.
func (c *Client) ListArtifacts(ctx context.Context, sessionID string, out io.Writer) error {
	names, err := c.runner.ListArtifacts(ctx, c.opts.UserID, sessionID)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No artifacts stored.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

// Shell builds the interactive shell. Its chat command runs the
// conversation loop.
func (c *Client) Shell(ctx context.Context) *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt(BoldBlue("blogwriter >> "))

	shell.AddCmd(&ishell.Cmd{
		Name:    "chat",
		Aliases: []string{"c"},
		Help:    "Chat with the blog coordinator.",
		LongHelp: `Chat with the blog coordinator.

If no session is given, pick an existing session or start a new one.

Examples:
- chat -s [session_id]
- chat
`,
		Func: func(ic *ishell.Context) { c.chatCmd(ctx, ic) },
	})
	shell.AddCmd(&ishell.Cmd{
		Name:    "sessions",
		Aliases: []string{"s"},
		Help:    "List your sessions.",
		Func: func(ic *ishell.Context) {
			var b strings.Builder
			if err := c.ListSessions(ctx, &b); err != nil {
				ic.Println(err)
				return
			}
			ic.Print(b.String())
		},
	})
	return shell
}

func (c *Client) chatCmd(ctx context.Context, ic *ishell.Context) {
	sessionID := c.opts.SessionID
	flagSet := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	flagSet.StringVarP(&sessionID, "session", "s", sessionID, "Session ID to use")
	if err := flagSet.Parse(ic.Args); err != nil {
		ic.Printf("Failed to parse flags: %v\n", err)
		return
	}

	sessionID, err := c.selectSession(ctx, ic, sessionID)
	if err != nil {
		ic.Printf("Failed to select session: %v\n", err)
		return
	}

	ic.SetPrompt(BoldGreen(fmt.Sprintf("%s (%s)> ", c.runner.AppName(), sessionID)))
	ic.ShowPrompt(true)
	defer ic.SetPrompt(BoldBlue("blogwriter >> "))

	for {
		text, err := ic.ReadLineErr()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				ic.Println("exiting chat session...")
				return
			}
			ic.Printf("Failed to read message: %v\n", err)
			return
		}
		switch strings.TrimSpace(text) {
		case "":
			continue
		case "exit":
			ic.Println("exiting chat session...")
			return
		case "help":
			ic.Println("Available commands:")
			ic.Println("  artifacts - list the files stored in this session")
			ic.Println("  exit      - exit the chat session")
			ic.Println("  help      - show this help message")
			continue
		case "artifacts":
			var b strings.Builder
			if err := c.ListArtifacts(ctx, sessionID, &b); err != nil {
				ic.Println(red(err.Error()))
				continue
			}
			ic.Print(b.String())
			continue
		}

		if err := c.Turn(ctx, sessionID, text, os.Stdout); err != nil {
			ic.Println(red(err.Error()))
		}
	}
}

// selectSession resolves the session to chat in, asking the user when none
// was given.
func (c *Client) selectSession(ctx context.Context, ic *ishell.Context, sessionID string) (string, error) {
	if sessionID != "" {
		return c.runner.EnsureSession(ctx, c.opts.UserID, sessionID)
	}

	existing, err := c.runner.ListSessions(ctx, c.opts.UserID)
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		return c.runner.CreateSession(ctx, c.opts.UserID, "")
	}

	choices := slices.Concat([]string{sessionCreateNew}, existing)
	idx := ic.MultiChoice(choices, "Select a session:")
	if idx <= 0 {
		return c.runner.CreateSession(ctx, c.opts.UserID, "")
	}
	return existing[idx-1], nil
}

// Ask sends a single message in the configured session, creating it when
// needed.
func (c *Client) Ask(ctx context.Context, text string, out io.Writer) error {
	sessionID, err := c.runner.EnsureSession(ctx, c.opts.UserID, c.opts.SessionID)
	if err != nil {
		return err
	}
	return c.Turn(ctx, sessionID, text, out)
}
