// Package chat is the terminal client for the blog coordinator.
package chat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/danishi/adk-blog-writer-agent/pkg/logging"
)

var (
	BoldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	BoldBlue  = color.New(color.FgBlue, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	cyan      = color.New(color.FgCyan).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

const maxPayload = 300

// Renderer prints agent events to a terminal. Image previews are written to
// the preview directory instead of being printed.
type Renderer struct {
	out        io.Writer
	previewDir string
	sessionID  string
	verbose    bool

	streamed bool
	previews int
	written  []string
}

// NewRenderer creates a Renderer for one session.
func NewRenderer(out io.Writer, previewDir, sessionID string, verbose bool) *Renderer {
	return &Renderer{out: out, previewDir: previewDir, sessionID: sessionID, verbose: verbose}
}

// Previews returns the files written so far.
func (r *Renderer) Previews() []string { return r.written }

// Render prints one event. Partial events stream text as it arrives; the
// final event of a model turn then only contributes what was not streamed.
func (r *Renderer) Render(ev *session.Event) error {
	if ev == nil {
		return nil
	}
	if ev.ErrorMessage != "" || ev.ErrorCode != "" {
		fmt.Fprintln(r.out, red(fmt.Sprintf("error from %s: %s %s", ev.Author, ev.ErrorCode, ev.ErrorMessage)))
	}
	if ev.Content == nil {
		return nil
	}

	if ev.Partial {
		for _, p := range ev.Content.Parts {
			if p != nil && p.Text != "" && !p.Thought {
				fmt.Fprint(r.out, p.Text)
				r.streamed = true
			}
		}
		return nil
	}

	for _, p := range ev.Content.Parts {
		if err := r.renderPart(ev.Author, p); err != nil {
			return err
		}
	}
	if r.streamed {
		fmt.Fprintln(r.out)
	}
	r.streamed = false
	return nil
}

func (r *Renderer) renderPart(author string, p *genai.Part) error {
	switch {
	case p == nil:
	case p.Thought:
		if r.verbose && p.Text != "" {
			fmt.Fprintln(r.out, faint(p.Text))
		}
	case strings.HasPrefix(p.Text, "data:image"):
		path, err := r.savePreview(p.Text)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, BoldGreen("image preview saved to "+path))
	case p.Text != "":
		if !r.streamed {
			fmt.Fprintln(r.out, p.Text)
		}
	case p.FunctionCall != nil:
		fmt.Fprintln(r.out, yellow(fmt.Sprintf("tool_calling: %s %s", p.FunctionCall.Name, r.payload(p.FunctionCall.Args))))
	case p.FunctionResponse != nil:
		fmt.Fprintln(r.out, cyan(fmt.Sprintf("tool_response: %s %s", p.FunctionResponse.Name, r.payload(p.FunctionResponse.Response))))
	case r.verbose:
		fmt.Fprintln(r.out, faint(fmt.Sprintf("(%s sent a part without text)", author)))
	}
	return nil
}

// payload renders tool arguments or results, shortened unless verbose.
func (r *Renderer) payload(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	if r.verbose {
		return string(b)
	}
	return logging.Truncate(string(b), maxPayload, "...")
}

// savePreview decodes a data URI into previewDir and returns the file path.
func (r *Renderer) savePreview(uri string) (string, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("unsupported data URI header %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode image preview: %w", err)
	}

	mimeType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if err := os.MkdirAll(r.previewDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating preview directory: %w", err)
	}
	r.previews++
	name := fmt.Sprintf("%s-%03d%s", r.sessionID, r.previews, extension(mimeType))
	path := filepath.Join(r.previewDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image preview: %w", err)
	}
	r.written = append(r.written, path)
	return path, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".img"
	}
}
