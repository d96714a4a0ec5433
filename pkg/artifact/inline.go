package artifact

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultName is the logical name the eye-catch image is stored under.
const DefaultName = "image.png"

const missingPrefix = "_none_"

// Placeholder is the token a model writes where the named artifact belongs.
func Placeholder(name string) string {
	return "<artifact>" + name + "</artifact>"
}

// MissingPlaceholder marks a placeholder whose artifact was never produced.
func MissingPlaceholder(name string) string {
	return "<artifact>" + missingPrefix + name + "</artifact>"
}

// Inliner splices a rendered preview of one named artifact into model turns.
type Inliner struct {
	Name     string
	Renderer Renderer
}

// NewInliner builds an Inliner for the named artifact. An empty name selects
// DefaultName.
func NewInliner(name string, width, quality int) *Inliner {
	if name == "" {
		name = DefaultName
	}
	return &Inliner{Name: name, Renderer: NewRenderer(width, quality)}
}

// InlineResult reports what a pass over a response did.
type InlineResult struct {
	// Response is the input itself when nothing changed.
	Response *model.LLMResponse
	Previews int
	Missing  int
	// Found reports whether the artifact existed when it was looked up.
	Found bool
}

// Inline resolves the artifact for every text part of resp. The artifact is
// looked up at most once; when it exists a data URI part is appended after
// each text part, and when it does not every placeholder is rewritten to its
// missing form. resp is never modified.
func (in *Inliner) Inline(ctx context.Context, store Store, resp *model.LLMResponse) (InlineResult, error) {
	res := InlineResult{Response: resp}
	if resp == nil || resp.Content == nil || len(resp.Content.Parts) == 0 {
		return res, nil
	}

	var (
		loaded  bool
		preview string
	)
	load := func() error {
		if loaded {
			return nil
		}
		loaded = true
		part, err := store.Load(ctx, in.Name)
		if err != nil {
			return err
		}
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			return nil
		}
		preview, err = in.Renderer.Render(part.InlineData.Data)
		if err != nil {
			return fmt.Errorf("failed to render artifact %q: %w", in.Name, err)
		}
		res.Found = true
		return nil
	}

	placeholder := Placeholder(in.Name)
	parts := make([]*genai.Part, 0, len(resp.Content.Parts)+1)
	changed := false
	for _, part := range resp.Content.Parts {
		if !isText(part) {
			parts = append(parts, part)
			continue
		}
		if err := load(); err != nil {
			return InlineResult{Response: resp}, err
		}
		if !res.Found {
			if n := strings.Count(part.Text, placeholder); n > 0 {
				cp := *part
				cp.Text = strings.ReplaceAll(part.Text, placeholder, MissingPlaceholder(in.Name))
				parts = append(parts, &cp)
				res.Missing += n
				changed = true
				continue
			}
			parts = append(parts, part)
			continue
		}
		parts = append(parts, part, genai.NewPartFromText(preview))
		res.Previews++
		changed = true
	}
	if !changed {
		return res, nil
	}

	out := *resp
	content := *resp.Content
	content.Parts = parts
	out.Content = &content
	res.Response = &out
	return res, nil
}

// IsPreview reports whether the part is a text part holding an image data URI.
func IsPreview(part *genai.Part) bool {
	return part != nil && strings.HasPrefix(part.Text, "data:image/")
}

func isText(part *genai.Part) bool {
	return part != nil && !part.Thought && part.Text != "" &&
		part.FunctionCall == nil && part.FunctionResponse == nil &&
		!IsPreview(part)
}
