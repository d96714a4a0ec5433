package grounding

import (
	"sort"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Result describes what an annotation pass did.
type Result struct {
	Response   *model.LLMResponse
	Citations  int
	References []Reference
}

// Annotate returns a copy of resp whose text parts carry citation markers
// derived from the response's grounding metadata. The argument is never
// modified; when there is nothing to annotate it is returned as is.
func Annotate(resp *model.LLMResponse) *model.LLMResponse {
	return AnnotateResponse(resp).Response
}

// AnnotateResponse is Annotate with statistics about the pass.
func AnnotateResponse(resp *model.LLMResponse) Result {
	if skipResponse(resp) {
		return Result{Response: resp}
	}
	md := FromGenAI(resp.GroundingMetadata)
	if md.Empty() {
		return Result{Response: resp}
	}
	refs := BuildReferences(md.Chunks)
	if refs.Len() == 0 {
		return Result{Response: resp}
	}

	parts := make([]*genai.Part, len(resp.Content.Parts))
	total := 0
	for i, p := range resp.Content.Parts {
		if p == nil || p.Text == "" || p.Thought {
			parts[i] = p
			continue
		}
		text, n := annotateText(p.Text, md.Supports, refs)
		if n == 0 {
			parts[i] = p
			continue
		}
		cp := *p
		cp.Text = text
		parts[i] = &cp
		total += n
	}
	if total == 0 {
		return Result{Response: resp, References: refs.List()}
	}

	out := *resp
	content := *resp.Content
	content.Parts = parts
	out.Content = &content
	return Result{Response: &out, Citations: total, References: refs.List()}
}

// skipResponse covers the responses that are passed through untouched:
// nothing to read, an error, or a function call turn.
func skipResponse(resp *model.LLMResponse) bool {
	if resp == nil || resp.Content == nil || len(resp.Content.Parts) == 0 {
		return true
	}
	if resp.ErrorCode != "" || resp.ErrorMessage != "" {
		return true
	}
	hasText := false
	for _, p := range resp.Content.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil {
			return true
		}
		if p.Text != "" {
			hasText = true
		}
	}
	return !hasText
}

func annotateText(text string, supports []Support, refs References) (string, int) {
	lines := strings.Split(text, "\n")
	total := 0
	for i, line := range lines {
		annotated, n := annotateLine(line, supports, refs)
		lines[i] = annotated
		total += n
	}
	if total == 0 {
		return text, 0
	}
	return strings.Join(lines, "\n"), total
}

// insertion is a marker queued for position at in the original line.
type insertion struct {
	at   int
	text string
}

// annotateLine applies every matching support to line. Segments are matched
// against the line as given, never inside a citation marker, and new markers
// go after any markers already following the segment. A marker that is
// already in that run is not added again.
func annotateLine(line string, supports []Support, refs References) (string, int) {
	all := allMarkers(refs)
	spans := markerSpans(line, all)

	var pending []insertion
	queued := map[int]map[string]bool{}
	inserted := 0
	for _, s := range supports {
		seg := s.Segment.Text
		if seg == "" {
			continue
		}
		markers := supportMarkers(s.ChunkIndices, refs)
		if len(markers) == 0 {
			continue
		}
		pos := indexOutside(line, seg, spans)
		if pos < 0 {
			continue
		}

		at, present := markerRun(line, pos+len(seg), all)
		if queued[at] == nil {
			queued[at] = map[string]bool{}
		}
		added := false
		for _, m := range markers {
			if present[m] || queued[at][m] {
				continue
			}
			queued[at][m] = true
			pending = append(pending, insertion{at: at, text: " " + m})
			added = true
		}
		if added {
			inserted++
		}
	}
	if len(pending) == 0 {
		return line, 0
	}

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].at < pending[j].at })
	var b strings.Builder
	last := 0
	for _, ins := range pending {
		b.WriteString(line[last:ins.at])
		b.WriteString(ins.text)
		last = ins.at
	}
	b.WriteString(line[last:])
	return b.String(), inserted
}

// supportMarkers returns the distinct markers for a support's chunks in chunk
// order.
func supportMarkers(chunkIndices []int, refs References) []string {
	var out []string
	used := make(map[int]bool, len(chunkIndices))
	for _, ci := range chunkIndices {
		ref, ok := refs.ForChunk(ci)
		if !ok || used[ref.Index] {
			continue
		}
		used[ref.Index] = true
		out = append(out, ref.Marker())
	}
	return out
}

func allMarkers(refs References) []string {
	out := make([]string, 0, refs.Len())
	for _, r := range refs.ordered {
		out = append(out, r.Marker())
	}
	return out
}

type span struct{ start, end int }

// markerSpans locates every known marker in line.
func markerSpans(line string, markers []string) []span {
	var spans []span
	for _, m := range markers {
		for from := 0; ; {
			i := strings.Index(line[from:], m)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, span{start: start, end: start + len(m)})
			from = start + len(m)
		}
	}
	return spans
}

// indexOutside is strings.Index restricted to matches that do not overlap
// any of spans.
func indexOutside(line, seg string, spans []span) int {
	for from := 0; from <= len(line)-len(seg); {
		i := strings.Index(line[from:], seg)
		if i < 0 {
			return -1
		}
		pos := from + i
		if !overlaps(pos, pos+len(seg), spans) {
			return pos
		}
		from = pos + 1
	}
	return -1
}

func overlaps(start, end int, spans []span) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// markerRun skips the markers that directly follow pos, each preceded by a
// single space. It returns where the run ends and which markers it holds.
func markerRun(line string, pos int, markers []string) (int, map[string]bool) {
	present := map[string]bool{}
	for {
		found := false
		for _, m := range markers {
			if strings.HasPrefix(line[pos:], " "+m) {
				present[m] = true
				pos += 1 + len(m)
				found = true
				break
			}
		}
		if !found {
			return pos, present
		}
	}
}
