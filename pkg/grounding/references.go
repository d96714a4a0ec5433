package grounding

import "fmt"

// Reference is a deduplicated citation target. Index is 1-based and follows
// the order in which the source first appears among the chunks.
type Reference struct {
	Index int
	URI   string
	Title string
}

// Marker renders the inline citation for the reference.
func (r Reference) Marker() string {
	return fmt.Sprintf("[%d. %s](%s)", r.Index, r.Title, r.URI)
}

// References is the reference table built from a chunk list.
type References struct {
	ordered []Reference
	// byChunk[i] is the position in ordered for chunk i, or -1 when the chunk
	// was skipped.
	byChunk []int
}

// BuildReferences assigns each distinct source the next free index. Chunks
// with neither URI nor title are skipped; a chunk without a URI is keyed by
// its title.
func BuildReferences(chunks []Chunk) References {
	refs := References{byChunk: make([]int, len(chunks))}
	seen := make(map[string]int, len(chunks))
	for i, c := range chunks {
		if c.empty() {
			refs.byChunk[i] = -1
			continue
		}
		key := c.URI
		if key == "" {
			key = "title:" + c.Title
		}
		pos, ok := seen[key]
		if !ok {
			pos = len(refs.ordered)
			seen[key] = pos
			refs.ordered = append(refs.ordered, Reference{
				Index: pos + 1,
				URI:   c.URI,
				Title: c.Title,
			})
		}
		refs.byChunk[i] = pos
	}
	return refs
}

// Len returns the number of distinct references.
func (r References) Len() int { return len(r.ordered) }

// List returns the references in index order.
func (r References) List() []Reference {
	out := make([]Reference, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ForChunk returns the reference for a chunk index.
func (r References) ForChunk(chunk int) (Reference, bool) {
	if chunk < 0 || chunk >= len(r.byChunk) || r.byChunk[chunk] < 0 {
		return Reference{}, false
	}
	return r.ordered[r.byChunk[chunk]], true
}

// sourceURIs lists where each reference points, falling back to the title
// for sources without a URI.
func sourceURIs(refs []Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.URI != "" {
			out = append(out, r.URI)
			continue
		}
		out = append(out, r.Title)
	}
	return out
}
