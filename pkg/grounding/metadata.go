// Package grounding rewrites search-grounded model answers so that every
// supported segment is followed by a markdown citation pointing at its source.
package grounding

import (
	"google.golang.org/genai"
)

// Chunk is one piece of web evidence returned with a grounded answer.
type Chunk struct {
	URI   string
	Title string
}

// empty reports whether the chunk carries nothing that could be cited.
func (c Chunk) empty() bool {
	return c.URI == "" && c.Title == ""
}

// Segment is the span of answer text a support refers to. StartIndex and
// EndIndex are byte offsets into the part and are kept for diagnostics only;
// matching is done on Text.
type Segment struct {
	Text       string
	PartIndex  int
	StartIndex int
	EndIndex   int
}

// Support maps a segment of the answer to the chunks that back it.
type Support struct {
	Segment      Segment
	ChunkIndices []int
}

// Metadata is the grounding information attached to one model response.
// The zero value is valid and annotates nothing.
type Metadata struct {
	Chunks   []Chunk
	Supports []Support
}

// Empty reports whether there is nothing to annotate.
func (m Metadata) Empty() bool {
	return len(m.Chunks) == 0 || len(m.Supports) == 0
}

// FromGenAI converts genai grounding metadata. Absent fields become empty
// values; nil chunks and supports are kept as empty placeholders so that chunk
// indices stay aligned with the original slice.
func FromGenAI(gm *genai.GroundingMetadata) Metadata {
	if gm == nil {
		return Metadata{}
	}

	md := Metadata{
		Chunks:   make([]Chunk, 0, len(gm.GroundingChunks)),
		Supports: make([]Support, 0, len(gm.GroundingSupports)),
	}
	for _, c := range gm.GroundingChunks {
		md.Chunks = append(md.Chunks, chunkFromGenAI(c))
	}
	for _, s := range gm.GroundingSupports {
		if s == nil {
			continue
		}
		sup := Support{ChunkIndices: make([]int, 0, len(s.GroundingChunkIndices))}
		if s.Segment != nil {
			sup.Segment = Segment{
				Text:       s.Segment.Text,
				PartIndex:  int(s.Segment.PartIndex),
				StartIndex: int(s.Segment.StartIndex),
				EndIndex:   int(s.Segment.EndIndex),
			}
		}
		for _, idx := range s.GroundingChunkIndices {
			sup.ChunkIndices = append(sup.ChunkIndices, int(idx))
		}
		md.Supports = append(md.Supports, sup)
	}
	return md
}

func chunkFromGenAI(c *genai.GroundingChunk) Chunk {
	switch {
	case c == nil:
		return Chunk{}
	case c.Web != nil:
		return Chunk{URI: c.Web.URI, Title: c.Web.Title}
	case c.RetrievedContext != nil:
		return Chunk{URI: c.RetrievedContext.URI, Title: c.RetrievedContext.Title}
	default:
		return Chunk{}
	}
}
