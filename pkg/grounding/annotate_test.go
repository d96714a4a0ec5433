package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func webChunk(uri, title string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{URI: uri, Title: title}}
}

func support(text string, chunks ...int32) *genai.GroundingSupport {
	return &genai.GroundingSupport{
		Segment:               &genai.Segment{Text: text},
		GroundingChunkIndices: chunks,
	}
}

func textResponse(text string, gm *genai.GroundingMetadata) *model.LLMResponse {
	return &model.LLMResponse{
		Content:           genai.NewContentFromText(text, genai.RoleModel),
		GroundingMetadata: gm,
	}
}

func TestAnnotate_SingleSupport(t *testing.T) {
	resp := textResponse("Tokyo is the capital of Japan.", &genai.GroundingMetadata{
		GroundingChunks:   []*genai.GroundingChunk{webChunk("https://example.com", "Wikipedia")},
		GroundingSupports: []*genai.GroundingSupport{support("Tokyo", 0)},
	})

	out := Annotate(resp)

	require.NotNil(t, out)
	assert.Equal(t, "Tokyo [1. Wikipedia](https://example.com) is the capital of Japan.", out.Content.Parts[0].Text)
	assert.Equal(t, "Tokyo is the capital of Japan.", resp.Content.Parts[0].Text, "input must not be mutated")
	assert.NotSame(t, resp, out)
}

func TestAnnotate_NoMetadataIsIdentity(t *testing.T) {
	resp := textResponse("Nothing to cite here.\nSecond line.", nil)

	out := Annotate(resp)

	assert.Same(t, resp, out)
	assert.Equal(t, "Nothing to cite here.\nSecond line.", out.Content.Parts[0].Text)
}

func TestAnnotate_Idempotent(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			webChunk("https://a.example", "A"),
			webChunk("https://b.example", "B"),
		},
		GroundingSupports: []*genai.GroundingSupport{
			support("Tokyo", 0),
			support("capital of Japan", 1),
		},
	}
	first := Annotate(textResponse("Tokyo is the capital of Japan.", gm))
	second := Annotate(first)

	want := "Tokyo [1. A](https://a.example) is the capital of Japan [2. B](https://b.example)."
	assert.Equal(t, want, first.Content.Parts[0].Text)
	assert.Equal(t, want, second.Content.Parts[0].Text)
}

func TestAnnotate_PassThroughCases(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks:   []*genai.GroundingChunk{webChunk("https://example.com", "Example")},
		GroundingSupports: []*genai.GroundingSupport{support("Tokyo", 0)},
	}

	tests := []struct {
		name string
		resp *model.LLMResponse
	}{
		{"nil response", nil},
		{"no content", &model.LLMResponse{GroundingMetadata: gm}},
		{"empty parts", &model.LLMResponse{Content: &genai.Content{Role: genai.RoleModel}, GroundingMetadata: gm}},
		{"function call", &model.LLMResponse{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				genai.NewPartFromText("Tokyo"),
				genai.NewPartFromFunctionCall("google_search", map[string]any{"q": "Tokyo"}),
			}},
			GroundingMetadata: gm,
		}},
		{"error present", &model.LLMResponse{
			Content:           genai.NewContentFromText("Tokyo", genai.RoleModel),
			GroundingMetadata: gm,
			ErrorCode:         "SAFETY",
		}},
		{"chunks without supports", textResponse("Tokyo", &genai.GroundingMetadata{
			GroundingChunks: []*genai.GroundingChunk{webChunk("https://example.com", "Example")},
		})},
		{"supports without chunks", textResponse("Tokyo", &genai.GroundingMetadata{
			GroundingSupports: []*genai.GroundingSupport{support("Tokyo", 0)},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.resp, Annotate(tt.resp))
		})
	}
}

func TestAnnotate_MultipleChunksAndLines(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			webChunk("https://a.example", "A"),
			webChunk("https://b.example", "B"),
			webChunk("https://a.example", "A again"),
			nil,
		},
		GroundingSupports: []*genai.GroundingSupport{
			support("Kyoto", 1, 2),
			support("temples", 0, 3, 9),
			nil,
			{GroundingChunkIndices: []int32{0}},
		},
	}
	resp := textResponse("1. Kyoto has many temples.\n2. Osaka is known for food.\n3. Kyoto again.", gm)

	out := Annotate(resp)

	want := "1. Kyoto [2. B](https://b.example) [1. A](https://a.example) has many temples [1. A](https://a.example).\n" +
		"2. Osaka is known for food.\n" +
		"3. Kyoto [2. B](https://b.example) [1. A](https://a.example) again."
	assert.Equal(t, want, out.Content.Parts[0].Text)
}

func TestAnnotate_OnlyFirstOccurrencePerLine(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks:   []*genai.GroundingChunk{webChunk("https://example.com", "Example")},
		GroundingSupports: []*genai.GroundingSupport{support("Go", 0)},
	}

	out := Annotate(textResponse("Go and Go again", gm))

	assert.Equal(t, "Go [1. Example](https://example.com) and Go again", out.Content.Parts[0].Text)
}

func TestAnnotate_SkipsThoughtParts(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks:   []*genai.GroundingChunk{webChunk("https://example.com", "Example")},
		GroundingSupports: []*genai.GroundingSupport{support("Tokyo", 0)},
	}
	resp := &model.LLMResponse{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
			{Text: "Thinking about Tokyo", Thought: true},
			{Text: "Tokyo it is."},
		}},
		GroundingMetadata: gm,
	}

	out := Annotate(resp)

	require.Len(t, out.Content.Parts, 2)
	assert.Same(t, resp.Content.Parts[0], out.Content.Parts[0])
	assert.Equal(t, "Tokyo [1. Example](https://example.com) it is.", out.Content.Parts[1].Text)
}

func TestAnnotateResponse_Stats(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			webChunk("https://a.example", "A"),
			webChunk("https://b.example", "B"),
		},
		GroundingSupports: []*genai.GroundingSupport{support("alpha", 0), support("beta", 1)},
	}

	res := AnnotateResponse(textResponse("alpha\nbeta\ngamma", gm))

	assert.Equal(t, 2, res.Citations)
	require.Len(t, res.References, 2)
	assert.Equal(t, "https://b.example", res.References[1].URI)
}

func TestAnnotate_IdempotentWhenSupportsEndTogether(t *testing.T) {
	chunks := []*genai.GroundingChunk{
		webChunk("https://a.example", "A"),
		webChunk("https://b.example", "B"),
	}
	tests := []struct {
		name     string
		text     string
		supports []*genai.GroundingSupport
		want     string
	}{
		{
			name:     "same segment",
			text:     "Tokyo is big.",
			supports: []*genai.GroundingSupport{support("Tokyo", 0), support("Tokyo", 1)},
			want:     "Tokyo [1. A](https://a.example) [2. B](https://b.example) is big.",
		},
		{
			name:     "suffix segment",
			text:     "Tokyo is the capital city.",
			supports: []*genai.GroundingSupport{support("capital", 0), support("the capital", 1)},
			want:     "Tokyo is the capital [1. A](https://a.example) [2. B](https://b.example) city.",
		},
		{
			name:     "overlapping chunks",
			text:     "Tokyo is big.",
			supports: []*genai.GroundingSupport{support("Tokyo", 0, 1), support("Tokyo", 1)},
			want:     "Tokyo [1. A](https://a.example) [2. B](https://b.example) is big.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gm := &genai.GroundingMetadata{GroundingChunks: chunks, GroundingSupports: tt.supports}

			first := Annotate(textResponse(tt.text, gm))
			second := Annotate(first)

			assert.Equal(t, tt.want, first.Content.Parts[0].Text)
			assert.Equal(t, tt.want, second.Content.Parts[0].Text)
		})
	}
}

func TestAnnotate_SegmentInsideMarkerTitle(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			webChunk("https://ja.wikipedia.org", "Wikipedia"),
			webChunk("https://b.example", "B"),
		},
		GroundingSupports: []*genai.GroundingSupport{
			support("Tokyo", 0),
			support("Wikipedia", 1),
		},
	}

	first := Annotate(textResponse("Tokyo facts come from Wikipedia.", gm))
	second := Annotate(first)

	want := "Tokyo [1. Wikipedia](https://ja.wikipedia.org) facts come from Wikipedia [2. B](https://b.example)."
	assert.Equal(t, want, first.Content.Parts[0].Text)
	assert.Equal(t, want, second.Content.Parts[0].Text)
}

func TestAnnotate_SegmentOnlyInsideMarker(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			webChunk("https://ja.wikipedia.org", "Wikipedia"),
			webChunk("https://b.example", "B"),
		},
		GroundingSupports: []*genai.GroundingSupport{support("Wikipedia", 1)},
	}
	resp := textResponse("Tokyo [1. Wikipedia](https://ja.wikipedia.org) is big.", gm)

	assert.Same(t, resp, Annotate(resp))
}

func TestAnnotate_JapaneseText(t *testing.T) {
	gm := &genai.GroundingMetadata{
		GroundingChunks:   []*genai.GroundingChunk{webChunk("https://kyoto.example", "京都観光")},
		GroundingSupports: []*genai.GroundingSupport{support("紅葉の名所", 0)},
	}

	out := Annotate(textResponse("嵐山は紅葉の名所です。", gm))

	assert.Equal(t, "嵐山は紅葉の名所 [1. 京都観光](https://kyoto.example)です。", out.Content.Parts[0].Text)
}
