package imagegen

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/danishi/adk-blog-writer-agent/pkg/artifact"
	"github.com/danishi/adk-blog-writer-agent/pkg/metrics"
)

type fakeGenerator struct {
	images  []Image
	err     error
	prompts []string
	counts  []int
}

func (f *fakeGenerator) Provider() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, prompt string, n int) ([]Image, error) {
	f.prompts = append(f.prompts, prompt)
	f.counts = append(f.counts, n)
	return f.images, f.err
}

type recordingStore struct {
	*artifact.MemoryStore
	saveErr error
}

func (s *recordingStore) Save(ctx context.Context, name string, part *genai.Part) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, name, part)
}

func TestRun_EmptyResultFailsWithoutWrite(t *testing.T) {
	gen := &fakeGenerator{}
	store := artifact.NewMemoryStore()
	before := testutil.ToFloat64(metrics.ImageGenerations.WithLabelValues("fake", StatusFailed))

	res, err := NewTool(gen, "", logr.Discard()).Run(context.Background(), store, "a sunset over Kyoto")

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, res.Filename)
	assert.Zero(t, store.Saves())
	assert.Equal(t, []int{1}, gen.counts, "exactly one image is requested")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ImageGenerations.WithLabelValues("fake", StatusFailed)))
}

func TestRun_GeneratorErrorFails(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	store := artifact.NewMemoryStore()

	res, err := NewTool(gen, "", logr.Discard()).Run(context.Background(), store, "a cat")

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Detail, "quota exceeded")
	assert.Zero(t, store.Saves())
	assert.Len(t, gen.prompts, 1, "no retries")
}

func TestRun_EmptyPromptSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{images: []Image{{Data: []byte("png")}}}

	res, err := NewTool(gen, "", logr.Discard()).Run(context.Background(), artifact.NewMemoryStore(), "  ")

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, gen.prompts)
}

func TestRun_SuccessStoresFirstImage(t *testing.T) {
	gen := &fakeGenerator{images: []Image{
		{Data: []byte("first"), MIMEType: "image/jpeg"},
		{Data: []byte("second")},
	}}
	store := artifact.NewMemoryStore()
	before := testutil.ToFloat64(metrics.ImageGenerations.WithLabelValues("fake", StatusSuccess))

	res, err := NewTool(gen, "", logr.Discard()).Run(context.Background(), store, "a cat")

	require.NoError(t, err)
	assert.Equal(t, Result{
		Status:   StatusSuccess,
		Detail:   "Image generated successfully and stored in artifacts.",
		Filename: "image.png",
	}, res)
	assert.Equal(t, 1, store.Saves())
	part, err := store.Load(context.Background(), "image.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), part.InlineData.Data)
	assert.Equal(t, "image/jpeg", part.InlineData.MIMEType)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ImageGenerations.WithLabelValues("fake", StatusSuccess)))
}

func TestRun_OverwritesPreviousImage(t *testing.T) {
	store := artifact.NewMemoryStore()
	tl := NewTool(&fakeGenerator{images: []Image{{Data: []byte("old")}}}, "cover.png", logr.Discard())
	_, err := tl.Run(context.Background(), store, "one")
	require.NoError(t, err)

	tl = NewTool(&fakeGenerator{images: []Image{{Data: []byte("new")}}}, "cover.png", logr.Discard())
	res, err := tl.Run(context.Background(), store, "two")
	require.NoError(t, err)

	assert.Equal(t, "cover.png", res.Filename)
	part, err := store.Load(context.Background(), "cover.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), part.InlineData.Data)
	assert.Equal(t, "image/png", part.InlineData.MIMEType, "missing mime type defaults to png")
}

func TestRun_StoreErrorFails(t *testing.T) {
	store := &recordingStore{MemoryStore: artifact.NewMemoryStore(), saveErr: errors.New("disk full")}

	res, err := NewTool(&fakeGenerator{images: []Image{{Data: []byte("x")}}}, "", logr.Discard()).
		Run(context.Background(), store, "a cat")

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Detail, "disk full")
}

func TestADKTool(t *testing.T) {
	tl, err := NewTool(&fakeGenerator{}, "", logr.Discard()).ADKTool()

	require.NoError(t, err)
	assert.Equal(t, ToolName, tl.Name())
	assert.Contains(t, tl.Description(), "<artifact>image.png</artifact>")
}
