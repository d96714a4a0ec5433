// Package imagegen generates eye-catch images through a hosted image model
// and stores the result as a session artifact.
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"
)

const (
	ProviderImagen = "imagen"
	ProviderOpenAI = "openai"

	DefaultImagenModel = "imagen-3.0-generate-002"
	DefaultOpenAIModel = "gpt-image-1"

	defaultMIMEType = "image/png"
)

// Image is one generated image.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generator produces up to n images for a prompt. An empty slice with a nil
// error means the model returned nothing.
type Generator interface {
	Provider() string
	Generate(ctx context.Context, prompt string, n int) ([]Image, error)
}

// imagesAPI is the part of genai.Models used for Imagen.
type imagesAPI interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GenAIGenerator calls Imagen through the genai client.
type GenAIGenerator struct {
	model  string
	images imagesAPI
}

// NewGenAIGenerator creates a generator from genai client settings. Imagen is
// served by Vertex AI, so cfg normally selects genai.BackendVertexAI.
func NewGenAIGenerator(ctx context.Context, model string, cfg *genai.ClientConfig) (*GenAIGenerator, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGenAIGenerator(model, client.Models), nil
}

func newGenAIGenerator(model string, images imagesAPI) *GenAIGenerator {
	if model == "" {
		model = DefaultImagenModel
	}
	return &GenAIGenerator{model: model, images: images}
}

func (g *GenAIGenerator) Provider() string { return ProviderImagen }

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string, n int) ([]Image, error) {
	resp, err := g.images.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(n),
	})
	if err != nil {
		return nil, fmt.Errorf("imagen: %w", err)
	}
	if resp == nil {
		return nil, nil
	}
	images := make([]Image, 0, len(resp.GeneratedImages))
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := gi.Image.MIMEType
		if mimeType == "" {
			mimeType = defaultMIMEType
		}
		images = append(images, Image{Data: gi.Image.ImageBytes, MIMEType: mimeType})
	}
	return images, nil
}

// OpenAIGenerator calls the OpenAI images endpoint and asks for base64 output.
type OpenAIGenerator struct {
	model  string
	client openai.Client
}

// NewOpenAIGenerator creates a generator. Request options carry the API key
// and, for compatible gateways, a base URL.
func NewOpenAIGenerator(model string, opts ...option.RequestOption) *OpenAIGenerator {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{model: model, client: openai.NewClient(opts...)}
}

func (g *OpenAIGenerator) Provider() string { return ProviderOpenAI }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, n int) ([]Image, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.model),
		N:      openai.Int(int64(n)),
	}
	// gpt-image models always return base64 and reject response_format.
	if g.model == string(openai.ImageModelDallE2) || g.model == string(openai.ImageModelDallE3) {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}
	res, err := g.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai/image: %w", err)
	}
	mimeType := openAIMIMEType(res.OutputFormat)
	images := make([]Image, 0, len(res.Data))
	for _, img := range res.Data {
		if img.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai/image: decode response: %w", err)
		}
		images = append(images, Image{Data: data, MIMEType: mimeType})
	}
	return images, nil
}

func openAIMIMEType(format openai.ImagesResponseOutputFormat) string {
	switch format {
	case openai.ImagesResponseOutputFormatJPEG:
		return "image/jpeg"
	case openai.ImagesResponseOutputFormatWebP:
		return "image/webp"
	default:
		return defaultMIMEType
	}
}

var (
	_ Generator = (*GenAIGenerator)(nil)
	_ Generator = (*OpenAIGenerator)(nil)
)
