// Package gemini talks to the Generative Language REST API: Imagen models
// synthesize images from a prompt, Gemini models edit an input photo and
// write short texts.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/timmy/ghostbooth/internal/config"
	"github.com/timmy/ghostbooth/internal/domain"
)

// ErrEmptyResponse is returned when a 2xx answer carries no usable payload.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Image is a decoded image payload returned by the API.
type Image struct {
	Data     []byte
	MimeType string
}

// Client wraps a resty client bound to one API key.
type Client struct {
	http       *resty.Client
	baseURL    string
	apiKey     string
	imageModel string
	textModel  string
}

// NewClient creates a Client. A config without API key yields a disabled
// client whose calls fail with domain.ErrUpstreamUnavailable.
// Parameters:
//   - cfg: Gemini configuration (API key, base URL, model names, timeout).
//
// Returns:
//   - *Client: initialized API client.
func NewClient(cfg *config.GeminiConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultGeminiBaseURL
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("x-goog-api-key", cfg.APIKey)
	client.SetTimeout(timeout)

	return &Client{
		http:       client,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		imageModel: cfg.ImageModel,
		textModel:  cfg.TextModel,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Model returns the configured image model.
func (c *Client) Model() string {
	return c.imageModel
}

// TextModel returns the configured text model.
func (c *Client) TextModel() string {
	return c.textModel
}

// Mode tells how the image model is driven: "imagen" models only synthesize.
func (c *Client) Mode() domain.TransformMode {
	if strings.HasPrefix(strings.ToLower(c.imageModel), "imagen") {
		return domain.TransformModeGenerate
	}
	return domain.TransformModeEdit
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int `json:"sampleCount"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}

// GenerateImage synthesizes an image from prompt through the Imagen predict endpoint.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	body, err := c.post(ctx, c.imageModel, "predict", predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1},
	})
	if err != nil {
		return nil, err
	}

	pred := gjson.GetBytes(body, "predictions.0")
	encoded := pred.Get("bytesBase64Encoded").String()
	if encoded == "" {
		return nil, fmt.Errorf("%w: no predictions", ErrEmptyResponse)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("gemini: decode prediction: %w", err)
	}
	mime := pred.Get("mimeType").String()
	if mime == "" {
		mime = "image/png"
	}
	return &Image{Data: data, MimeType: mime}, nil
}

// EditImage sends the source photo with prompt to generateContent and returns
// the first inline image of the answer.
func (c *Client) EditImage(ctx context.Context, prompt string, src []byte, srcMime string) (*Image, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: srcMime, Data: base64.StdEncoding.EncodeToString(src)}},
			},
		}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}
	body, err := c.post(ctx, c.imageModel, "generateContent", req)
	if err != nil {
		return nil, err
	}

	var img *Image
	var decodeErr error
	gjson.GetBytes(body, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		inline := p.Get("inlineData")
		if !inline.Exists() {
			inline = p.Get("inline_data")
		}
		encoded := inline.Get("data").String()
		if encoded == "" {
			return true
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			decodeErr = err
			return false
		}
		mime := inline.Get("mimeType").String()
		if mime == "" {
			mime = inline.Get("mime_type").String()
		}
		if mime == "" {
			mime = "image/png"
		}
		img = &Image{Data: data, MimeType: mime}
		return false
	})
	if decodeErr != nil {
		return nil, fmt.Errorf("gemini: decode inline image: %w", decodeErr)
	}
	if img == nil {
		reason := gjson.GetBytes(body, "candidates.0.finishReason").String()
		return nil, fmt.Errorf("%w: no image part (finish reason %q)", ErrEmptyResponse, reason)
	}
	return img, nil
}

// GenerateText runs prompt through the text model and returns the joined text parts.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	temp := 0.9
	body, err := c.post(ctx, c.textModel, "generateContent", generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{Temperature: &temp},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	gjson.GetBytes(body, "candidates.0.content.parts.#.text").ForEach(func(_, t gjson.Result) bool {
		sb.WriteString(t.String())
		return true
	})
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text", ErrEmptyResponse)
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, model, method string, payload interface{}) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("gemini: no api key: %w", domain.ErrUpstreamUnavailable)
	}
	if model == "" {
		return nil, fmt.Errorf("gemini: no model configured for %s: %w", method, domain.ErrUpstreamUnavailable)
	}

	url := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("gemini: call %s: %w", method, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, parseAPIError(resp.StatusCode(), resp.Header(), resp.Body())
	}
	return resp.Body(), nil
}
