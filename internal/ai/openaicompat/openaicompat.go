// Package openaicompat serves every provider that speaks the OpenAI chat completions
// protocol (OpenAI itself, DeepSeek, Zhipu, Doubao ...). Only the base endpoint and model differ.
package openaicompat

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/text/language"

	"refrigee/internal/ai"
)

const DefaultBaseEndpoint = "https://api.openai.com/v1"

type Adapter struct {
	httpClient *http.Client
	timeout    time.Duration
}

var _ ai.Adapter = (*Adapter)(nil)

func New(httpClient *http.Client, timeout time.Duration) *Adapter {
	if httpClient == nil {
		httpClient = ai.NewHTTPClient(timeout, 0)
	}
	if timeout <= 0 {
		timeout = ai.DefaultRequestTimeout
	}
	return &Adapter{httpClient: httpClient, timeout: timeout}
}

func (a *Adapter) client(cfg ai.ProviderConfig) (openai.Client, error) {
	if strings.TrimSpace(cfg.Credential) == "" {
		return openai.Client{}, fmt.Errorf("API key not configured")
	}
	base := strings.TrimSpace(cfg.BaseEndpoint)
	if base == "" {
		base = DefaultBaseEndpoint
	}
	return openai.NewClient(
		option.WithAPIKey(cfg.Credential),
		option.WithBaseURL(strings.TrimSuffix(base, "/")+"/"),
		option.WithHTTPClient(a.httpClient),
		// retries live in the shared http client
		option.WithMaxRetries(0),
	), nil
}

type request struct {
	schemaName  string
	schema      map[string]any
	system      string
	user        openai.ChatCompletionMessageParamUnion
	temperature float64
}

func (a *Adapter) complete(ctx context.Context, cfg ai.ProviderConfig, req request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	client, err := a.client(cfg)
	if err != nil {
		return "", err
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.system),
			req.user,
		},
		Temperature: openai.Float(req.temperature),
	}
	if req.schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.schemaName,
					Schema: req.schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}

func (a *Adapter) ClassifyItem(ctx context.Context, cfg ai.ProviderConfig, itemName string, lang language.Tag) (ai.Classification, error) {
	text, err := a.complete(ctx, cfg, request{
		schemaName:  "classification",
		schema:      ai.ClassificationSchema(),
		system:      ai.ClassifierSystemPrompt,
		user:        openai.UserMessage(ai.ClassifyPrompt(itemName, lang)),
		temperature: 0.3,
	})
	if err != nil {
		return ai.Classification{}, ai.Fail(cfg.ID, ai.OpClassify, err)
	}
	c, err := ai.DecodeClassification(text)
	if err != nil {
		return ai.Classification{}, ai.Fail(cfg.ID, ai.OpClassify, err)
	}
	return c, nil
}

// IdentifyFromImage sends the image inline as a data URL. Text-only models reject it and the
// caller falls back.
func (a *Adapter) IdentifyFromImage(ctx context.Context, cfg ai.ProviderConfig, image []byte, lang language.Tag) (ai.Identification, error) {
	if len(image) == 0 {
		return ai.Identification{}, ai.Fail(cfg.ID, ai.OpIdentify, fmt.Errorf("empty image"))
	}
	dataURL := "data:" + ai.ImageMIME(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
	user := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		openai.TextContentPart(ai.IdentifyPrompt(lang)),
	})
	text, err := a.complete(ctx, cfg, request{
		schemaName:  "identification",
		schema:      ai.IdentificationSchema(),
		system:      ai.ClassifierSystemPrompt,
		user:        user,
		temperature: 0.4,
	})
	if err != nil {
		return ai.Identification{}, ai.Fail(cfg.ID, ai.OpIdentify, err)
	}
	id, err := ai.DecodeIdentification(text)
	if err != nil {
		return ai.Identification{}, ai.Fail(cfg.ID, ai.OpIdentify, err)
	}
	return id, nil
}

func (a *Adapter) GenerateRecipes(ctx context.Context, cfg ai.ProviderConfig, ingredients []string, partySize int, lang language.Tag) ([]ai.Recipe, error) {
	text, err := a.complete(ctx, cfg, request{
		schemaName:  "recipes",
		schema:      ai.RecipeListSchema(),
		system:      ai.ChefSystemPrompt,
		user:        openai.UserMessage(ai.RecipesPrompt(ingredients, partySize, lang)),
		temperature: 0.7,
	})
	if err != nil {
		return nil, ai.Fail(cfg.ID, ai.OpGenerateRecipes, err)
	}
	recipes, err := ai.DecodeRecipes(text)
	if err != nil {
		return nil, ai.Fail(cfg.ID, ai.OpGenerateRecipes, err)
	}
	return recipes, nil
}

func (a *Adapter) RecommendRandom(ctx context.Context, cfg ai.ProviderConfig, lang language.Tag) (ai.Recipe, error) {
	text, err := a.complete(ctx, cfg, request{
		schemaName:  "recipe",
		schema:      ai.RecipeSchema(),
		system:      ai.ChefSystemPrompt,
		user:        openai.UserMessage(ai.RandomRecipePrompt(lang)),
		temperature: 1.1,
	})
	if err != nil {
		return ai.Recipe{}, ai.Fail(cfg.ID, ai.OpRecommendRandom, err)
	}
	r, err := ai.DecodeRecipe(text)
	if err != nil {
		return ai.Recipe{}, ai.Fail(cfg.ID, ai.OpRecommendRandom, err)
	}
	return r, nil
}

func (a *Adapter) TestConnection(ctx context.Context, cfg ai.ProviderConfig) ai.Diagnostic {
	_, err := a.complete(ctx, cfg, request{
		system:      ai.ClassifierSystemPrompt,
		user:        openai.UserMessage(ai.PingPrompt),
		temperature: 0.1,
	})
	if err != nil {
		return ai.Diagnostic{OK: false, Message: fmt.Sprintf("verification failed: %v", err)}
	}
	return ai.Diagnostic{OK: true, Message: fmt.Sprintf("connected to %s (%s)", cfg.DisplayName, cfg.Model)}
}
