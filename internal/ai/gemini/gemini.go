// Package gemini talks to Google's Gemini API for the multimodal provider kind.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"google.golang.org/genai"

	"refrigee/internal/ai"
)

const DefaultModel = "gemini-2.5-flash"

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

// client is built per call; configs change under us and the SDK client holds no state we need.
func (a *Adapter) client(ctx context.Context, cfg ai.ProviderConfig) (*genai.Client, error) {
	if strings.TrimSpace(cfg.Credential) == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.Credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.httpClient,
	}
	if cfg.BaseEndpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseEndpoint}
	}
	return genai.NewClient(ctx, cc)
}

func model(cfg ai.ProviderConfig) string {
	if m := strings.TrimSpace(cfg.Model); m != "" {
		return m
	}
	return DefaultModel
}

func (a *Adapter) generate(ctx context.Context, cfg ai.ProviderConfig, contents []*genai.Content, gc *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	client, err := a.client(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	resp, err := client.Models.GenerateContent(ctx, model(cfg), contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func jsonConfig(schema *genai.Schema, temperature float32, system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
		Temperature:       genai.Ptr(temperature),
	}
}

func (a *Adapter) ClassifyItem(ctx context.Context, cfg ai.ProviderConfig, itemName string, lang language.Tag) (ai.Classification, error) {
	text, err := a.generate(ctx, cfg, genai.Text(ai.ClassifyPrompt(itemName, lang)), jsonConfig(classificationSchema(), 0.3, ai.ClassifierSystemPrompt))
	if err != nil {
		return ai.Classification{}, ai.Fail(cfg.ID, ai.OpClassify, err)
	}
	c, err := ai.DecodeClassification(text)
	if err != nil {
		return ai.Classification{}, ai.Fail(cfg.ID, ai.OpClassify, err)
	}
	return c, nil
}

func (a *Adapter) IdentifyFromImage(ctx context.Context, cfg ai.ProviderConfig, image []byte, lang language.Tag) (ai.Identification, error) {
	if len(image) == 0 {
		return ai.Identification{}, ai.Fail(cfg.ID, ai.OpIdentify, fmt.Errorf("empty image"))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, ai.ImageMIME(image)),
			genai.NewPartFromText(ai.IdentifyPrompt(lang)),
		}, genai.RoleUser),
	}
	text, err := a.generate(ctx, cfg, contents, jsonConfig(identificationSchema(), 0.4, ai.ClassifierSystemPrompt))
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
	text, err := a.generate(ctx, cfg, genai.Text(ai.RecipesPrompt(ingredients, partySize, lang)), jsonConfig(recipeListSchema(), 0.7, ai.ChefSystemPrompt))
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
	// higher temperature for variety
	text, err := a.generate(ctx, cfg, genai.Text(ai.RandomRecipePrompt(lang)), jsonConfig(recipeSchema(), 1.1, ai.ChefSystemPrompt))
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
	_, err := a.generate(ctx, cfg, genai.Text(ai.PingPrompt), &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.1)})
	if err != nil {
		return ai.Diagnostic{OK: false, Message: fmt.Sprintf("verification failed: %v", err)}
	}
	return ai.Diagnostic{OK: true, Message: "API key verified"}
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func integer(min float64) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Minimum: genai.Ptr(min)}
}

func classificationProperties() map[string]*genai.Schema {
	return map[string]*genai.Schema{
		"category": {
			Type: genai.TypeString,
			Enum: lo.Map(ai.Categories, func(c ai.Category, _ int) string { return string(c) }),
		},
		"emoji":         str(),
		"shelfLifeDays": integer(0),
	}
}

func classificationSchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: classificationProperties(),
		Required:   []string{"category", "emoji", "shelfLifeDays"},
	}
}

func identificationSchema() *genai.Schema {
	props := classificationProperties()
	props["name"] = str()
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   []string{"name", "category", "emoji", "shelfLifeDays"},
	}
}

func recipeSchema() *genai.Schema {
	match := integer(0)
	match.Maximum = genai.Ptr(100.0)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":            str(),
			"description":     str(),
			"ingredients":     strList(),
			"instructions":    strList(),
			"timeMinutes":     integer(1),
			"matchPercentage": match,
			"calories":        integer(0),
		},
		Required: []string{"name", "ingredients", "instructions", "timeMinutes", "matchPercentage"},
	}
}

func recipeListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"recipes": {Type: genai.TypeArray, Items: recipeSchema()},
		},
		Required: []string{"recipes"},
	}
}
