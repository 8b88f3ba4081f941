package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"refrigee/internal/ai"
)

func fakeGemini(t *testing.T, status int, text string) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": text}},
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func testConfig(url string) ai.ProviderConfig {
	return ai.ProviderConfig{
		ID:           "gemini",
		Kind:         ai.KindMultimodal,
		DisplayName:  "Gemini",
		Credential:   "test-key",
		BaseEndpoint: url,
		Model:        "gemini-test",
		Enabled:      true,
	}
}

func newAdapter() *Adapter {
	return New(&http.Client{Timeout: 5 * time.Second}, 5*time.Second)
}

func TestClassifyItem(t *testing.T) {
	srv, bodies := fakeGemini(t, http.StatusOK, `{"category":"Fruit","emoji":"🍎","shelfLifeDays":14}`)

	c, err := newAdapter().ClassifyItem(context.Background(), testConfig(srv.URL), "apple", language.English)
	require.NoError(t, err)
	assert.Equal(t, ai.CategoryFruit, c.Category)
	assert.Equal(t, "🍎", c.Emoji)
	assert.Equal(t, 14, c.ShelfLifeDays)
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "apple")
	assert.Contains(t, (*bodies)[0], "application/json")
}

func TestClassifyItemBadPayload(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusOK, `{"category":"Spaceship","emoji":"🚀","shelfLifeDays":1}`)

	_, err := newAdapter().ClassifyItem(context.Background(), testConfig(srv.URL), "rocket", language.English)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrProviderCallFailed))

	var ce *ai.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "gemini", ce.Provider)
	assert.Equal(t, ai.OpClassify, ce.Op)
}

func TestServerErrorIsCallFailure(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusInternalServerError, "")

	_, err := newAdapter().GenerateRecipes(context.Background(), testConfig(srv.URL), []string{"egg"}, 2, language.English)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrProviderCallFailed))
}

func TestMissingCredential(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Credential = ""

	_, err := newAdapter().RecommendRandom(context.Background(), cfg, language.English)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrProviderCallFailed))

	d := newAdapter().TestConnection(context.Background(), cfg)
	assert.False(t, d.OK)
	assert.Contains(t, d.Message, "API key")
}

func TestIdentifyFromImageSendsInlineData(t *testing.T) {
	srv, bodies := fakeGemini(t, http.StatusOK, `{"name":"Banana","category":"Fruit","emoji":"🍌","shelfLifeDays":5}`)

	id, err := newAdapter().IdentifyFromImage(context.Background(), testConfig(srv.URL), []byte{0xff, 0xd8, 0xff}, language.English)
	require.NoError(t, err)
	assert.Equal(t, "Banana", id.Name)
	assert.Equal(t, ai.CategoryFruit, id.Category)
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "image/jpeg")
}

func TestIdentifyFromImageEmpty(t *testing.T) {
	_, err := newAdapter().IdentifyFromImage(context.Background(), testConfig("http://127.0.0.1:1"), nil, language.English)
	assert.True(t, errors.Is(err, ai.ErrProviderCallFailed))
}

func TestGenerateRecipes(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusOK, `{"recipes":[{"name":"Omelette","description":"quick","ingredients":["egg","tomato"],"instructions":["beat","fry"],"timeMinutes":10,"matchPercentage":90}]}`)

	recipes, err := newAdapter().GenerateRecipes(context.Background(), testConfig(srv.URL), []string{"egg", "tomato"}, 2, language.English)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Omelette", recipes[0].Name)
	assert.True(t, strings.HasPrefix(recipes[0].ID, "ai-"))
}

func TestTestConnection(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusOK, "OK")

	d := newAdapter().TestConnection(context.Background(), testConfig(srv.URL))
	assert.True(t, d.OK, d.Message)
}

func TestSchemasRequireFields(t *testing.T) {
	assert.ElementsMatch(t, []string{"name", "category", "emoji", "shelfLifeDays"}, identificationSchema().Required)
	assert.Len(t, classificationSchema().Properties["category"].Enum, len(ai.Categories))
	assert.Equal(t, 100.0, *recipeSchema().Properties["matchPercentage"].Maximum)
}

func TestRecommendRandom(t *testing.T) {
	srv, bodies := fakeGemini(t, http.StatusOK, `{"name":"Shakshuka","description":"Eggs in spicy tomato","ingredients":["egg","tomato","pepper"],"instructions":["simmer sauce","poach eggs"],"timeMinutes":25,"matchPercentage":100,"calories":420}`)

	r, err := newAdapter().RecommendRandom(context.Background(), testConfig(srv.URL), language.English)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.ID, "ai-random-"), r.ID)
	assert.Equal(t, "Shakshuka", r.Name)
	assert.Equal(t, []string{"egg", "tomato", "pepper"}, r.Ingredients)
	assert.Equal(t, 25, r.TimeMinutes)
	assert.Equal(t, 100, r.MatchPercentage)
	require.NotNil(t, r.Calories)
	assert.Equal(t, 420, *r.Calories)

	require.Len(t, *bodies, 1)
	var req struct {
		GenerationConfig struct {
			ResponseMIMEType string         `json:"responseMimeType"`
			ResponseSchema   map[string]any `json:"responseSchema"`
		} `json:"generationConfig"`
	}
	require.NoError(t, json.Unmarshal([]byte((*bodies)[0]), &req))
	assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)
	props, ok := req.GenerationConfig.ResponseSchema["properties"].(map[string]any)
	require.True(t, ok, "single recipe schema expected")
	assert.Contains(t, props, "timeMinutes")
	assert.NotContains(t, props, "recipes")
}

func TestIdentifyFromImageLabelsHEIC(t *testing.T) {
	srv, bodies := fakeGemini(t, http.StatusOK, `{"name":"Leek","category":"Vegetable","emoji":"🥬","shelfLifeDays":10}`)

	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00")...)
	_, err := newAdapter().IdentifyFromImage(context.Background(), testConfig(srv.URL), heic, language.English)
	require.NoError(t, err)
	assert.Contains(t, (*bodies)[0], "image/heic")
	assert.NotContains(t, (*bodies)[0], "image/jpeg")
}
