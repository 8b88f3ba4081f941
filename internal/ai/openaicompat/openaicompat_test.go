package openaicompat

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

type capturedRequest struct {
	Path          string
	Authorization string
	Body          map[string]any
}

func fakeChat(t *testing.T, status int, content string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		seen = append(seen, capturedRequest{Path: r.URL.Path, Authorization: r.Header.Get("Authorization"), Body: body})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []any{
				map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testConfig(url string) ai.ProviderConfig {
	return ai.ProviderConfig{
		ID:           "deepseek",
		Kind:         ai.KindChatCompatible,
		DisplayName:  "DeepSeek",
		Credential:   "sk-test",
		BaseEndpoint: url + "/v1",
		Model:        "deepseek-chat",
		Enabled:      true,
	}
}

func newAdapter() *Adapter {
	return New(&http.Client{Timeout: 5 * time.Second}, 5*time.Second)
}

func TestClassifyItemSendsStructuredRequest(t *testing.T) {
	srv, seen := fakeChat(t, http.StatusOK, `{"category":"Dairy","emoji":"🥛","shelfLifeDays":7}`)

	c, err := newAdapter().ClassifyItem(context.Background(), testConfig(srv.URL), "milk", language.English)
	require.NoError(t, err)
	assert.Equal(t, ai.CategoryDairy, c.Category)
	assert.Equal(t, 7, c.ShelfLifeDays)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "/v1/chat/completions", req.Path)
	assert.Equal(t, "Bearer sk-test", req.Authorization)
	assert.Equal(t, "deepseek-chat", req.Body["model"])

	format, ok := req.Body["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing")
	assert.Equal(t, "json_schema", format["type"])
}

func TestClassifyItemCodeFencedReply(t *testing.T) {
	srv, _ := fakeChat(t, http.StatusOK, "```json\n{\"category\":\"Meat\",\"emoji\":\"🍗\",\"shelfLifeDays\":2}\n```")

	c, err := newAdapter().ClassifyItem(context.Background(), testConfig(srv.URL), "chicken", language.English)
	require.NoError(t, err)
	assert.Equal(t, ai.CategoryMeat, c.Category)
}

func TestNonJSONReplyIsCallFailure(t *testing.T) {
	srv, _ := fakeChat(t, http.StatusOK, "I think it's a fruit")

	_, err := newAdapter().ClassifyItem(context.Background(), testConfig(srv.URL), "apple", language.English)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrProviderCallFailed))
}

func TestHTTPErrorIsCallFailure(t *testing.T) {
	srv, _ := fakeChat(t, http.StatusUnauthorized, "")

	_, err := newAdapter().RecommendRandom(context.Background(), testConfig(srv.URL), language.English)
	require.Error(t, err)

	var ce *ai.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "deepseek", ce.Provider)
	assert.Equal(t, ai.OpRecommendRandom, ce.Op)
}

func TestIdentifyFromImageUsesDataURL(t *testing.T) {
	srv, seen := fakeChat(t, http.StatusOK, `{"name":"Carrot","category":"Vegetable","emoji":"🥕","shelfLifeDays":21}`)

	id, err := newAdapter().IdentifyFromImage(context.Background(), testConfig(srv.URL), []byte{0xff, 0xd8, 0xff, 0xe0}, language.English)
	require.NoError(t, err)
	assert.Equal(t, "Carrot", id.Name)

	raw, err := json.Marshal((*seen)[0].Body["messages"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "data:image/jpeg;base64,")
}

func TestGenerateRecipesBareArray(t *testing.T) {
	srv, _ := fakeChat(t, http.StatusOK, `[{"name":"番茄炒蛋","description":"家常菜","ingredients":["番茄","鸡蛋"],"instructions":["炒"],"timeMinutes":15,"matchPercentage":95,"calories":300}]`)

	recipes, err := newAdapter().GenerateRecipes(context.Background(), testConfig(srv.URL), []string{"番茄", "鸡蛋"}, 2, language.SimplifiedChinese)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.True(t, strings.HasPrefix(recipes[0].ID, "ai-"))
	require.NotNil(t, recipes[0].Calories)
	assert.Equal(t, 300, *recipes[0].Calories)
}

func TestTestConnection(t *testing.T) {
	srv, seen := fakeChat(t, http.StatusOK, "OK")

	d := newAdapter().TestConnection(context.Background(), testConfig(srv.URL))
	assert.True(t, d.OK, d.Message)
	assert.Contains(t, d.Message, "deepseek-chat")
	_, hasFormat := (*seen)[0].Body["response_format"]
	assert.False(t, hasFormat)
}

func TestTestConnectionWithoutCredential(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Credential = "  "

	d := newAdapter().TestConnection(context.Background(), cfg)
	assert.False(t, d.OK)
	assert.Contains(t, d.Message, "API key not configured")
}

func TestRecommendRandom(t *testing.T) {
	srv, seen := fakeChat(t, http.StatusOK, `{"name":"Fried Rice","description":"Leftover rice","ingredients":["rice","egg","scallion"],"instructions":["fry egg","add rice"],"timeMinutes":15,"matchPercentage":100,"calories":510}`)

	r, err := newAdapter().RecommendRandom(context.Background(), testConfig(srv.URL), language.English)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.ID, "ai-random-"), r.ID)
	assert.Equal(t, "Fried Rice", r.Name)
	assert.Equal(t, []string{"fry egg", "add rice"}, r.Instructions)
	assert.Equal(t, 15, r.TimeMinutes)
	require.NotNil(t, r.Calories)
	assert.Equal(t, 510, *r.Calories)

	require.Len(t, *seen, 1)
	format, ok := (*seen)[0].Body["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing")
	js, ok := format["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "recipe", js["name"])
	assert.Equal(t, true, js["strict"])
	schema, ok := js["schema"].(map[string]any)
	require.True(t, ok)
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "timeMinutes")
	assert.NotContains(t, props, "recipes")
}
