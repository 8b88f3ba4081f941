package main

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

	"refrigee/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		DataDir: t.TempDir(),
		AI: config.AIConfig{
			RequestTimeout: 5 * time.Second,
			ImageMaxDim:    1024,
		},
	}
	a, err := newApp(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(WithMiddleware(newMux(a)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestOfflineEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var current struct {
		ID   string `json:"id"`
		Live bool   `json:"live"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/providers/current", "", &current))
	assert.Equal(t, "offline", current.ID)
	assert.False(t, current.Live)

	var item struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Emoji    string `json:"emoji"`
		DaysLeft int    `json:"daysLeft"`
	}
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/items", `{"name":"Milk"}`, &item))
	assert.Equal(t, "Dairy", item.Category)
	assert.Equal(t, "🥛", item.Emoji)
	assert.Equal(t, 7, item.DaysLeft)

	var items []json.RawMessage
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/items", "", &items))
	assert.Len(t, items, 1)

	var dash struct {
		Total int `json:"total"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/dashboard", "", &dash))
	assert.Equal(t, 1, dash.Total)

	var recipes struct {
		Recipes []struct {
			Name   string `json:"name"`
			Source string `json:"source"`
		} `json:"recipes"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/recipes", `{"ingredients":["egg","milk"]}`, &recipes))
	require.NotEmpty(t, recipes.Recipes)
	assert.Equal(t, "fallback", recipes.Recipes[0].Source)

	require.Equal(t, http.StatusNoContent, doJSON(t, http.MethodDelete, srv.URL+"/api/items/"+item.ID, "", nil))
	require.Equal(t, http.StatusNotFound, doJSON(t, http.MethodDelete, srv.URL+"/api/items/"+item.ID, "", nil))
}

func TestReadyOnceStopsCheckingAfterSuccess(t *testing.T) {
	calls := 0
	fail := true
	ro := &readyOnce{}
	ro.Add(ReadyFunc(func(context.Context) error {
		calls++
		if fail {
			return errors.New("storage unavailable")
		}
		return nil
	}))

	rec := httptest.NewRecorder()
	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage unavailable")

	fail = false
	rec = httptest.NewRecorder()
	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	fail = true
	rec = httptest.NewRecorder()
	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestRecovererReturns500(t *testing.T) {
	h := WithMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}
	sr.WriteHeader(http.StatusTeapot)
	sr.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusTeapot, sr.status)
}
