package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/medrag/internal/ai"
	"github.com/xxxsen/medrag/internal/handler"
	"github.com/xxxsen/medrag/internal/middleware"
	"github.com/xxxsen/medrag/internal/rag"
	"github.com/xxxsen/medrag/internal/vectorstore"
)

type stubGenerator struct {
	text    string
	prompts []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, nil
}

func setupRouter(t *testing.T, docs ...string) (http.Handler, *stubGenerator) {
	t.Helper()
	svc, gen := newAskService(t, docs...)
	return newEngine(t, handler.RouterDeps{Ask: handler.NewAskHandler(svc)}), gen
}

func newAskService(t *testing.T, docs ...string) (*rag.Service, *stubGenerator) {
	t.Helper()
	ctx := context.Background()

	store, err := vectorstore.NewChromemStore("", "papers", false, "")
	require.NoError(t, err)
	emb := ai.NewLocalEmbedder(64)
	for i, d := range docs {
		v, err := emb.Embed(ctx, d, ai.TaskRetrievalDocument)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, []vectorstore.Document{{
			ID:        string(rune('a' + i)),
			Content:   d,
			Metadata:  map[string]interface{}{"title": d},
			Embedding: v,
		}}))
	}
	gen := &stubGenerator{text: "Use a gentle moisturiser."}
	return rag.NewService(emb, store, gen, rag.Options{}), gen
}

func newEngine(t *testing.T, deps handler.RouterDeps) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine, err := webapi.NewEngine(
		"/api",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAsk_ReturnsResult(t *testing.T) {
	router, gen := setupRouter(t, "nickel contact dermatitis", "peanut allergy in children")

	w := doJSON(t, router, http.MethodPost, "/api/ask", `{"prompt":"what helps nickel rash"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Use a gentle moisturiser.", body["result"])
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "User question: what helps nickel rash")
	require.Contains(t, gen.prompts[0], "nickel contact dermatitis")
}

func TestAsk_MedicineFactAppended(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/ask", `{"prompt":"Paracetamol"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, strings.HasPrefix(body["result"], "Use a gentle moisturiser."))
	require.Contains(t, body["result"], "Paracetamol is used for Pain relief")
}

func TestAsk_InvalidBodyTreatedAsEmptyPrompt(t *testing.T) {
	router, gen := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/ask", `not json`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"result"`)
	require.Len(t, gen.prompts, 1)
	require.True(t, strings.HasSuffix(gen.prompts[0], "User question: \nAnswer in clear, helpful language:"))
}

func TestSearch(t *testing.T) {
	router, _ := setupRouter(t, "nickel contact dermatitis", "peanut allergy in children", "dust mite rhinitis")

	w := doJSON(t, router, http.MethodGet, "/api/search?q=nickel+dermatitis&k=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "nickel contact dermatitis")
	require.NotContains(t, w.Body.String(), "dust mite rhinitis")

	w = doJSON(t, router, http.MethodGet, "/api/search", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "q is required")

	w = doJSON(t, router, http.MethodGet, "/api/search?q=x&k=-2", "")
	require.Contains(t, w.Body.String(), "invalid k")
}

func TestStats(t *testing.T) {
	router, _ := setupRouter(t, "one", "two")

	w := doJSON(t, router, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"collection":"papers"`)
	require.Contains(t, w.Body.String(), `"count":2`)
}

func TestAsk_RequestIDHeader(t *testing.T) {
	router, _ := setupRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/ask", `{"prompt":"hi"}`)
	require.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestAsk_RateLimitedStillReturnsResult(t *testing.T) {
	svc, gen := newAskService(t)
	router := newEngine(t, handler.RouterDeps{
		Ask:          handler.NewAskHandler(svc),
		AskRateLimit: time.Minute,
	})

	for i, want := range []string{"Use a gentle moisturiser.", handler.ThrottledText} {
		w := doJSON(t, router, http.MethodPost, "/api/ask", `{"prompt":"itchy rash"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equalf(t, map[string]interface{}{"result": want}, body, "request %d", i)
	}
	require.Len(t, gen.prompts, 1)
}
