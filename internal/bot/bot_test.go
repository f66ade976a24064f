package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"jhimki-stock-backend/internal/config"
	"jhimki-stock-backend/internal/intent"
	"jhimki-stock-backend/internal/prompts"
	"jhimki-stock-backend/internal/search"
	"jhimki-stock-backend/internal/session"
)

type fakeSearcher struct {
	candidates []search.Candidate
	err        error
	lastQuery  string
	lastFilter search.Filter
}

func (f *fakeSearcher) Search(ctx context.Context, query string, filter search.Filter, limit int) ([]search.Candidate, error) {
	f.lastQuery = query
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeSearcher) Close() error { return nil }

func writeCompletion(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"id":      "c1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// newFakeLLM serves intent-extraction calls (recognized by their JSON
// response_format) with intentJSON and everything else with composeText.
// An empty composeText makes composition calls fail with a 500.
func newFakeLLM(t *testing.T, intentJSON, composeText string) *openai.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "response_format") {
			writeCompletion(w, intentJSON)
			return
		}
		if composeText == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"down","type":"server_error"}}`)
			return
		}
		writeCompletion(w, composeText)
	}))
	t.Cleanup(server.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func unreachableLLM() *openai.Client {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = "http://127.0.0.1:1/v1"
	return openai.NewClientWithConfig(cfg)
}

func newTestService(t *testing.T, client *openai.Client, searcher search.Searcher) (*Service, *session.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	specPath := filepath.Join(dir, "intent.yaml")
	spec := "system: |\n  Classify the user's message and return JSON.\nstyle:\n  temperature: 0.3\n  max_tokens: 300\n"
	if err := os.WriteFile(specPath, []byte(spec), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	classifier, err := intent.LoadClassifier(specPath, client, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("LoadClassifier failed: %v", err)
	}

	sessions := session.NewMemoryStore(40)
	var chatSpec, resultsSpec prompts.Spec
	chatSpec.System = "You are the Jhimki Stock Assistant."
	resultsSpec.System = "Format search results warmly."

	svc := New(Options{
		Client:        client,
		Model:         "gpt-4o-mini",
		Sessions:      sessions,
		Searcher:      searcher,
		Classifier:    classifier,
		ChatSpec:      chatSpec,
		ResultsSpec:   resultsSpec,
		TopK:          10,
		HistoryWindow: 10,
		FallbackReply: config.DefaultFallbackReply,
	})
	return svc, sessions
}

const sareeIntent = `{"intent_type":"product_search","category":"Saree","attributes":{"color":"","fabric":""},"search_query":"sarees","confidence":0.9}`

func sareeCandidates() []search.Candidate {
	return []search.Candidate{
		{
			ID: "p-1", ProductID: "JH-001", Name: "Indigo Ajrakh Cotton Saree",
			Category: "Saree", Subcategory: "Ajrakh Saree", Color: "Indigo",
			Fabric: "Cotton", Price: 2850, InStock: true, Score: 0.91239,
		},
		{
			ID: "p-2", ProductID: "JH-002", Name: "Pink Chanderi Saree",
			Category: "Saree", Subcategory: "Chanderi Saree", Color: "Pink",
			Fabric: "Chanderi", Price: 3450, InStock: true, Score: 0.8712,
		},
	}
}

func TestProcessMessageSearch(t *testing.T) {
	client := newFakeLLM(t, sareeIntent, "Yes, we have 2 beautiful sarees that match your request.")
	fs := &fakeSearcher{candidates: sareeCandidates()}
	svc, sessions := newTestService(t, client, fs)

	res := svc.ProcessMessage(context.Background(), "s1", "Show me some sarees", nil)

	if res.Action != ActionSearch {
		t.Fatalf("expected search action, got %q", res.Action)
	}
	if len(res.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(res.Products))
	}
	for _, p := range res.Products {
		if p.Name == "" || p.Category == "" || p.Price == "" {
			t.Fatalf("product missing display fields: %+v", p)
		}
	}
	if res.Products[0].Price != "₹2,850" {
		t.Fatalf("unexpected formatted price: %q", res.Products[0].Price)
	}
	if res.Products[0].Score != 0.9124 {
		t.Fatalf("expected score rounded to 4 decimals, got %v", res.Products[0].Score)
	}
	if !strings.Contains(res.Response, "sarees") {
		t.Fatalf("response should reference sarees: %q", res.Response)
	}
	if fs.lastQuery != "sarees" || fs.lastFilter.Category != "Saree" {
		t.Fatalf("unexpected search call: query=%q filter=%+v", fs.lastQuery, fs.lastFilter)
	}

	turns, _ := sessions.Get(context.Background(), "s1")
	if len(turns) != 2 {
		t.Fatalf("expected user+assistant turns, got %d", len(turns))
	}
	if turns[0].Role != session.RoleUser || turns[1].Role != session.RoleAssistant {
		t.Fatalf("unexpected turn order: %+v", turns)
	}
}

func TestProcessMessageSequentialRequestsShareSession(t *testing.T) {
	client := newFakeLLM(t, sareeIntent, "Here are the matches.")
	svc, sessions := newTestService(t, client, &fakeSearcher{candidates: sareeCandidates()})

	svc.ProcessMessage(context.Background(), "s1", "Show me some sarees", nil)
	svc.ProcessMessage(context.Background(), "s1", "Anything in pink?", nil)

	turns, _ := sessions.Get(context.Background(), "s1")
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns after two exchanges, got %d", len(turns))
	}
	if turns[0].Content != "Show me some sarees" || turns[2].Content != "Anything in pink?" {
		t.Fatalf("turns out of chronological order: %+v", turns)
	}
}

func TestProcessMessageLLMUnreachable(t *testing.T) {
	svc, _ := newTestService(t, unreachableLLM(), &fakeSearcher{})

	res := svc.ProcessMessage(context.Background(), "s1", "Show me some sarees", nil)

	if res.Response != config.DefaultFallbackReply {
		t.Fatalf("expected configured fallback reply, got %q", res.Response)
	}
	if res.Products == nil || len(res.Products) != 0 {
		t.Fatalf("expected empty non-nil products, got %v", res.Products)
	}
	if res.Action != ActionError {
		t.Fatalf("expected error action, got %q", res.Action)
	}
	if degraded, _ := res.IntentData["llm_degraded"].(bool); !degraded {
		t.Fatalf("expected llm_degraded flag, got %v", res.IntentData)
	}
}

func TestProcessMessageSearchDegraded(t *testing.T) {
	client := newFakeLLM(t, sareeIntent, "unused")
	fs := &fakeSearcher{err: fmt.Errorf("index unavailable")}
	svc, _ := newTestService(t, client, fs)

	res := svc.ProcessMessage(context.Background(), "s1", "Show me some sarees", nil)

	if len(res.Products) != 0 {
		t.Fatalf("expected no products, got %d", len(res.Products))
	}
	if res.Response != searchDownReply {
		t.Fatalf("unexpected degraded reply: %q", res.Response)
	}
	if degraded, _ := res.IntentData["search_degraded"].(bool); !degraded {
		t.Fatalf("expected search_degraded flag, got %v", res.IntentData)
	}
}

func TestProcessMessageNoMatches(t *testing.T) {
	// Composition is down too, so the reply comes from the deterministic
	// template, which must not claim items were found.
	client := newFakeLLM(t, sareeIntent, "")
	svc, _ := newTestService(t, client, &fakeSearcher{})

	res := svc.ProcessMessage(context.Background(), "s1", "Show me some sarees", nil)

	if len(res.Products) != 0 {
		t.Fatalf("expected no products, got %d", len(res.Products))
	}
	if !strings.Contains(res.Response, "couldn't find") {
		t.Fatalf("no-match reply should say nothing was found: %q", res.Response)
	}
	if strings.Contains(res.Response, "I found") {
		t.Fatalf("no-match reply claims results: %q", res.Response)
	}
}

func TestProcessMessageOffTopic(t *testing.T) {
	client := newFakeLLM(t, `{"intent_type":"off_topic","confidence":0.95}`, "")
	svc, _ := newTestService(t, client, &fakeSearcher{})

	res := svc.ProcessMessage(context.Background(), "s1", "What's the weather today?", nil)

	if res.Response != offTopicReply {
		t.Fatalf("expected fixed off-topic reply, got %q", res.Response)
	}
	if res.Action != ActionChat {
		t.Fatalf("expected chat action, got %q", res.Action)
	}
}

func TestProcessMessageClarify(t *testing.T) {
	intentJSON := `{"intent_type":"product_search","confidence":0.9,"needs_clarification":true,"clarification_question":"Which fabric would you prefer?"}`
	client := newFakeLLM(t, intentJSON, "unused")
	svc, _ := newTestService(t, client, &fakeSearcher{})

	res := svc.ProcessMessage(context.Background(), "s1", "something handwoven", nil)

	if res.Response != "Which fabric would you prefer?" {
		t.Fatalf("expected the model's clarification question, got %q", res.Response)
	}
	if res.Action != ActionClarify {
		t.Fatalf("expected clarify action, got %q", res.Action)
	}
	if len(res.Products) != 0 {
		t.Fatalf("clarify must not return products")
	}
}

func TestProcessMessageRebuildsFromClientHistory(t *testing.T) {
	client := newFakeLLM(t, sareeIntent, "Here you go.")
	svc, sessions := newTestService(t, client, &fakeSearcher{candidates: sareeCandidates()})

	history := []session.Turn{
		session.NewTurn(session.RoleUser, "hello"),
		session.NewTurn(session.RoleAssistant, "Welcome to Jhimki!"),
	}
	svc.ProcessMessage(context.Background(), "s1", "Show me some sarees", history)

	turns, _ := sessions.Get(context.Background(), "s1")
	if len(turns) != 4 {
		t.Fatalf("expected client history plus new exchange, got %d turns", len(turns))
	}
	if turns[0].Content != "hello" {
		t.Fatalf("client history should come first: %+v", turns[0])
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{2850, "₹2,850"},
		{999, "₹999"},
		{14500, "₹14,500"},
		{1500000, "₹1,500,000"},
		{0, "N/A"},
	}
	for _, c := range cases {
		if got := formatPrice(c.in); got != c.want {
			t.Fatalf("formatPrice(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
