package intent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"jhimki-stock-backend/internal/session"
)

func TestDecodeProductSearch(t *testing.T) {
	raw := `{
		"intent_type": "product_search",
		"category": "Saree",
		"subcategory": "Ajrakh Saree",
		"attributes": {"color": "indigo", "fabric": "cotton", "technique": "ajrakh", "price_max": "3000"},
		"search_query": "indigo ajrakh cotton saree",
		"confidence": 0.92,
		"needs_clarification": false
	}`
	in := Decode(raw, "do you have indigo ajrakh cotton saree under 3000?")
	if in.Outcome != ParsedValid {
		t.Fatalf("expected valid parse, got %v", in.Outcome)
	}
	if in.Kind != KindSearch {
		t.Fatalf("expected search kind, got %q", in.Kind)
	}
	if in.Filters.Category != "Saree" || in.Filters.Color != "indigo" {
		t.Fatalf("unexpected filters: %+v", in.Filters)
	}
	if in.Filters.PriceMax != 3000 {
		t.Fatalf("expected price_max 3000, got %v", in.Filters.PriceMax)
	}
	if in.Query != "indigo ajrakh cotton saree" {
		t.Fatalf("unexpected query: %q", in.Query)
	}
}

func TestDecodeSalvagesWrappedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"intent_type\": \"greeting\", \"confidence\": 0.9}\n```"
	in := Decode(raw, "hello")
	if in.Outcome != ParsedValid {
		t.Fatalf("expected valid parse, got %v", in.Outcome)
	}
	if in.Kind != KindChat {
		t.Fatalf("expected chat kind, got %q", in.Kind)
	}
}

func TestDecodeMalformed(t *testing.T) {
	in := Decode("sorry, I can't do that", "show me sarees")
	if in.Outcome != ParsedMalformed {
		t.Fatalf("expected malformed outcome, got %v", in.Outcome)
	}
	if in.Kind != KindUnknown {
		t.Fatalf("expected unknown kind, got %q", in.Kind)
	}
	if !in.Filters.Empty() {
		t.Fatalf("malformed parse must carry empty filters: %+v", in.Filters)
	}
	if in.Query != "show me sarees" {
		t.Fatalf("query should fall back to the user message, got %q", in.Query)
	}
}

func TestDecodeEmptyObject(t *testing.T) {
	in := Decode("{}", "hm")
	if in.Outcome != ParsedEmpty {
		t.Fatalf("expected empty outcome, got %v", in.Outcome)
	}
	if in.Kind != KindUnknown {
		t.Fatalf("expected unknown kind, got %q", in.Kind)
	}
}

func TestDecodeLowConfidenceClarifies(t *testing.T) {
	raw := `{"intent_type": "product_search", "confidence": 0.4, "search_query": "something nice"}`
	in := Decode(raw, "something nice")
	if in.Kind != KindClarify {
		t.Fatalf("low confidence should clarify, got %q", in.Kind)
	}
}

func TestDecodeOffTopic(t *testing.T) {
	raw := `{"intent_type": "off_topic", "confidence": 0.95}`
	in := Decode(raw, "what's the weather?")
	if in.Kind != KindChat || !in.OffTopic {
		t.Fatalf("expected off-topic chat, got kind=%q offTopic=%v", in.Kind, in.OffTopic)
	}
}

func TestPriceValueCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(2500), 2500, true},
		{"3000", 3000, true},
		{"under 4000 rupees", 4000, true},
		{"", 0, false},
		{nil, 0, false},
		{"no budget", 0, false},
	}
	for _, c := range cases {
		got, ok := priceValue(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("priceValue(%v) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func writeIntentSpec(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "intent.yaml")
	spec := "system: |\n  Classify the user's message and return JSON.\nstyle:\n  temperature: 0.3\n  max_tokens: 300\n"
	if err := os.WriteFile(path, []byte(spec), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func newFakeOpenAI(t *testing.T, body string) *openai.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, body)
	}))
	t.Cleanup(server.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestClassifierExtract(t *testing.T) {
	client := newFakeOpenAI(t, `{"intent_type":"product_search","category":"Saree","search_query":"pink chanderi saree","confidence":0.9}`)
	c, err := LoadClassifier(writeIntentSpec(t), client, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("LoadClassifier failed: %v", err)
	}

	history := []session.Turn{{Role: session.RoleUser, Content: "hello"}}
	in, err := c.Extract(context.Background(), history, "show me pink chanderi sarees")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if in.Kind != KindSearch || in.Filters.Category != "Saree" {
		t.Fatalf("unexpected intent: %+v", in)
	}
}

func TestClassifierExtractProviderDown(t *testing.T) {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = "http://127.0.0.1:1/v1"
	client := openai.NewClientWithConfig(cfg)

	c, err := LoadClassifier(writeIntentSpec(t), client, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("LoadClassifier failed: %v", err)
	}
	if _, err := c.Extract(context.Background(), nil, "hello"); err == nil {
		t.Fatalf("expected error when provider is unreachable")
	}
}
