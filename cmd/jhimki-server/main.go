package main

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"jhimki-stock-backend/internal/bot"
	"jhimki-stock-backend/internal/config"
	"jhimki-stock-backend/internal/db"
	"jhimki-stock-backend/internal/intent"
	"jhimki-stock-backend/internal/prompts"
	"jhimki-stock-backend/internal/search"
	"jhimki-stock-backend/internal/server"
	"jhimki-stock-backend/internal/session"
	"jhimki-stock-backend/internal/store"
)

func main() {
	cfg := config.Load()
	client := openai.NewClient(cfg.OpenAIAPIKey)

	sessions := newSessionStore(cfg)
	defer sessions.Close()

	searcher := newSearcher(cfg, client)
	if searcher != nil {
		defer searcher.Close()
	}

	classifier, err := intent.LoadClassifier(filepath.Join(cfg.PromptsDir, "intent.yaml"), client, cfg.Model)
	if err != nil {
		log.Fatalf("failed to load intent spec: %v", err)
	}
	chatSpec, err := prompts.Load(filepath.Join(cfg.PromptsDir, "chat.yaml"))
	if err != nil {
		log.Fatalf("failed to load chat spec: %v", err)
	}
	resultsSpec, err := prompts.Load(filepath.Join(cfg.PromptsDir, "results.yaml"))
	if err != nil {
		log.Fatalf("failed to load results spec: %v", err)
	}

	transcripts := newTranscriptStore(cfg)

	svc := bot.New(bot.Options{
		Client:        client,
		Model:         cfg.Model,
		Sessions:      sessions,
		Searcher:      searcher,
		Classifier:    classifier,
		ChatSpec:      chatSpec,
		ResultsSpec:   resultsSpec,
		Transcripts:   transcripts,
		TopK:          cfg.SearchTopK,
		FallbackReply: cfg.FallbackReply,
	})

	s := server.New(cfg, svc, sessions)
	addr := ":" + cfg.Port
	fmt.Printf("JHIMKI server listening on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, s.Router()))
}

func newSessionStore(cfg config.Config) session.Store {
	if cfg.SessionBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Printf("[session] using redis store at %s", cfg.RedisAddr)
		return session.NewRedisStore(client, cfg.RedisSessionTTL, cfg.SessionMaxTurns)
	}
	log.Printf("[session] using in-memory store (max %d turns)", cfg.SessionMaxTurns)
	return session.NewMemoryStore(cfg.SessionMaxTurns)
}

func newSearcher(cfg config.Config, client *openai.Client) search.Searcher {
	if cfg.QdrantURL == "" {
		log.Println("[search] QDRANT_URL not set, product search disabled")
		return nil
	}
	embedder := search.NewOpenAIEmbedder(client, cfg.EmbedModel)
	searcher, err := search.NewQdrant(search.Config{
		URL:        cfg.QdrantURL,
		Collection: cfg.QdrantCollection,
		APIKey:     cfg.QdrantAPIKey,
	}, embedder)
	if err != nil {
		log.Printf("[search] qdrant unavailable, product search disabled: %v", err)
		return nil
	}
	return searcher
}

func newTranscriptStore(cfg config.Config) *store.TranscriptStore {
	if cfg.DatabaseURL == "" {
		log.Println("[store] DB_URL not set, transcript log disabled")
		return nil
	}
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Printf("[store] database unavailable, transcript log disabled: %v", err)
		return nil
	}
	if err := database.RunMigrations("./migrations"); err != nil {
		log.Printf("[store] migrations failed, transcript log disabled: %v", err)
		return nil
	}
	return store.NewTranscriptStore(database)
}
