// Package bot sequences intent extraction, product search, and response
// composition for each incoming chat message.
package bot

import (
	"context"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"jhimki-stock-backend/internal/intent"
	"jhimki-stock-backend/internal/prompts"
	"jhimki-stock-backend/internal/search"
	"jhimki-stock-backend/internal/session"
	"jhimki-stock-backend/internal/store"
	"jhimki-stock-backend/internal/types"
)

const (
	ActionSearch  = "search"
	ActionClarify = "clarify"
	ActionChat    = "chat"
	ActionError   = "error"
)

const (
	offTopicReply   = "I'm only able to help with Jhimki's product catalogue and availability. How can I help you find something from our collection today?"
	welcomeReply    = "Welcome to Jhimki! We specialize in handcrafted sarees, suit sets, and fabrics. What can I help you find today?"
	clarifyGeneric  = "I want to help you find the perfect item! Could you provide more details about what you're looking for? For example, the type of clothing, color, fabric, or occasion?"
	searchDownReply = "I'm having trouble searching our catalogue right now. Please try again in a moment."
)

// Options wires the orchestrator's collaborators. Searcher and Transcripts
// may be nil; both degrade rather than disable the service.
type Options struct {
	Client        *openai.Client
	Model         string
	Sessions      session.Store
	Searcher      search.Searcher
	Classifier    *intent.Classifier
	ChatSpec      prompts.Spec
	ResultsSpec   prompts.Spec
	Transcripts   *store.TranscriptStore
	TopK          int
	HistoryWindow int
	FallbackReply string
}

// Service is the per-message orchestrator. Each request runs one pass:
// intent, conditional search, composition, session bookkeeping.
type Service struct {
	client        *openai.Client
	model         string
	sessions      session.Store
	searcher      search.Searcher
	classifier    *intent.Classifier
	chatSpec      prompts.Spec
	resultsSpec   prompts.Spec
	transcripts   *store.TranscriptStore
	topK          int
	historyWindow int
	fallbackReply string
}

func New(opts Options) *Service {
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	window := opts.HistoryWindow
	if window <= 0 {
		window = 10
	}
	return &Service{
		client:        opts.Client,
		model:         opts.Model,
		sessions:      opts.Sessions,
		searcher:      opts.Searcher,
		classifier:    opts.Classifier,
		chatSpec:      opts.ChatSpec,
		resultsSpec:   opts.ResultsSpec,
		transcripts:   opts.Transcripts,
		topK:          topK,
		historyWindow: window,
		fallbackReply: opts.FallbackReply,
	}
}

// Result is what one processed message produces. Response is always
// non-empty and Products is always non-nil, even on degraded paths.
type Result struct {
	Response   string
	Products   []types.Product
	IntentData map[string]any
	Action     string
}

// ProcessMessage runs the full pipeline for one user message. It never
// fails: every upstream error degrades to a canned reply. The user and
// assistant turns are appended to the session only after a reply exists,
// so a rejected request leaves no partial state behind.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, message string, clientHistory []session.Turn) *Result {
	turns, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[session] load failed for %s: %v", sessionID, err)
		turns = nil
	}
	if len(turns) == 0 && len(clientHistory) > 0 {
		// Server restarted or session evicted: rebuild from the client's copy.
		if err := s.sessions.Append(ctx, sessionID, clientHistory...); err != nil {
			log.Printf("[session] history rebuild failed for %s: %v", sessionID, err)
		} else {
			turns = clientHistory
		}
	}
	window := session.Window(turns, s.historyWindow)

	var res *Result
	in, err := s.classifier.Extract(ctx, window, message)
	if err != nil {
		log.Printf("[chat] intent extraction failed: %v", err)
		res = &Result{
			Response: s.fallbackReply,
			Products: []types.Product{},
			Action:   ActionError,
			IntentData: map[string]any{
				"action":       ActionError,
				"intent_type":  "service_unavailable",
				"llm_degraded": true,
			},
		}
	} else {
		res = s.execute(ctx, in, message, window)
	}

	if err := s.sessions.Append(ctx, sessionID,
		session.NewTurn(session.RoleUser, message),
		session.NewTurn(session.RoleAssistant, res.Response),
	); err != nil {
		log.Printf("[session] append failed for %s: %v", sessionID, err)
	}
	if s.transcripts != nil {
		if err := s.transcripts.SaveExchange(ctx, sessionID, message, res.Response, res.Action); err != nil {
			log.Printf("[transcript] save failed for %s: %v", sessionID, err)
		}
	}
	return res
}

func (s *Service) execute(ctx context.Context, in *intent.Intent, message string, window []session.Turn) *Result {
	md := in.Metadata()

	switch in.Kind {
	case intent.KindSearch:
		if s.searcher == nil {
			md["search_degraded"] = true
			return &Result{Response: searchDownReply, Products: []types.Product{}, Action: ActionSearch, IntentData: md}
		}
		candidates, err := s.searcher.Search(ctx, in.Query, searchFilter(in.Filters), s.topK)
		if err != nil {
			log.Printf("[search] query failed: %v", err)
			md["search_degraded"] = true
			return &Result{Response: searchDownReply, Products: []types.Product{}, Action: ActionSearch, IntentData: md}
		}
		products := formatProducts(candidates)
		reply := s.composeSearchReply(ctx, in, products)
		return &Result{Response: reply, Products: products, Action: ActionSearch, IntentData: md}

	case intent.KindClarify, intent.KindUnknown:
		reply := in.Clarification
		if reply == "" {
			reply = clarifyGeneric
		}
		return &Result{Response: reply, Products: []types.Product{}, Action: ActionClarify, IntentData: md}

	default:
		reply := s.composeChatReply(ctx, window, message, in.OffTopic)
		return &Result{Response: reply, Products: []types.Product{}, Action: ActionChat, IntentData: md}
	}
}

func searchFilter(f intent.Filters) search.Filter {
	return search.Filter{
		Category:    f.Category,
		Subcategory: f.Subcategory,
		Color:       f.Color,
		Fabric:      f.Fabric,
		Technique:   f.Technique,
		Pattern:     f.Pattern,
		PriceMin:    f.PriceMin,
		PriceMax:    f.PriceMax,
	}
}
