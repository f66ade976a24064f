package types

import "time"

type ChatRequest struct {
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	History   []HistoryTurn `json:"history,omitempty"`
}

// HistoryTurn is a client-supplied conversation turn. The UI sends its local
// copy of the transcript so a restarted server can rebuild session context.
type HistoryTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

type ChatResponse struct {
	SessionID  string         `json:"session_id"`
	Response   string         `json:"response"`
	Products   []Product      `json:"products"`
	IntentData map[string]any `json:"intent_data"`
}

// Product is the display schema for a catalogue item. Field values come
// verbatim from the search index payload; Price is pre-formatted for the UI.
type Product struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	Name            string  `json:"name"`
	Price           string  `json:"price"`
	Category        string  `json:"category"`
	Subcategory     string  `json:"subcategory"`
	Color           string  `json:"color"`
	Fabric          string  `json:"fabric"`
	Technique       string  `json:"technique"`
	Pattern         string  `json:"pattern"`
	Description     string  `json:"description"`
	InStock         bool    `json:"in_stock"`
	ColorsAvailable string  `json:"colors_available"`
	Score           float64 `json:"score"`
}

type SessionInfo struct {
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	TurnCount   int       `json:"message_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
