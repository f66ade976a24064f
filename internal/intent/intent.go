// Package intent classifies user messages with the hosted language model and
// extracts structured product filters from them.
package intent

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Kind string

const (
	KindSearch  Kind = "search"
	KindClarify Kind = "clarify"
	KindChat    Kind = "chat"
	KindUnknown Kind = "unknown"
)

// ParseOutcome tags how the model's JSON payload decoded, so callers branch
// on an explicit variant instead of probing fields.
type ParseOutcome int

const (
	ParsedValid ParseOutcome = iota
	ParsedEmpty
	ParsedMalformed
)

// Filters are the structured attributes extracted from a product request.
// Zero values mean "not specified".
type Filters struct {
	Category    string
	Subcategory string
	Color       string
	Fabric      string
	Technique   string
	Pattern     string
	PriceMin    float64
	PriceMax    float64
}

func (f Filters) Empty() bool {
	return f == Filters{}
}

// Intent is the classified purpose of one user message. Produced fresh per
// message and not retained beyond the exchange that generated it.
type Intent struct {
	Kind          Kind
	RawType       string // intent_type as reported by the model
	Filters       Filters
	Query         string // reformulated search query text
	Confidence    float64
	Clarification string
	OffTopic      bool
	Outcome       ParseOutcome
}

// Metadata flattens the intent for the response's intent_data object.
func (in *Intent) Metadata() map[string]any {
	md := map[string]any{
		"action":      string(in.Kind),
		"intent_type": in.RawType,
		"confidence":  in.Confidence,
	}
	attrs := map[string]any{}
	if in.Filters.Category != "" {
		attrs["category"] = in.Filters.Category
	}
	if in.Filters.Subcategory != "" {
		attrs["subcategory"] = in.Filters.Subcategory
	}
	if in.Filters.Color != "" {
		attrs["color"] = in.Filters.Color
	}
	if in.Filters.Fabric != "" {
		attrs["fabric"] = in.Filters.Fabric
	}
	if in.Filters.Technique != "" {
		attrs["technique"] = in.Filters.Technique
	}
	if in.Filters.Pattern != "" {
		attrs["pattern"] = in.Filters.Pattern
	}
	if in.Filters.PriceMin > 0 {
		attrs["price_min"] = in.Filters.PriceMin
	}
	if in.Filters.PriceMax > 0 {
		attrs["price_max"] = in.Filters.PriceMax
	}
	if len(attrs) > 0 {
		md["attributes"] = attrs
	}
	if in.Query != "" {
		md["search_query"] = in.Query
	}
	return md
}

// rawIntent mirrors the JSON schema the intent prompt asks the model for.
type rawIntent struct {
	IntentType  string `json:"intent_type"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Attributes  struct {
		Color     string `json:"color"`
		Fabric    string `json:"fabric"`
		Technique string `json:"technique"`
		Pattern   string `json:"pattern"`
		PriceMin  any    `json:"price_min"`
		PriceMax  any    `json:"price_max"`
	} `json:"attributes"`
	SearchQuery           string  `json:"search_query"`
	Confidence            float64 `json:"confidence"`
	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question"`
}

// clarifyThreshold: below this confidence the bot asks instead of searching.
const clarifyThreshold = 0.6

// Decode turns raw model output into a tagged Intent. Malformed output
// degrades to an unknown intent with empty filters; it never errors.
func Decode(raw, userMessage string) *Intent {
	var ri rawIntent
	if err := json.Unmarshal([]byte(salvageJSON(raw)), &ri); err != nil {
		return &Intent{Kind: KindUnknown, RawType: "unknown", Query: userMessage, Outcome: ParsedMalformed}
	}
	if strings.TrimSpace(ri.IntentType) == "" {
		return &Intent{Kind: KindUnknown, RawType: "unknown", Query: userMessage, Outcome: ParsedEmpty}
	}

	in := &Intent{
		RawType: ri.IntentType,
		Filters: Filters{
			Category:    strings.TrimSpace(ri.Category),
			Subcategory: strings.TrimSpace(ri.Subcategory),
			Color:       strings.TrimSpace(ri.Attributes.Color),
			Fabric:      strings.TrimSpace(ri.Attributes.Fabric),
			Technique:   strings.TrimSpace(ri.Attributes.Technique),
			Pattern:     strings.TrimSpace(ri.Attributes.Pattern),
		},
		Query:         strings.TrimSpace(ri.SearchQuery),
		Confidence:    ri.Confidence,
		Clarification: strings.TrimSpace(ri.ClarificationQuestion),
		Outcome:       ParsedValid,
	}
	if v, ok := priceValue(ri.Attributes.PriceMin); ok {
		in.Filters.PriceMin = v
	}
	if v, ok := priceValue(ri.Attributes.PriceMax); ok {
		in.Filters.PriceMax = v
	}
	if in.Query == "" {
		in.Query = userMessage
	}

	switch {
	case ri.IntentType == "off_topic":
		in.Kind = KindChat
		in.OffTopic = true
	case ri.NeedsClarification || in.Confidence < clarifyThreshold:
		in.Kind = KindClarify
	case ri.IntentType == "product_search":
		in.Kind = KindSearch
	case ri.IntentType == "greeting" || ri.IntentType == "general_question":
		in.Kind = KindChat
	default:
		in.Kind = KindUnknown
	}
	return in
}

// priceValue coerces a model-provided price into a number. Models return
// these as numbers, numeric strings, or loose strings like "under 3000".
func priceValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return t, true
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f, true
		}
		// Pull the first digit run out of loose text
		var digits strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			} else if digits.Len() > 0 {
				break
			}
		}
		if digits.Len() > 0 {
			if f, err := strconv.ParseFloat(digits.String(), 64); err == nil && f > 0 {
				return f, true
			}
		}
	}
	return 0, false
}

// salvageJSON trims the model output to the outermost braces when it wraps
// the object in prose or code fences.
func salvageJSON(raw string) string {
	first := strings.IndexByte(raw, '{')
	last := strings.LastIndexByte(raw, '}')
	if first >= 0 && last > first {
		return raw[first : last+1]
	}
	return raw
}
