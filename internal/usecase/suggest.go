package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"room-designer/internal/domain"
)

const searchURLPrefix = "https://www.amazon.com/s?k="

const suggestInstruction = `You are an interior design assistant. Based on the user's design prompt, list 3-5 key furniture and decor items that SHOULD be included in the generated room design.
Search the current market to find the average price of each item.
Return ONLY a JSON array of objects, where each object has a 'name' field and a 'price' field.
Example: [{"name": "Modern Grey Sofa", "price": "100"}, {"name": "Geometric Rug", "price": "50"}, {"name": "Floor Lamp", "price": "20"}]
Do not include any other text.`

// SuggestionStage asks the suggestion model for a shopping list. Failures
// degrade to an empty list.
type SuggestionStage struct {
	suggester Suggester
}

func NewSuggestionStage(s Suggester) (*SuggestionStage, error) {
	if s == nil {
		return nil, errors.New("usecase: suggester must not be nil")
	}
	return &SuggestionStage{suggester: s}, nil
}

// SuggestItems never returns an error; the shopping list is optional.
func (s *SuggestionStage) SuggestItems(ctx context.Context, prompt string) []domain.Item {
	raw, err := s.suggester.Suggest(ctx, suggestInstruction, "Design Prompt: "+prompt)
	if err != nil {
		slog.Warn("suggest: model call failed", upstreamFailure(err)...)
		return []domain.Item{}
	}
	items, err := parseItems(raw)
	if err != nil {
		slog.Warn("suggest: unusable model response", "err", err, "responseBytes", len(raw))
		return []domain.Item{}
	}
	return items
}

type rawItem struct {
	Name  *string         `json:"name"`
	Price json.RawMessage `json:"price"`
}

// parseItems decodes the JSON array spanning the first '[' and the last ']'.
// An element without a name or price invalidates the whole response.
func parseItems(raw string) ([]domain.Item, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("usecase: no JSON array in response")
	}

	var decoded []rawItem
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return nil, fmt.Errorf("usecase: decode items: %w", err)
	}

	items := make([]domain.Item, 0, len(decoded))
	for i, d := range decoded {
		if d.Name == nil {
			return nil, fmt.Errorf("usecase: item %d missing name", i)
		}
		price, err := priceText(d.Price)
		if err != nil {
			return nil, fmt.Errorf("usecase: item %d: %w", i, err)
		}
		items = append(items, domain.Item{
			Name:  *d.Name,
			Price: price,
			Link:  searchLink(*d.Name),
		})
	}
	return items, nil
}

// priceText accepts "100" as well as 100.
func priceText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", errors.New("missing price")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("price is neither string nor number: %w", err)
	}
	return n.String(), nil
}

func searchLink(name string) string {
	return searchURLPrefix + url.QueryEscape(name)
}

// upstreamFailure describes a collaborator error by status and size only.
// Upstream errors can embed response bodies, which must not reach the logs.
func upstreamFailure(err error) []any {
	attrs := []any{"errType", fmt.Sprintf("%T", err), "errBytes", len(err.Error())}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		attrs = append(attrs, "status", status.HTTPStatusCode())
	}
	return attrs
}
