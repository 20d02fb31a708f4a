// Package anki implements the remote card source against a local
// AnkiConnect-style note-review service.
//
// The wire protocol is a JSON POST of {action, version, params} to a single
// endpoint, answered by {result, error}. A non-null error field is a
// service-level failure; transport failures are classed as
// [cards.ErrUnreachable].
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/koscakluka/tutor-core/core/cards"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultEndpoint = "http://127.0.0.1:8765"

	apiVersion = 6

	easeCorrect   = 3
	easeIncorrect = 1
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

func (c *Client) invoke(ctx context.Context, action string, params any, result any) error {
	ctx, span := tracer.Start(ctx, "invoke note service action")
	defer span.End()
	span.SetAttributes(attribute.String("anki.action", action))

	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", cards.ErrUnreachable, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %s", cards.ErrUnreachable, action, resp.Status)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("%s rejected: %s", action, *parsed.Error)
	}

	if result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", action, err)
		}
	}
	return nil
}

// DeckNames lists the decks known to the note service.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) ListDue(ctx context.Context, deck string) ([]cards.CardID, error) {
	var rawIDs []int64
	params := map[string]string{"query": fmt.Sprintf("deck:%q is:due", deck)}
	if err := c.invoke(ctx, "findCards", params, &rawIDs); err != nil {
		return nil, err
	}

	ids := make([]cards.CardID, 0, len(rawIDs))
	for _, id := range rawIDs {
		ids = append(ids, cards.CardID(strconv.FormatInt(id, 10)))
	}
	return ids, nil
}

type cardInfo struct {
	CardID   int64  `json:"cardId"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Fields   map[string]struct {
		Value string `json:"value"`
		Order int    `json:"order"`
	} `json:"fields"`
}

func (c *Client) FetchDetails(ctx context.Context, ids []cards.CardID) ([]cards.Card, error) {
	rawIDs, err := toRawIDs(ids)
	if err != nil {
		return nil, err
	}

	var infos []cardInfo
	params := map[string][]int64{"cards": rawIDs}
	if err := c.invoke(ctx, "cardsInfo", params, &infos); err != nil {
		return nil, err
	}

	byID := make(map[int64]cardInfo, len(infos))
	for _, info := range infos {
		byID[info.CardID] = info
	}

	// Result order follows the requested order; ids the service does not
	// know are omitted, never padded.
	found := make([]cards.Card, 0, len(ids))
	for _, rawID := range rawIDs {
		info, ok := byID[rawID]
		if !ok {
			logger.WarnContext(ctx, "note service omitted a requested card", "cardId", rawID)
			continue
		}
		found = append(found, cards.Card{
			ID:    cards.CardID(strconv.FormatInt(info.CardID, 10)),
			Front: cardFront(info),
			Back:  cardBack(info),
		})
	}
	return found, nil
}

func (c *Client) Grade(ctx context.Context, id cards.CardID, verdict cards.Verdict) error {
	rawID, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid remote card id %q: %w", id, err)
	}

	ease := easeIncorrect
	if verdict == cards.VerdictCorrect {
		ease = easeCorrect
	}

	type answer struct {
		CardID int64 `json:"cardId"`
		Ease   int   `json:"ease"`
	}
	var answered []bool
	params := map[string][]answer{"answers": {{CardID: rawID, Ease: ease}}}
	if err := c.invoke(ctx, "answerCards", params, &answered); err != nil {
		return err
	}
	if len(answered) == 0 || !answered[0] {
		return fmt.Errorf("note service refused to answer card %s", id)
	}
	return nil
}

func (c *Client) DeckStats(ctx context.Context, deck string) (cards.Stats, error) {
	due, err := c.ListDue(ctx, deck)
	if err != nil {
		return cards.Stats{}, err
	}
	return cards.Stats{
		DueCount:    len(due),
		Description: fmt.Sprintf("deck %q with %d cards due for review", deck, len(due)),
	}, nil
}

func toRawIDs(ids []cards.CardID) ([]int64, error) {
	rawIDs := make([]int64, 0, len(ids))
	for _, id := range ids {
		rawID, err := strconv.ParseInt(string(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid remote card id %q: %w", id, err)
		}
		rawIDs = append(rawIDs, rawID)
	}
	return rawIDs, nil
}

func cardFront(info cardInfo) string {
	if field, ok := info.Fields["Front"]; ok && field.Value != "" {
		return cleanField(field.Value)
	}
	return cleanField(info.Question)
}

func cardBack(info cardInfo) string {
	if field, ok := info.Fields["Back"]; ok && field.Value != "" {
		return cleanField(field.Value)
	}
	return cleanField(info.Answer)
}
