package anki

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/tutor-core/core/cards"
)

type recordedRequest struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// noteServiceStub answers each action with a canned result and records every
// request it sees.
func noteServiceStub(t *testing.T, results map[string]string) (*Client, *[]recordedRequest) {
	t.Helper()

	requests := &[]recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request recordedRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
			return
		}
		*requests = append(*requests, request)

		result, ok := results[request.Action]
		if !ok {
			fmt.Fprintf(w, `{"result": null, "error": "unsupported action: %s"}`, request.Action)
			return
		}
		fmt.Fprintf(w, `{"result": %s, "error": null}`, result)
	}))
	t.Cleanup(server.Close)

	return NewClient(WithEndpoint(server.URL), WithHTTPClient(server.Client())), requests
}

func TestListDue(t *testing.T) {
	client, requests := noteServiceStub(t, map[string]string{
		"findCards": `[1502098034048, 1502098034049]`,
	})

	ids, err := client.ListDue(t.Context(), "Spanish")
	if err != nil {
		t.Fatalf("Failed to list due cards: %v", err)
	}
	if len(ids) != 2 || ids[0] != "1502098034048" || ids[1] != "1502098034049" {
		t.Errorf("Expected decimal-formatted ids, got %v", ids)
	}

	if len(*requests) != 1 {
		t.Fatalf("Expected one request, got %d", len(*requests))
	}
	request := (*requests)[0]
	if request.Action != "findCards" || request.Version != 6 {
		t.Errorf("Expected findCards v6, got %s v%d", request.Action, request.Version)
	}
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(request.Params, &params); err != nil {
		t.Fatalf("Failed to decode params: %v", err)
	}
	if params.Query != `deck:"Spanish" is:due` {
		t.Errorf("Expected a quoted deck query, got %q", params.Query)
	}
}

func TestFetchDetailsPreservesOrderAndOmitsMissing(t *testing.T) {
	client, _ := noteServiceStub(t, map[string]string{
		"cardsInfo": `[
			{"cardId": 1, "question": "q1", "answer": "a1",
			 "fields": {"Front": {"value": "hola", "order": 0}, "Back": {"value": "hello", "order": 1}}},
			{"cardId": 3, "question": "<b>adios</b>", "answer": "goodbye&nbsp;now", "fields": {}}
		]`,
	})

	fetched, err := client.FetchDetails(t.Context(), []cards.CardID{"3", "2", "1"})
	if err != nil {
		t.Fatalf("Failed to fetch details: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("Expected the unknown id to be omitted, got %d cards", len(fetched))
	}
	if fetched[0].ID != "3" || fetched[1].ID != "1" {
		t.Errorf("Expected requested ordering, got %v then %v", fetched[0].ID, fetched[1].ID)
	}
	if fetched[0].Front != "adios" || fetched[0].Back != "goodbye now" {
		t.Errorf("Expected markup-free text, got front %q back %q", fetched[0].Front, fetched[0].Back)
	}
	if fetched[1].Front != "hola" {
		t.Errorf("Expected the Front field to win over the rendered question, got %q", fetched[1].Front)
	}
}

func TestGradeEaseMapping(t *testing.T) {
	for verdict, expectedEase := range map[cards.Verdict]int{
		cards.VerdictCorrect:   3,
		cards.VerdictIncorrect: 1,
	} {
		t.Run(string(verdict), func(t *testing.T) {
			client, requests := noteServiceStub(t, map[string]string{
				"answerCards": `[true]`,
			})

			if err := client.Grade(t.Context(), "42", verdict); err != nil {
				t.Fatalf("Failed to grade card: %v", err)
			}

			var params struct {
				Answers []struct {
					CardID int64 `json:"cardId"`
					Ease   int   `json:"ease"`
				} `json:"answers"`
			}
			if err := json.Unmarshal((*requests)[0].Params, &params); err != nil {
				t.Fatalf("Failed to decode params: %v", err)
			}
			if len(params.Answers) != 1 || params.Answers[0].CardID != 42 {
				t.Fatalf("Expected one answer for card 42, got %+v", params.Answers)
			}
			if params.Answers[0].Ease != expectedEase {
				t.Errorf("Expected ease %d, got %d", expectedEase, params.Answers[0].Ease)
			}
		})
	}
}

func TestGradeRefusal(t *testing.T) {
	client, _ := noteServiceStub(t, map[string]string{
		"answerCards": `[false]`,
	})

	if err := client.Grade(t.Context(), "42", cards.VerdictCorrect); err == nil {
		t.Error("Expected a refused answer to be reported")
	}
}

func TestServiceErrorIsNotUnreachable(t *testing.T) {
	client, _ := noteServiceStub(t, map[string]string{})

	_, err := client.ListDue(t.Context(), "Spanish")
	if err == nil {
		t.Fatal("Expected the service error to surface")
	}
	if errors.Is(err, cards.ErrUnreachable) {
		t.Errorf("Expected a service rejection, not an unreachable error: %v", err)
	}
}

func TestUnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(WithEndpoint(endpoint))
	if _, err := client.ListDue(t.Context(), "Spanish"); !errors.Is(err, cards.ErrUnreachable) {
		t.Errorf("Expected an unreachable error, got %v", err)
	}
}

func TestDeckNames(t *testing.T) {
	client, _ := noteServiceStub(t, map[string]string{
		"deckNames": `["Default", "Spanish"]`,
	})

	names, err := client.DeckNames(t.Context())
	if err != nil {
		t.Fatalf("Failed to list decks: %v", err)
	}
	if len(names) != 2 || names[1] != "Spanish" {
		t.Errorf("Expected both deck names, got %v", names)
	}
}
