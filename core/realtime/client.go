// Package realtime is the websocket client for the remote speech dialogue
// agent. It exposes the duplex event channel the orchestration core consumes:
// typed outbound protocol messages and a single stream of inbound server
// events.
package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
	defaultModel   = "gpt-4o-realtime-preview"
)

type Client struct {
	conn *websocket.Conn

	// writeMu serializes outbound frames; gorilla connections allow only
	// one concurrent writer.
	writeMu sync.Mutex

	events    chan ServerEvent
	closeOnce sync.Once

	baseURL string
	model   string
	apiKey  string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithAPIKey(apiKey string) Option {
	return func(c *Client) { c.apiKey = apiKey }
}

// Dial opens the websocket session and starts the read loop. The inbound
// stream is closed when the connection drops or Close is called.
func Dial(ctx context.Context, opts ...Option) (*Client, error) {
	client := &Client{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		events:  make(chan ServerEvent, 16),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("OPENAI_API_KEY")
		if !ok {
			return nil, fmt.Errorf("openai api key not found")
		}
		client.apiKey = apiKey
	}

	sessionURL, err := url.Parse(client.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	queryParams := sessionURL.Query()
	queryParams.Set("model", client.model)
	sessionURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, sessionURL.String(), http.Header{
		"Authorization": {"Bearer " + client.apiKey},
		"OpenAI-Beta":   {"realtime=v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to realtime agent: %w", err)
	}

	client.conn = conn
	go client.readAndProcessMessages()

	return client, nil
}

// Events returns the inbound event stream. The channel is closed on
// connection teardown.
func (c *Client) Events() <-chan ServerEvent {
	return c.events
}

func (c *Client) send(event clientEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to write %s to realtime agent: %w", event.Type, err)
	}
	return nil
}

// UpdateSession replaces the session's instructions, tool declarations, and
// transcription settings.
func (c *Client) UpdateSession(config SessionConfig) error {
	return c.send(clientEvent{Type: "session.update", Session: &config})
}

// CreateUserMessage appends a user-authored text item to the conversation.
func (c *Client) CreateUserMessage(text string) error {
	return c.send(clientEvent{
		Type: "conversation.item.create",
		Item: &conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	})
}

// SendToolOutput returns a tool call's result to the agent.
func (c *Client) SendToolOutput(callID, output string) error {
	return c.send(clientEvent{
		Type: "conversation.item.create",
		Item: &conversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

// TriggerResponse asks the agent to speak next.
func (c *Client) TriggerResponse() error {
	return c.send(clientEvent{Type: "response.create"})
}

// AppendInputAudio forwards a captured audio frame to the agent.
func (c *Client) AppendInputAudio(audio []byte) error {
	return c.send(clientEvent{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readAndProcessMessages() {
	defer close(c.events)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("failed to read realtime websocket message", "error", err)
			}
			c.Close()
			return
		}

		event, err := decodeServerEvent(msg)
		if err != nil {
			logger.Warn("dropping undecodable realtime message", "error", err)
			continue
		}
		if event == nil {
			continue
		}

		c.events <- event
	}
}
