// Package llm streams continuation text from the chat-completion service.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"inkwell/internal/config"
	"inkwell/internal/fault"
	"inkwell/internal/models"
)

// State tracks one streaming request's lifecycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Streamer issues one streaming completion per call, invoking onDelta
// synchronously for each increment in arrival order. Cancellation goes
// through ctx; already-delivered deltas are never retracted.
type Streamer interface {
	Stream(ctx context.Context, prompt string, onDelta func(text string)) error
}

// eventKind tags a parsed wire frame before dispatch, so decode failures
// stay isolated from control flow.
type eventKind int

const (
	eventDelta eventKind = iota
	eventDone
	eventMalformed
)

type event struct {
	kind  eventKind
	delta string
}

// parseEvent decodes one SSE line. ok is false for lines that are not data
// frames (blank lines, comments, other fields).
func parseEvent(line string) (event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return event{}, false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		return event{kind: eventDone}, true
	}
	var frame struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		return event{kind: eventMalformed}, true
	}
	if len(frame.Choices) == 0 {
		return event{kind: eventMalformed}, true
	}
	return event{kind: eventDelta, delta: frame.Choices[0].Delta.Content}, true
}

// Zhipu streams from the hosted chat-completion API, authenticating each call
// with a freshly minted signed token.
type Zhipu struct {
	cfg    config.AIConfig
	client *http.Client

	mu    sync.Mutex
	state State
}

func NewZhipu(cfg config.AIConfig) *Zhipu {
	return &Zhipu{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
		state:  StateIdle,
	}
}

func (z *Zhipu) setState(s State) {
	z.mu.Lock()
	z.state = s
	z.mu.Unlock()
}

// State reports the current request lifecycle phase, for status display.
func (z *Zhipu) State() State {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state
}

func (z *Zhipu) Stream(ctx context.Context, prompt string, onDelta func(string)) error {
	z.setState(StateRequesting)
	err := z.stream(ctx, prompt, onDelta)
	if err != nil {
		z.setState(StateFailed)
		return err
	}
	z.setState(StateCompleted)
	return nil
}

func (z *Zhipu) stream(ctx context.Context, prompt string, onDelta func(string)) error {
	token, err := mintToken(z.cfg.APIKey, time.Now())
	if err != nil {
		return err
	}

	payload := struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream      bool     `json:"stream"`
		Temperature *float64 `json:"temperature,omitempty"`
		TopP        *float64 `json:"top_p,omitempty"`
	}{
		Model: z.cfg.Model,
		Messages: []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{
			{Role: "system", Content: models.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:      true,
		Temperature: z.cfg.Temperature,
		TopP:        z.cfg.TopP,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fault.Wrap(fault.Stream, "llm.Stream", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return fault.Wrap(fault.Stream, "llm.Stream", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := z.client.Do(req)
	if err != nil {
		return fault.Wrap(fault.Stream, "llm.Stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fault.New(fault.Stream, "llm.Stream", "request failed: %d, %s", resp.StatusCode, string(body))
	}

	z.setState(StateStreaming)

	reader := bufio.NewReader(resp.Body)
	for {
		if ctx.Err() != nil {
			return fault.Wrap(fault.Stream, "llm.Stream", ctx.Err())
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fault.Wrap(fault.Stream, "llm.Stream", err)
		}

		ev, ok := parseEvent(line)
		if !ok {
			continue
		}
		switch ev.kind {
		case eventDone:
			return nil
		case eventMalformed:
			log.Warn().Str("frame", strings.TrimSpace(line)).Msg("Skipping malformed stream frame")
		case eventDelta:
			if ev.delta != "" {
				onDelta(ev.delta)
			}
		}
	}
}

// Mock types out a fixed passage when no API credential is configured, so the
// editor stays usable offline.
type Mock struct {
	Text  string
	Delay time.Duration
}

const mockPassage = "(mock continuation) With a violent shudder the ship slid into the starport, and the sight beyond the viewport took their breath away... (set ai.api_key to use the real model)"

func NewMock() *Mock {
	return &Mock{Text: mockPassage, Delay: 50 * time.Millisecond}
}

func (m *Mock) Stream(ctx context.Context, prompt string, onDelta func(string)) error {
	for _, r := range m.Text {
		select {
		case <-ctx.Done():
			return fault.Wrap(fault.Stream, "llm.Mock", ctx.Err())
		case <-time.After(m.Delay):
		}
		onDelta(string(r))
	}
	return nil
}

var _ Streamer = (*Zhipu)(nil)
var _ Streamer = (*Mock)(nil)

// Describe summarizes a streamer for startup logging.
func Describe(s Streamer) string {
	switch v := s.(type) {
	case *Zhipu:
		return fmt.Sprintf("zhipu model %s", v.cfg.Model)
	case *Mock:
		return "mock streamer"
	}
	return "custom streamer"
}
