package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/config"
	"inkwell/internal/fault"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		ok    bool
		kind  eventKind
		delta string
	}{
		{"delta", `data: {"choices":[{"delta":{"content":"Once"}}]}`, true, eventDelta, "Once"},
		{"done", "data: [DONE]", true, eventDone, ""},
		{"bad json", "data: {not json", true, eventMalformed, ""},
		{"no choices", `data: {"choices":[]}`, true, eventMalformed, ""},
		{"blank", "", false, 0, ""},
		{"comment", ": keepalive", false, 0, ""},
		{"other field", "event: message", false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := parseEvent(tt.line)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, ev.kind)
				assert.Equal(t, tt.delta, ev.delta)
			}
		})
	}
}

func sseFrame(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

func testAIConfig(url string) config.AIConfig {
	temp, topP := 0.7, 0.9
	return config.AIConfig{
		APIKey:      "test-id.test-secret",
		BaseURL:     url,
		Model:       "glm-4.5-flash",
		Temperature: &temp,
		TopP:        &topP,
	}
}

func TestZhipu_StreamsDeltasInOrder(t *testing.T) {
	deltas := []string{"Once", " upon", " a", " time", "."}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, d := range deltas {
			fmt.Fprint(w, sseFrame(d))
			fl.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	z := NewZhipu(testAIConfig(srv.URL))
	var got []string
	err := z.Stream(context.Background(), "prompt", func(s string) { got = append(got, s) })

	require.NoError(t, err)
	assert.Equal(t, deltas, got)
	assert.Equal(t, StateCompleted, z.State())
}

func TestZhipu_SkipsMalformedFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseFrame("good"))
		fmt.Fprint(w, "data: {broken json\n\n")
		fmt.Fprint(w, sseFrame(" frames"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	z := NewZhipu(testAIConfig(srv.URL))
	var got string
	err := z.Stream(context.Background(), "prompt", func(s string) { got += s })

	require.NoError(t, err)
	assert.Equal(t, "good frames", got)
}

func TestZhipu_MidStreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		fmt.Fprint(w, sseFrame("Once"))
		fmt.Fprint(w, sseFrame(" upon"))
		fl.Flush()
		panic(http.ErrAbortHandler) // drop the connection mid-stream
	}))
	defer srv.Close()

	z := NewZhipu(testAIConfig(srv.URL))
	var got string
	var errCalls int
	err := z.Stream(context.Background(), "prompt", func(s string) { got += s })
	if err != nil {
		errCalls++
	}

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Stream))
	assert.Equal(t, 1, errCalls)
	assert.Equal(t, "Once upon", got, "deltas delivered before the failure stand")
	assert.Equal(t, StateFailed, z.State())
}

func TestZhipu_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	z := NewZhipu(testAIConfig(srv.URL))
	err := z.Stream(context.Background(), "prompt", func(string) {})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Stream))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestZhipu_Cancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		fmt.Fprint(w, sseFrame("Once"))
		fl.Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	z := NewZhipu(testAIConfig(srv.URL))
	var got string
	errCh := make(chan error, 1)
	go func() {
		errCh <- z.Stream(ctx, "prompt", func(s string) { got += s })
	}()

	require.Eventually(t, func() bool { return got == "Once" }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, fault.IsKind(err, fault.Stream))
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
	assert.Equal(t, "Once", got, "no increments after cancellation")
}

func TestZhipu_BadAPIKey(t *testing.T) {
	z := NewZhipu(config.AIConfig{APIKey: "not-a-pair", BaseURL: "http://unused"})
	err := z.Stream(context.Background(), "prompt", func(string) {})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Configuration))
}

func TestMock_TypesOutPassage(t *testing.T) {
	m := &Mock{Text: "abc", Delay: time.Millisecond}
	var got string
	err := m.Stream(context.Background(), "prompt", func(s string) { got += s })

	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestMock_Cancellation(t *testing.T) {
	m := &Mock{Text: "abcdef", Delay: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	var got string
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()
	err := m.Stream(ctx, "prompt", func(s string) { got += s })

	require.Error(t, err)
	assert.Less(t, len(got), len(m.Text))
}
