package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
)

// mockProvider implements llm.Provider with a scripted response.
type mockProvider struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (m *mockProvider) Complete(_ context.Context, prompt string, _ llm.CompletionOpts) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockProvider) Name() string { return "mock/test" }

func nopLog() zerolog.Logger { return zerolog.Nop() }

func TestClassify_ConfidentModelResultWins(t *testing.T) {
	p := &mockProvider{response: `{"intent":"delete","confidence":0.92,"reason":"cancel verb"}`}
	c := NewClassifier(p, nopLog())

	// Keyword fallback would say add here; the confident model wins.
	got := c.Classify(context.Background(), "take the planning session off my calendar", nil)
	if got.Intent != event.IntentDelete {
		t.Errorf("got %s, want delete", got.Intent)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 call, got %d", p.calls)
	}
}

func TestClassify_LowConfidenceReplacedWholesale(t *testing.T) {
	p := &mockProvider{response: `{"intent":"update","confidence":0.4,"reason":"unsure"}`}
	c := NewClassifier(p, nopLog())

	got := c.Classify(context.Background(), "cancel tomorrow's gym session", nil)
	// Not merged with the model's guess: the fallback output is authoritative.
	if got.Intent != event.IntentDelete {
		t.Errorf("got %s, want fallback delete", got.Intent)
	}
}

func TestClassify_CompletionErrorDegradesToFallback(t *testing.T) {
	p := &mockProvider{err: errors.New("timeout")}
	c := NewClassifier(p, nopLog())

	got := c.Classify(context.Background(), "schedule a meeting tomorrow", nil)
	if got.Intent != event.IntentAdd {
		t.Errorf("got %s, want add", got.Intent)
	}
}

func TestClassify_MalformedOutputDegradesToFallback(t *testing.T) {
	p := &mockProvider{response: "I think this is probably about the calendar?"}
	c := NewClassifier(p, nopLog())

	got := c.Classify(context.Background(), "delete the dentist appointment", nil)
	if got.Intent != event.IntentDelete {
		t.Errorf("got %s, want delete", got.Intent)
	}
}

func TestClassify_InvalidIntentLabelDegradesToFallback(t *testing.T) {
	p := &mockProvider{response: `{"intent":"remind","confidence":0.95}`}
	c := NewClassifier(p, nopLog())

	got := c.Classify(context.Background(), "cancel the review", nil)
	if got.Intent != event.IntentDelete {
		t.Errorf("got %s, want delete", got.Intent)
	}
}

func TestClassify_TranscriptIncludedInPrompt(t *testing.T) {
	p := &mockProvider{response: `{"intent":"chat","confidence":0.9}`}
	c := NewClassifier(p, nopLog())

	transcript := event.Transcript{{Role: "user", Text: "hello"}, {Role: "assistant", Text: "hi!"}}
	c.Classify(context.Background(), "thanks", transcript)

	if len(p.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(p.prompts))
	}
	for _, want := range []string{"hello", "hi!", "thanks"} {
		if !strings.Contains(p.prompts[0], want) {
			t.Errorf("prompt missing %q:\n%s", want, p.prompts[0])
		}
	}
}
