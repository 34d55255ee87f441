package intent

import (
	"testing"

	"github.com/jungfsg/Calender/internal/event"
)

func TestFallbackClassify_ObligationPhrasingBeatsNouns(t *testing.T) {
	cases := []struct {
		text string
		want event.Intent
	}{
		{"I'm supposed to see the dentist tomorrow", event.IntentAdd},
		{"must go to the bank on friday", event.IntentAdd},
		{"planned to have lunch with Sam", event.IntentAdd},
		{"schedule a team meeting for 3pm", event.IntentAdd},
		{"cancel tomorrow's gym session", event.IntentDelete},
		{"move the standup to 4pm", event.IntentUpdate},
		{"copy monday's standup to friday", event.IntentCopy},
	}
	for _, tc := range cases {
		got := FallbackClassify(tc.text)
		if got.Intent != tc.want {
			t.Errorf("FallbackClassify(%q) = %s, want %s (reason: %s)", tc.text, got.Intent, tc.want, got.Reason)
		}
	}
}

func TestFallbackClassify_QuestionPatternsShortCircuitToSearch(t *testing.T) {
	cases := []string{
		"do I have anything planned tomorrow",
		"am I busy next week monday",
		"what's on my schedule friday",
		"when is the dentist appointment",
		"anything?",
	}
	for _, text := range cases {
		got := FallbackClassify(text)
		if got.Intent != event.IntentSearch {
			t.Errorf("FallbackClassify(%q) = %s, want search", text, got.Intent)
		}
	}
}

func TestFallbackClassify_NoMatchIsChat(t *testing.T) {
	got := FallbackClassify("nice weather today, isn't it")
	if got.Intent != event.IntentChat {
		t.Fatalf("got %s, want chat", got.Intent)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("no-match confidence = %v, want %v", got.Confidence, FallbackConfidence)
	}
}

func TestFallbackClassify_HighestScoreWins(t *testing.T) {
	// "delete" (2.0) beats the weak "meeting" noun (1.0).
	got := FallbackClassify("delete the budget meeting")
	if got.Intent != event.IntentDelete {
		t.Errorf("got %s, want delete", got.Intent)
	}
}
