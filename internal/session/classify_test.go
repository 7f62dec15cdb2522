package session

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Verdict
	}{
		{"yes", VerdictConfirmed},
		{"Yes, please!", VerdictConfirmed},
		{"ok", VerdictConfirmed},
		{"sure, go ahead", VerdictConfirmed},
		{"sounds good", VerdictConfirmed},
		{"네", VerdictConfirmed},
		{"좋아요", VerdictConfirmed},
		{"추가해줘", VerdictConfirmed},

		{"no", VerdictCancelled},
		{"No thanks", VerdictCancelled},
		{"don't add it", VerdictCancelled},
		{"cancel", VerdictCancelled},
		{"nope", VerdictCancelled},
		{"아니요", VerdictCancelled},
		{"취소", VerdictCancelled},

		// Negative cues win over positive ones.
		{"yes but don't add it yet", VerdictCancelled},
		{"ok, not now", VerdictCancelled},
		{"sure, cancel it", VerdictCancelled},

		{"maybe", VerdictUnrecognized},
		{"what does that mean?", VerdictUnrecognized},
		{"", VerdictUnrecognized},
		{"tomorrow", VerdictUnrecognized},
	}

	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHasScheduleIntent(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Take Tylenol 500mg three times a day", true},
		{"set a reminder for my medication", true},
		{"I was prescribed omeprazole", true},
		{"20mg in the morning", true},
		{"복용 일정을 잡아줘", true},
		{"hello there", false},
		{"what's the weather like", false},
		{"tell me a joke", false},
	}

	for _, tt := range tests {
		if got := HasScheduleIntent(tt.text); got != tt.want {
			t.Errorf("HasScheduleIntent(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
