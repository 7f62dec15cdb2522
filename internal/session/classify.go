package session

import (
	"regexp"
	"strings"
	"unicode"
)

// Verdict is the interpretation of a user's reply to a pending confirmation.
type Verdict int

const (
	// VerdictUnrecognized means the reply matched neither lexicon.
	VerdictUnrecognized Verdict = iota
	// VerdictConfirmed means the user approved the pending plan.
	VerdictConfirmed
	// VerdictCancelled means the user declined the pending plan.
	VerdictCancelled
)

// Negative cues are checked before positive ones, so mixed replies like
// "yes but don't add it yet" resolve as a cancel.
var negativePhrases = []string{
	"do not",
	"dont add",
	"not now",
	"not yet",
	"hold off",
	"never mind",
	"nevermind",
	"하지 마",
	"하지마",
	"안 할",
	"안할",
}

var negativeWords = map[string]bool{
	"no":     true,
	"not":    true,
	"dont":   true,
	"nope":   true,
	"nah":    true,
	"cancel": true,
	"stop":   true,
	"never":  true,
	"취소":     true,
	"아니":     true,
	"아니요":    true,
	"아니오":    true,
	"싫어":     true,
	"싫어요":    true,
}

var positivePhrases = []string{
	"go ahead",
	"sounds good",
	"looks good",
	"of course",
	"add it",
	"추가해",
	"등록해",
	"해줘",
	"해 줘",
}

var positiveWords = map[string]bool{
	"yes":     true,
	"y":       true,
	"yeah":    true,
	"yep":     true,
	"yup":     true,
	"sure":    true,
	"ok":      true,
	"okay":    true,
	"please":  true,
	"confirm": true,
	"네":       true,
	"예":       true,
	"응":       true,
	"어":       true,
	"그래":      true,
	"좋아":      true,
	"좋아요":     true,
	"추가":      true,
	"확인":      true,
}

// Classify maps a free-text reply to a confirmation verdict. Phrases match
// as substrings of the normalized text; single words must appear as whole
// tokens. A reply matching nothing is unrecognized, never an implicit yes.
func Classify(text string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.NewReplacer("'", "", "’", "").Replace(normalized)

	tokens := tokenize(normalized)

	if matchesAny(normalized, tokens, negativePhrases, negativeWords) {
		return VerdictCancelled
	}
	if matchesAny(normalized, tokens, positivePhrases, positiveWords) {
		return VerdictConfirmed
	}
	return VerdictUnrecognized
}

func matchesAny(normalized string, tokens []string, phrases []string, words map[string]bool) bool {
	for _, phrase := range phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	for _, tok := range tokens {
		if words[tok] {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Intent keywords gate which messages start a new dialogue; anything else is
// left for general conversation handling.
var intentWords = map[string]bool{
	"calendar":     true,
	"schedule":     true,
	"remind":       true,
	"reminder":     true,
	"reminders":    true,
	"alarm":        true,
	"alert":        true,
	"medication":   true,
	"medicine":     true,
	"med":          true,
	"meds":         true,
	"pill":         true,
	"pills":        true,
	"dose":         true,
	"doses":        true,
	"dosage":       true,
	"prescription": true,
	"prescribed":   true,
	"take":         true,
	"tablet":       true,
	"capsule":      true,
	"daily":        true,
	"캘린더":          true,
	"달력":           true,
	"알림":           true,
	"복용":           true,
	"약":            true,
}

var intentDosageRe = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|iu)\b`)

// HasScheduleIntent reports whether the message looks like a medication
// scheduling request.
func HasScheduleIntent(text string) bool {
	lower := strings.ToLower(text)
	if intentDosageRe.MatchString(lower) {
		return true
	}
	for _, tok := range tokenize(lower) {
		if intentWords[tok] {
			return true
		}
	}
	return false
}
