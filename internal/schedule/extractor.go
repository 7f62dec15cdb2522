package schedule

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"med-reminder/internal/llm"
	"med-reminder/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

// responseEndMarker is the stop token the extraction prompt asks the model
// to emit after the JSON object; anything past it is discarded.
const responseEndMarker = "END_OF_SCHEDULE"

// Extractor turns free-form medication instructions into a RawPlan.
// It tries a local pattern tier first and falls back to a single
// completion-service call. Retries are a caller policy.
type Extractor struct {
	textGen      llm.TextGenerator
	disableLocal bool
}

// NewExtractor creates an Extractor. textGen may be nil, in which case only
// the local pattern tier runs.
func NewExtractor(textGen llm.TextGenerator, disableLocal bool) *Extractor {
	return &Extractor{textGen: textGen, disableLocal: disableLocal}
}

// Extract attempts both tiers in order; first success wins. ok is false only
// when both tiers fail.
func (e *Extractor) Extract(ctx context.Context, text string) (RawPlan, shared.AgentMeta, bool) {
	if !e.disableLocal {
		if candidates := localCandidates(text); len(candidates) > 0 {
			return candidates[0], shared.AgentMeta{AgentName: "PatternExtractor"}, true
		}
	}

	if e.textGen == nil {
		return RawPlan{}, shared.AgentMeta{}, false
	}

	raw, meta, err := e.extractRemote(ctx, text)
	if err != nil {
		log.Printf("Warning: remote extraction failed: %v", err)
		return RawPlan{}, meta, false
	}
	return raw, meta, true
}

// ---------------------------------------------------------------------------
// Local pattern tier

// candidate is what a single pattern rule captures from one chunk.
type candidate struct {
	name string
	freq int
}

// patternRule pairs a regexp with the function that turns its submatches
// into a candidate. Rules are evaluated in the order listed below; that
// order is part of the extraction contract.
type patternRule struct {
	re      *regexp.Regexp
	extract func(chunk string, m []string) (candidate, bool)
}

const (
	nameExpr = `([A-Za-z][A-Za-z0-9-]*)`
	doseExpr = `\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml)`
)

var (
	freqTimesRe  = regexp.MustCompile(`(?i)\b(\d+|one|two|three|four|five|six)\s+times?\b(?:\s*(?:a|per|each)\s+day|\s*daily)?`)
	freqWordRe   = regexp.MustCompile(`(?i)\b(once|twice|thrice)\b(?:\s*(?:a|per|each)\s+day|\s*daily)?`)
	everyHoursRe = regexp.MustCompile(`(?i)\bevery\s+(\d+)\s*hours?\b`)

	durationDaysRe  = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s*days?\b`)
	durationWeeksRe = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s*weeks?\b`)
	durationAWeekRe = regexp.MustCompile(`(?i)\bfor\s+a\s+week\b`)
	dosageRe        = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml))\b`)
	clockTimeRe     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	mealBeforeRe = regexp.MustCompile(`(?i)\bbefore\s+(?:meals?|food|eating)\b|\bon\s+an?\s+empty\s+stomach\b`)
	mealAfterRe  = regexp.MustCompile(`(?i)\bafter\s+(?:meals?|food|eating)\b|\bwith\s+(?:meals?|food)\b`)

	chunkSplitRe = regexp.MustCompile(`[.?!;\n]+`)
)

// dayPartPatterns are scanned in chronological order so derived dose times
// come out sorted without extra work.
var dayPartPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"morning", regexp.MustCompile(`(?i)\bmornings?\b|\bbreakfast\b`)},
	{"lunch", regexp.MustCompile(`(?i)\blunch(?:time)?\b|\bnoon\b|\bmidday\b`)},
	{"evening", regexp.MustCompile(`(?i)\bevenings?\b|\bnights?\b|\bdinner\b`)},
	{"bedtime", regexp.MustCompile(`(?i)\bbed\s*time\b|\bbefore\s+(?:bed|sleep(?:ing)?)\b`)},
}

// nameStopwords rejects common verbs and fillers that the looser patterns
// can capture in the medication-name position.
var nameStopwords = map[string]struct{}{
	"take": {}, "taking": {}, "takes": {}, "took": {},
	"and": {}, "the": {}, "with": {}, "every": {}, "each": {},
	"for": {}, "dose": {}, "doses": {}, "tablet": {}, "tablets": {},
	"pill": {}, "pills": {}, "capsule": {}, "drink": {}, "eat": {},
	"use": {}, "please": {}, "daily": {}, "about": {}, "some": {},
	"one": {}, "two": {}, "three": {}, "four": {}, "this": {}, "that": {},
	"it": {}, "them": {}, "me": {}, "my": {}, "your": {},
}

var localPatterns = []patternRule{
	// 1. "take <name> <dose> ... N times a day"
	{
		re: regexp.MustCompile(`(?i)\btake\s+` + nameExpr + `\s+` + doseExpr + `\b`),
		extract: func(chunk string, m []string) (candidate, bool) {
			freq, ok := chunkFrequency(chunk)
			if !ok {
				return candidate{}, false
			}
			return candidate{name: m[1], freq: freq}, true
		},
	},
	// 2. "<name> <dose> ... N times a day"
	{
		re: regexp.MustCompile(`(?i)\b` + nameExpr + `\s+` + doseExpr + `\b`),
		extract: func(chunk string, m []string) (candidate, bool) {
			freq, ok := chunkFrequency(chunk)
			if !ok {
				return candidate{}, false
			}
			return candidate{name: m[1], freq: freq}, true
		},
	},
	// 3. "<name> twice daily" / "<name> 3 times a day" (name adjacent to the count)
	{
		re: regexp.MustCompile(`(?i)\b` + nameExpr + `\s*,?\s+(?:(\d+|one|two|three|four|five|six)\s+times?|(once|twice|thrice))\b`),
		extract: func(chunk string, m []string) (candidate, bool) {
			word := m[2]
			if word == "" {
				word = m[3]
			}
			freq, ok := frequencyWord(word)
			if !ok {
				return candidate{}, false
			}
			return candidate{name: m[1], freq: freq}, true
		},
	},
	// 4. "<name> ... every N hours"
	{
		re: regexp.MustCompile(`(?i)\b(?:take\s+)?` + nameExpr + `\b[^.?!;\n]*?\bevery\s+(\d+)\s*hours?\b`),
		extract: func(chunk string, m []string) (candidate, bool) {
			hours, err := strconv.Atoi(m[2])
			if err != nil || hours <= 0 {
				return candidate{}, false
			}
			freq := 24 / hours
			if freq < 1 {
				freq = 1
			}
			if freq > 4 {
				freq = 4
			}
			return candidate{name: m[1], freq: freq}, true
		},
	},
	// 5. "<name> <dose>" plus a day-part or meal keyword; frequency derived later
	{
		re: regexp.MustCompile(`(?i)\b(?:take\s+)?` + nameExpr + `\s+` + doseExpr + `\b`),
		extract: func(chunk string, m []string) (candidate, bool) {
			if !hasTemporalKeyword(chunk) {
				return candidate{}, false
			}
			return candidate{name: m[1]}, true
		},
	},
	// 6. "take <name>" plus a day-part keyword
	{
		re: regexp.MustCompile(`(?i)\btake\s+` + nameExpr + `\b`),
		extract: func(chunk string, m []string) (candidate, bool) {
			if !hasTemporalKeyword(chunk) {
				return candidate{}, false
			}
			return candidate{name: m[1]}, true
		},
	},
}

// localCandidates runs the pattern cascade over each sentence-like chunk of
// the input. Each chunk contributes at most one candidate (first rule that
// matches); candidates are deduplicated by medication name, first kept.
func localCandidates(text string) []RawPlan {
	var plans []RawPlan
	seen := make(map[string]struct{})

	for _, chunk := range chunkSplitRe.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		cand, ok := matchChunk(chunk)
		if !ok {
			continue
		}

		key := nameKey(cand.name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		plans = append(plans, buildRawPlan(chunk, cand))
	}
	return plans
}

func matchChunk(chunk string) (candidate, bool) {
	for _, rule := range localPatterns {
		for _, m := range rule.re.FindAllStringSubmatch(chunk, -1) {
			cand, ok := rule.extract(chunk, m)
			if !ok {
				continue
			}
			if len(strings.TrimSpace(cand.name)) < 2 {
				continue
			}
			if _, stop := nameStopwords[strings.ToLower(cand.name)]; stop {
				continue
			}
			return cand, true
		}
	}
	return candidate{}, false
}

// buildRawPlan gathers the temporal context around a matched candidate.
func buildRawPlan(chunk string, cand candidate) RawPlan {
	raw := RawPlan{
		MedicationName: cand.name,
		Frequency:      cand.freq,
		MealRelation:   mealRelation(chunk),
	}

	if m := dosageRe.FindStringSubmatch(chunk); m != nil {
		raw.Dosage = strings.Join(strings.Fields(m[1]), "")
	}
	for _, part := range dayPartPatterns {
		if part.re.MatchString(chunk) {
			raw.DayParts = append(raw.DayParts, part.name)
		}
	}
	for _, m := range clockTimeRe.FindAllStringSubmatch(chunk, -1) {
		if t, ok := ParseTimeOfDay(m[1] + ":" + m[2]); ok {
			raw.Times = append(raw.Times, t)
		}
	}
	raw.DurationDays = chunkDuration(chunk)
	return raw
}

func chunkFrequency(chunk string) (int, bool) {
	if m := freqWordRe.FindStringSubmatch(chunk); m != nil {
		return frequencyWord(m[1])
	}
	if m := freqTimesRe.FindStringSubmatch(chunk); m != nil {
		return frequencyWord(m[1])
	}
	return 0, false
}

func frequencyWord(word string) (int, bool) {
	switch strings.ToLower(word) {
	case "once", "one":
		return 1, true
	case "twice", "two":
		return 2, true
	case "thrice", "three":
		return 3, true
	case "four":
		return 4, true
	case "five":
		return 5, true
	case "six":
		return 6, true
	}
	n, err := strconv.Atoi(word)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func chunkDuration(chunk string) int {
	if m := durationDaysRe.FindStringSubmatch(chunk); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := durationWeeksRe.FindStringSubmatch(chunk); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n * 7
		}
	}
	if durationAWeekRe.MatchString(chunk) {
		return 7
	}
	return 0
}

func mealRelation(chunk string) MealRelation {
	if mealBeforeRe.MatchString(chunk) {
		return MealBefore
	}
	if mealAfterRe.MatchString(chunk) {
		return MealAfter
	}
	return MealNone
}

func hasTemporalKeyword(chunk string) bool {
	for _, part := range dayPartPatterns {
		if part.re.MatchString(chunk) {
			return true
		}
	}
	return mealRelation(chunk) != MealNone
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// ---------------------------------------------------------------------------
// Remote completion tier

type extractorPromptData struct {
	Text      string
	EndMarker string
}

// remotePayload is the fixed JSON shape the extraction prompt asks for.
type remotePayload struct {
	MedicationName      string   `json:"medication_name"`
	Dosage              string   `json:"dosage"`
	Times               []string `json:"times"`
	DurationDays        int      `json:"duration_days"`
	SpecialInstructions string   `json:"special_instructions"`
}

func (e *Extractor) extractRemote(ctx context.Context, text string) (RawPlan, shared.AgentMeta, error) {
	prompt, err := buildExtractorPrompt(extractorPromptData{Text: text, EndMarker: responseEndMarker})
	if err != nil {
		return RawPlan{}, shared.AgentMeta{}, err
	}

	started := time.Now()
	resp, err := e.textGen.GenerateContent(ctx, prompt)
	meta := shared.AgentMeta{AgentName: "ScheduleExtractor", Usage: resp.Usage, Latency: time.Since(started)}
	if err != nil {
		return RawPlan{}, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}

	jsonStr, err := extractJSONObject(resp.Content)
	if err != nil {
		return RawPlan{}, meta, fmt.Errorf("no JSON object in LLM response: %w", err)
	}

	var payload remotePayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return RawPlan{}, meta, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	return rawPlanFromPayload(payload), meta, nil
}

func rawPlanFromPayload(p remotePayload) RawPlan {
	raw := RawPlan{
		MedicationName:      strings.TrimSpace(p.MedicationName),
		Dosage:              strings.TrimSpace(p.Dosage),
		DurationDays:        p.DurationDays,
		SpecialInstructions: strings.TrimSpace(p.SpecialInstructions),
	}

	// The model may answer with clock times or with day-part words; accept both.
	for _, s := range p.Times {
		s = strings.ToLower(strings.TrimSpace(s))
		if t, ok := ParseTimeOfDay(s); ok {
			raw.Times = append(raw.Times, t)
			continue
		}
		switch {
		case strings.Contains(s, "before meal") || strings.Contains(s, "before food"):
			raw.MealRelation = MealBefore
		case strings.Contains(s, "after meal") || strings.Contains(s, "after food"):
			raw.MealRelation = MealAfter
		case strings.Contains(s, "morning") || strings.Contains(s, "breakfast"):
			raw.DayParts = append(raw.DayParts, "morning")
		case strings.Contains(s, "lunch") || strings.Contains(s, "noon"):
			raw.DayParts = append(raw.DayParts, "lunch")
		case strings.Contains(s, "evening") || strings.Contains(s, "night") || strings.Contains(s, "dinner"):
			raw.DayParts = append(raw.DayParts, "evening")
		case strings.Contains(s, "bed"):
			raw.DayParts = append(raw.DayParts, "bedtime")
		}
	}
	return raw
}

// extractJSONObject pulls the first balanced JSON object out of a model
// response. The response is not assumed to be valid JSON: it is truncated at
// the end marker if present, then scanned from the first '{' tracking brace
// depth, ignoring any trailing prose.
func extractJSONObject(text string) (string, error) {
	if i := strings.Index(text, responseEndMarker); i >= 0 {
		text = text[:i]
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no opening brace found")
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced braces in response")
}

func buildExtractorPrompt(data extractorPromptData) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
