package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

const (
	defaultStuckWindow     = 5
	defaultStuckSimilarity = 0.5
	minStuckRepeats        = 2
	maxSuggestions         = 4
)

var helpPhrases = []string{
	"help",
	"don't understand",
	"do not understand",
	"confused",
	"stuck",
	"what do you mean",
	"can you explain",
}

// ProactiveEngine derives engagement signals from recent session history.
// It holds no state of its own; every turn recomputes from scratch.
type ProactiveEngine struct {
	Window     int
	Similarity float64
}

func NewProactiveEngine(window int, similarity float64) *ProactiveEngine {
	if window <= 0 {
		window = defaultStuckWindow
	}
	if similarity <= 0 || similarity > 1 {
		similarity = defaultStuckSimilarity
	}
	return &ProactiveEngine{
		Window:     window,
		Similarity: similarity,
	}
}

// Analyze inspects the incoming question against the session's prior
// turns. A user is stuck when the same question, by token overlap, has
// already been asked at least twice inside the window.
func (e *ProactiveEngine) Analyze(history []domain.Turn, question string, now time.Time) domain.ProactiveSignals {
	signals := domain.ProactiveSignals{
		Expertise: estimateExpertise(history, question),
	}

	if len(history) > 0 {
		signals.SinceLastTurn = now.Sub(history[len(history)-1].CreatedAt)
	}

	lower := strings.ToLower(question)
	for _, phrase := range helpPhrases {
		if strings.Contains(lower, phrase) {
			signals.AskedForHelp = true
			break
		}
	}

	window := history
	if len(window) > e.Window {
		window = window[len(window)-e.Window:]
	}

	current := toTokenSet(question)
	for _, turn := range window {
		if questionSimilarity(current, toTokenSet(turn.Question)) >= e.Similarity {
			signals.RepeatedQuestions++
		}
	}
	signals.Stuck = signals.RepeatedQuestions >= minStuckRepeats || signals.AskedForHelp

	return signals
}

// Suggest proposes follow-up directions for a stuck user. Content comes
// from the topic profile's coverage areas, preferring areas whose source
// documents this turn already retrieved from.
func (e *ProactiveEngine) Suggest(profile *domain.TopicProfile, retrieved []domain.RetrievedChunk, signals domain.ProactiveSignals) []string {
	if !signals.Stuck || profile == nil || len(profile.CoverageAreas) == 0 {
		return nil
	}

	retrievedFiles := make(map[string]struct{}, len(retrieved))
	for _, chunk := range retrieved {
		retrievedFiles[chunk.Filename] = struct{}{}
	}

	var preferred, rest []string
	for _, area := range profile.CoverageAreas {
		filename, _, found := strings.Cut(area, ":")
		if found {
			if _, ok := retrievedFiles[strings.TrimSpace(filename)]; ok {
				preferred = append(preferred, area)
				continue
			}
		}
		rest = append(rest, area)
	}

	var out []string
	for _, area := range append(preferred, rest...) {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, suggestionForArea(area, signals.Expertise))
	}
	return out
}

func suggestionForArea(area string, expertise domain.ExpertiseLevel) string {
	filename, terms, found := strings.Cut(area, ":")
	topic := strings.TrimSpace(terms)
	if !found || topic == "" {
		topic = area
		filename = ""
	}

	if expertise == domain.ExpertiseBeginner {
		return fmt.Sprintf("Try asking for an overview of %s.", topic)
	}
	if filename != "" {
		return fmt.Sprintf("Try asking about %s (covered in %s).", topic, strings.TrimSpace(filename))
	}
	return fmt.Sprintf("Try asking about %s.", topic)
}

// questionSimilarity is the share of overlapping tokens relative to the
// larger question.
func questionSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for token := range a {
		if _, ok := b[token]; ok {
			common++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(common) / float64(larger)
}

func estimateExpertise(history []domain.Turn, question string) domain.ExpertiseLevel {
	total := len(splitAlphaNumLower(question))
	count := 1
	for _, turn := range history {
		total += len(splitAlphaNumLower(turn.Question))
		count++
	}
	avg := float64(total) / float64(count)

	switch {
	case avg < 6:
		return domain.ExpertiseBeginner
	case avg < 12:
		return domain.ExpertiseIntermediate
	default:
		return domain.ExpertiseAdvanced
	}
}
