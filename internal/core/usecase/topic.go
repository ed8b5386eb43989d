package usecase

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// The filter learns its vocabulary from the corpus alone; nothing here
// names a trade concept. Stopwords are the only fixed linguistic input.
var topicStopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {}, "and": {},
	"any": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {}, "before": {},
	"but": {}, "by": {}, "can": {}, "could": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "had": {}, "has": {}, "have": {}, "how": {}, "i": {}, "if": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "may": {}, "more": {},
	"must": {}, "my": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"other": {}, "our": {}, "shall": {}, "should": {}, "so": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "to": {}, "under": {},
	"up": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "why": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {},
}

const (
	minTopicTokenLen    = 3
	coverageTermsPerDoc = 3
	// A term in this many documents reaches full confidence.
	topicConfidenceSaturation = 10
)

// BuildTopicProfile derives the domain filter's knowledge from the
// ingested documents: every informative term becomes a topic weighted by
// document frequency, uppercase acronyms become entities, and each
// document contributes one coverage area summarizing its densest terms.
func BuildTopicProfile(docs []domain.Document, threshold float64, builtAt time.Time) *domain.TopicProfile {
	if threshold <= 0 {
		threshold = 0.05
	}

	topics := make(map[string]domain.Topic)
	entitySet := make(map[string]struct{})
	coverage := make([]string, 0, len(docs))

	for _, doc := range docs {
		termCounts := make(map[string]int)
		for _, token := range splitAlphaNumLower(doc.Filename + " " + doc.Text) {
			if len(token) < minTopicTokenLen {
				continue
			}
			if _, stop := topicStopwords[token]; stop {
				continue
			}
			termCounts[token]++
		}

		for term := range termCounts {
			topic := topics[term]
			topic.Term = term
			topic.Documents = append(topic.Documents, doc.Filename)
			topics[term] = topic
		}

		for _, entity := range extractAcronyms(doc.Text) {
			entitySet[entity] = struct{}{}
		}

		if area := coverageArea(doc.Filename, termCounts); area != "" {
			coverage = append(coverage, area)
		}
	}

	for term, topic := range topics {
		confidence := float64(len(topic.Documents)) / topicConfidenceSaturation
		if confidence > 1 {
			confidence = 1
		}
		if confidence < 0.1 {
			confidence = 0.1
		}
		topic.Confidence = confidence
		sort.Strings(topic.Documents)
		topics[term] = topic
	}

	entities := make([]string, 0, len(entitySet))
	for entity := range entitySet {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	sort.Strings(coverage)

	return &domain.TopicProfile{
		Topics:        topics,
		Entities:      entities,
		CoverageAreas: coverage,
		Threshold:     threshold,
		Documents:     len(docs),
		BuiltAt:       builtAt,
	}
}

// classifyQuestion scores a question against the profile: the sum of
// matched topic confidences over the question's informative token count.
// An entity mention is in-domain regardless of the score.
func classifyQuestion(profile *domain.TopicProfile, question string) domain.TopicClassification {
	if profile == nil || len(profile.Topics) == 0 {
		return domain.TopicClassification{}
	}

	tokens := splitAlphaNumLower(question)
	informative := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) < minTopicTokenLen {
			continue
		}
		if _, stop := topicStopwords[token]; stop {
			continue
		}
		informative = append(informative, token)
	}
	if len(informative) == 0 {
		return domain.TopicClassification{}
	}

	var (
		score   float64
		matched []string
		seen    = make(map[string]bool, len(informative))
	)
	for _, token := range informative {
		if seen[token] {
			continue
		}
		seen[token] = true
		if topic, ok := profile.Topics[token]; ok {
			score += topic.Confidence
			matched = append(matched, token)
		}
	}
	confidence := score / float64(len(informative))

	entityHit := questionMentionsEntity(profile.Entities, tokens)

	return domain.TopicClassification{
		InDomain:      confidence >= profile.Threshold || entityHit,
		Confidence:    confidence,
		MatchedTopics: matched,
		MatchedEntity: entityHit,
	}
}

func questionMentionsEntity(entities []string, questionTokens []string) bool {
	if len(entities) == 0 {
		return false
	}
	tokenSet := make(map[string]struct{}, len(questionTokens))
	for _, token := range questionTokens {
		tokenSet[token] = struct{}{}
	}
	for _, entity := range entities {
		if _, ok := tokenSet[strings.ToLower(entity)]; ok {
			return true
		}
	}
	return false
}

// extractAcronyms collects runs of two or more uppercase letters.
func extractAcronyms(text string) []string {
	var (
		out []string
		run []rune
	)
	flush := func() {
		if len(run) >= 2 {
			out = append(out, string(run))
		}
		run = run[:0]
	}
	for _, r := range text {
		if unicode.IsUpper(r) {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return out
}

// coverageArea names what one document is about using its densest terms.
func coverageArea(filename string, termCounts map[string]int) string {
	if len(termCounts) == 0 {
		return ""
	}

	type termCount struct {
		term  string
		count int
	}
	ranked := make([]termCount, 0, len(termCounts))
	for term, count := range termCounts {
		ranked = append(ranked, termCount{term: term, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})

	n := coverageTermsPerDoc
	if n > len(ranked) {
		n = len(ranked)
	}
	terms := make([]string, n)
	for i := 0; i < n; i++ {
		terms[i] = ranked[i].term
	}
	return filename + ": " + strings.Join(terms, ", ")
}
