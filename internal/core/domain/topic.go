package domain

import "time"

// Topic is one key term mined from the corpus. Confidence grows with the
// number of documents the term appears in.
type Topic struct {
	Term       string   `json:"term" yaml:"term"`
	Documents  []string `json:"documents" yaml:"documents"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// TopicProfile is derived at rebuild time from the ingested documents
// only. It carries everything the domain filter needs to score a question
// without consulting any external service.
type TopicProfile struct {
	Topics        map[string]Topic `json:"topics" yaml:"topics"`
	Entities      []string         `json:"entities" yaml:"entities"`
	CoverageAreas []string         `json:"coverage_areas" yaml:"coverage_areas"`
	Threshold     float64          `json:"threshold" yaml:"threshold"`
	Documents     int              `json:"documents" yaml:"documents"`
	BuiltAt       time.Time        `json:"built_at" yaml:"built_at"`
}

// TopicClassification is the filter's verdict for one question.
type TopicClassification struct {
	InDomain      bool
	Confidence    float64
	MatchedTopics []string
	MatchedEntity bool
}
