package domain

import "time"

// Turn is one completed question/answer exchange. Turns are append-only;
// a recorded turn is never mutated.
type Turn struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	ChunkKeys  []string  `json:"chunk_keys,omitempty"`
	Redirected bool      `json:"redirected"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProactiveSignals is what the engagement heuristics derive from recent
// session history before a turn is answered.
type ProactiveSignals struct {
	RepeatedQuestions int
	Stuck             bool
	AskedForHelp      bool
	SinceLastTurn     time.Duration
	Expertise         ExpertiseLevel
}

type ExpertiseLevel string

const (
	ExpertiseBeginner     ExpertiseLevel = "beginner"
	ExpertiseIntermediate ExpertiseLevel = "intermediate"
	ExpertiseAdvanced     ExpertiseLevel = "advanced"
)
