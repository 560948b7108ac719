// Package interview implements the clarification stop/continue policy for a
// classification conversation. The controller is a pure function of
// (state, inputs): it returns an updated state copy and a decision, and never
// reads or writes storage, so every loop-detection rule is unit-testable in
// isolation.
package interview

import (
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// Action is what the caller should do next with the conversation.
type Action string

// Controller actions.
const (
	// ActionAsk continues the interview with the decision's questions.
	ActionAsk Action = "ask"
	// ActionStop ends the interview; the caller classifies with whatever
	// Q&A has been collected.
	ActionStop Action = "stop"
)

// Config holds the interview limits and loop-detection trigger counts. The
// relative priority of the stop triggers is fixed; the counts and thresholds
// are configurable defaults.
type Config struct {
	// HardLimit is the absolute cap on questions asked in one conversation.
	HardLimit int
	// SoftLimit is where a non-blocking warning is attached to decisions.
	SoftLimit int
	// FrustrationStop is how many frustration occurrences end the interview.
	FrustrationStop int
	// SimilarRoundsStop is how many consecutive similar-question rounds end it.
	SimilarRoundsStop int
	// DuplicateStop is how many exact duplicate questions end it.
	DuplicateStop int
	// UnknownStop is how many unknown/no-answer responses end it.
	UnknownStop int
	// EmptyRoundsStop is how many consecutive empty generation rounds end it.
	EmptyRoundsStop int
	// SimilarityThreshold is the keyword overlap ratio above which two
	// questions count as repetitive.
	SimilarityThreshold float64
}

// DefaultConfig returns the default interview policy configuration.
func DefaultConfig() Config {
	return Config{
		HardLimit:           15,
		SoftLimit:           8,
		FrustrationStop:     2,
		SimilarRoundsStop:   3,
		DuplicateStop:       5,
		UnknownStop:         5,
		EmptyRoundsStop:     2,
		SimilarityThreshold: 0.6,
	}
}

// Decision is the controller's verdict for one round.
type Decision struct {
	State model.InterviewState
	// Questions is the (possibly truncated) batch to ask when Action is ask.
	Questions []string
	Action    Action
	Reason    model.StopReason
	// Warning carries a non-blocking advisory, currently only the soft-limit
	// warning, while the interview continues.
	Warning model.StopReason
}

// Controller applies the continuation policy.
type Controller struct {
	config Config
}

// New creates a controller with the given configuration, filling zero values
// with defaults.
func New(config Config) *Controller {
	defaults := DefaultConfig()
	if config.HardLimit <= 0 {
		config.HardLimit = defaults.HardLimit
	}
	if config.SoftLimit <= 0 {
		config.SoftLimit = defaults.SoftLimit
	}
	if config.FrustrationStop <= 0 {
		config.FrustrationStop = defaults.FrustrationStop
	}
	if config.SimilarRoundsStop <= 0 {
		config.SimilarRoundsStop = defaults.SimilarRoundsStop
	}
	if config.DuplicateStop <= 0 {
		config.DuplicateStop = defaults.DuplicateStop
	}
	if config.UnknownStop <= 0 {
		config.UnknownStop = defaults.UnknownStop
	}
	if config.EmptyRoundsStop <= 0 {
		config.EmptyRoundsStop = defaults.EmptyRoundsStop
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = defaults.SimilarityThreshold
	}
	return &Controller{config: config}
}

// Decide consumes a batch of new answers and the candidate next questions,
// and decides whether to keep interviewing. The transition rules run in a
// fixed priority order; the first match wins. The returned state is an
// updated copy for the caller to persist.
func (c *Controller) Decide(state model.InterviewState, newAnswers, candidateQuestions []string, manualSkip bool) Decision {
	next := state.Clone()

	// Fold this round's signals into the state before ruling on it.
	next.AnswersReceived += len(newAnswers)

	frustratedNow := detectFrustration(newAnswers)
	if frustratedNow {
		next.FrustrationHits++
	}

	next.UnknownAnswers += countUnknownAnswers(newAnswers)

	if len(candidateQuestions) > 0 && roundOverlapsRecent(candidateQuestions, next.RecentQuestions, c.config.SimilarityThreshold) {
		next.SimilarRounds++
	} else {
		next.SimilarRounds = 0
	}

	next.DuplicateHits += countExactDuplicates(candidateQuestions, next.AskedQuestions)

	// An empty candidate batch counts toward the generation loop once the
	// conversation is underway: answers arrived this round, or the previous
	// round already asked nothing.
	prevRoundEmpty := len(next.RecentQuestions) > 0 &&
		len(next.RecentQuestions[len(next.RecentQuestions)-1]) == 0
	if len(candidateQuestions) == 0 && (len(newAnswers) > 0 || prevRoundEmpty) {
		next.EmptyQuestionRounds++
	} else if len(candidateQuestions) > 0 {
		next.EmptyQuestionRounds = 0
	}

	// Transition rules, first match wins.
	switch {
	case manualSkip:
		return stop(next, model.ReasonManualSkip)

	case next.QuestionsAsked >= c.config.HardLimit:
		return stop(next, model.ReasonHardLimit)

	case frustratedNow && next.FrustrationHits >= c.config.FrustrationStop:
		return stop(next, model.ReasonFrustration)

	case next.SimilarRounds >= c.config.SimilarRoundsStop:
		return stop(next, model.ReasonRepetitiveQuestions)

	case next.DuplicateHits >= c.config.DuplicateStop:
		return stop(next, model.ReasonExactDuplicate)

	case next.UnknownAnswers >= c.config.UnknownStop:
		return stop(next, model.ReasonUnknownAnswers)

	case next.EmptyQuestionRounds >= c.config.EmptyRoundsStop:
		return stop(next, model.ReasonGenerationLoop)
	}

	// Never let a round push past the hard limit: truncate the batch to the
	// remaining budget so questionsAsked can never exceed it.
	questions := candidateQuestions
	if remaining := c.config.HardLimit - next.QuestionsAsked; len(questions) > remaining {
		questions = questions[:remaining]
	}

	next.RecordAskedRound(questions)

	decision := Decision{
		State:     next,
		Questions: questions,
		Action:    ActionAsk,
	}

	if next.QuestionsAsked >= c.config.SoftLimit {
		decision.Warning = model.ReasonSoftLimitWarning
	}

	return decision
}

// HardLimit exposes the configured cap for callers sizing question batches.
func (c *Controller) HardLimit() int {
	return c.config.HardLimit
}

func stop(state model.InterviewState, reason model.StopReason) Decision {
	return Decision{
		State:  state,
		Action: ActionStop,
		Reason: reason,
	}
}

// countExactDuplicates counts candidate questions that exactly repeat a
// previously asked question, after whitespace/case normalization.
func countExactDuplicates(candidates, asked []string) int {
	if len(candidates) == 0 || len(asked) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(asked))
	for _, q := range asked {
		seen[normalizeQuestion(q)] = true
	}

	count := 0
	for _, q := range candidates {
		if seen[normalizeQuestion(q)] {
			count++
		}
	}
	return count
}
