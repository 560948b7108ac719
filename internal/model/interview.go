package model

// RecentQuestionWindow bounds how many prior question rounds are kept for
// similarity comparison.
const RecentQuestionWindow = 5

// InterviewState carries every loop-detection signal for a conversation as an
// explicit value, so the continuation policy is a pure function of its inputs
// rather than a re-scan of historical audit records. The caller owns the
// state; the controller returns an updated copy and never touches storage.
type InterviewState struct {
	QuestionsAsked      int        `json:"questionsAsked"`
	AnswersReceived     int        `json:"answersReceived"`
	AskedQuestions      []string   `json:"askedQuestions"`
	RecentQuestions     [][]string `json:"recentQuestions"`
	FrustrationHits     int        `json:"frustrationHits"`
	SimilarRounds       int        `json:"similarRounds"`
	DuplicateHits       int        `json:"duplicateHits"`
	UnknownAnswers      int        `json:"unknownAnswers"`
	EmptyQuestionRounds int        `json:"emptyQuestionRounds"`
}

// NewInterviewState returns the initial state for a fresh conversation.
func NewInterviewState() InterviewState {
	return InterviewState{}
}

// Clone returns a deep copy so decisions never alias the caller's snapshot.
func (s InterviewState) Clone() InterviewState {
	out := s
	out.AskedQuestions = append([]string(nil), s.AskedQuestions...)
	out.RecentQuestions = make([][]string, len(s.RecentQuestions))
	for i, round := range s.RecentQuestions {
		out.RecentQuestions[i] = append([]string(nil), round...)
	}
	return out
}

// RecordAskedRound appends a round of questions, trimming the recent window.
func (s *InterviewState) RecordAskedRound(questions []string) {
	s.QuestionsAsked += len(questions)
	s.AskedQuestions = append(s.AskedQuestions, questions...)
	s.RecentQuestions = append(s.RecentQuestions, append([]string(nil), questions...))
	if len(s.RecentQuestions) > RecentQuestionWindow {
		s.RecentQuestions = s.RecentQuestions[len(s.RecentQuestions)-RecentQuestionWindow:]
	}
}

// StopReason explains why an interview was ended.
type StopReason string

// Interview stop and warning reasons.
const (
	ReasonManualSkip          StopReason = "manual_skip"
	ReasonHardLimit           StopReason = "hard_limit"
	ReasonFrustration         StopReason = "frustration"
	ReasonRepetitiveQuestions StopReason = "repetitive_questions"
	ReasonExactDuplicate      StopReason = "exact_duplicate"
	ReasonUnknownAnswers      StopReason = "unknown_answers"
	ReasonGenerationLoop      StopReason = "generation_loop"
	ReasonSoftLimitWarning    StopReason = "soft_limit_warning"
	ReasonContinue            StopReason = ""
)
