package engine

import (
	"context"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// Classifier produces a transformation classification from a process
// description and the clarification history. Failure here is fatal to the
// pipeline and surfaces to the caller.
type Classifier interface {
	GenerateClassification(ctx context.Context, description string, history []model.ClarificationQA) (model.Classification, error)
}

// QuestionGenerator proposes the next clarifying questions for a
// conversation. Failures and unparseable output are treated by the
// orchestrator as an empty batch, which feeds the generation-loop guard.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, description string, classification model.Classification, history []model.ClarificationQA) (service.QuestionBatch, error)
}

// AttributeExtractor resolves a value for every attribute the decision matrix
// declares. Attributes it cannot determine come back as "unknown" rather than
// being omitted. Failure is non-fatal: the orchestrator degrades to the
// un-adjusted classification.
type AttributeExtractor interface {
	ExtractAttributes(ctx context.Context, description string, history []model.ClarificationQA, attributes []model.Attribute) (map[string]model.ExtractedAttributeValue, error)
}
