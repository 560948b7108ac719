package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// SkipCommand is what the user types to abandon the interview and route the
// session to manual review.
const SkipCommand = "/skip"

// Prompter runs the interactive side of a classification interview: it asks
// the clarifying questions each round produces and renders the outcome.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewPrompter creates a prompter over the given reader and writer. Nil
// arguments default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// PromptDescription asks for the business process description.
func (p *Prompter) PromptDescription(ctx context.Context) (string, error) {
	for {
		fmt.Fprintln(p.writer, FormatPrompt("Describe the business process to classify"))
		line, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
		fmt.Fprintln(p.writer, FormatWarning("A description is required."))
	}
}

// AskQuestions presents one round of clarifying questions and collects an
// answer for each. It returns skipped=true when the user types the skip
// command; remaining questions in the round are left unanswered.
func (p *Prompter) AskQuestions(ctx context.Context, questions []string) (answers []string, skipped bool, err error) {
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, SubtleStyle.Render(fmt.Sprintf("Answer each question, or type %s to go straight to manual review.", SkipCommand)))

	answers = make([]string, 0, len(questions))
	for i, question := range questions {
		fmt.Fprintf(p.writer, "%s %s\n", PromptStyle.Render(fmt.Sprintf("%s %d/%d:", QuestionIcon, i+1, len(questions))), question)

		line, err := p.readLine(ctx)
		if err != nil {
			return nil, false, err
		}
		if strings.EqualFold(line, SkipCommand) {
			return answers, true, nil
		}
		answers = append(answers, line)
	}
	return answers, false, nil
}

// ShowWarning renders an interview warning, such as the approaching question
// limit.
func (p *Prompter) ShowWarning(message string) {
	fmt.Fprintln(p.writer, FormatWarning(message))
}

// ShowClassification renders the final session outcome: the classification,
// how the rules engine adjusted it, and whether the session was escalated.
func (p *Prompter) ShowClassification(session *model.Session) {
	if session == nil || session.Classification == nil {
		fmt.Fprintln(p.writer, FormatError("No classification available."))
		return
	}

	c := session.Classification
	var b strings.Builder
	fmt.Fprintf(&b, "Category:    %s\n", SuccessStyle.Render(string(c.Category)))
	fmt.Fprintf(&b, "Confidence:  %.0f%%\n", c.Confidence*100)
	if c.Rationale != "" {
		fmt.Fprintf(&b, "Rationale:   %s\n", c.Rationale)
	}
	if c.CategoryProgression != "" {
		fmt.Fprintf(&b, "Progression: %s\n", c.CategoryProgression)
	}
	for _, opp := range c.FutureOpportunities {
		fmt.Fprintf(&b, "  %s %s\n", SubtleStyle.Render("•"), opp)
	}

	title := "Classification"
	if session.Status == model.SessionEscalated {
		title = "Classification (escalated for review)"
	}
	fmt.Fprintln(p.writer, RenderBox(title, strings.TrimRight(b.String(), "\n")))

	if session.Evaluation != nil {
		p.showEvaluation(session.Evaluation)
	}
}

func (p *Prompter) showEvaluation(eval *model.EvaluationResult) {
	if len(eval.TriggeredRules) == 0 {
		fmt.Fprintln(p.writer, SubtleStyle.Render(fmt.Sprintf("%s Matrix %s evaluated: no rules triggered.", GavelIcon, eval.MatrixVersion)))
		return
	}

	var b strings.Builder
	for _, rule := range eval.TriggeredRules {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", rule.Priority, rule.Name, rule.Action)
		if rule.Rationale != "" {
			fmt.Fprintf(&b, "    %s\n", SubtleStyle.Render(rule.Rationale))
		}
	}
	if eval.Overridden {
		fmt.Fprintf(&b, "%s\n", WarningStyle.Render(fmt.Sprintf("Category overridden: %s → %s",
			eval.OriginalClassification.Category, eval.FinalClassification.Category)))
	}
	if eval.FlaggedForReview {
		for _, rationale := range eval.ReviewRationales {
			fmt.Fprintf(&b, "%s\n", WarningStyle.Render("Flagged for review: "+rationale))
		}
	}
	fmt.Fprintln(p.writer, RenderBox(fmt.Sprintf("%s Matrix %s", GavelIcon, eval.MatrixVersion), strings.TrimRight(b.String(), "\n")))
}

// readLine reads a trimmed line, respecting context cancellation. The
// blocked goroutine drains its read after cancellation; the caller returns
// immediately.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := p.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && res.err != io.EOF {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
