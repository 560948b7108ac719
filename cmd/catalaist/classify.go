// Package main contains the catalaist CLI commands.
package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ready2k/CatalAIst-sub004/internal/cli"
	"github.com/Ready2k/CatalAIst-sub004/internal/engine"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [description]",
		Short: "Classify a business process",
		Long: `Classify a business process into a transformation category.

The process description is classified by the configured LLM provider,
refined by the active decision matrix, and routed by confidence: confident
results are accepted automatically, uncertain ones start a clarifying
interview, and low-confidence or flagged results are escalated for human
review.

Examples:
  catalaist classify "Clerks re-key invoice data from PDFs into SAP"
  catalaist classify          # Prompt for the description interactively`,
		Args: cobra.ArbitraryArgs,
		RunE: runClassify,
	}

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	provider, err := createLLMProvider()
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	defer provider.Close()

	pipeline := buildEngine(store, provider)
	prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	description := strings.TrimSpace(strings.Join(args, " "))
	if description == "" {
		description, err = prompter.PromptDescription(ctx)
		if err != nil {
			return err
		}
	}

	slog.Info("Starting classification", "description", description)

	round, err := pipeline.StartSession(ctx, description)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	for round.Outcome == engine.OutcomeQuestions {
		if round.Warning != "" {
			prompter.ShowWarning("Approaching the interview question limit; answer what you can.")
		}

		answers, skipped, err := prompter.AskQuestions(ctx, round.Questions)
		if err != nil {
			return err
		}

		round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, answers, skipped)
		if err != nil {
			return fmt.Errorf("classification failed: %w", err)
		}
	}

	prompter.ShowClassification(round.Session)
	slog.Info("Session finished",
		"session", round.Session.ID,
		"outcome", round.Outcome,
		"stop_reason", round.StopReason)

	return nil
}
