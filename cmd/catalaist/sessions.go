package main

import (
	"fmt"

	"github.com/Ready2k/CatalAIst-sub004/internal/cli"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect classification sessions",
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classification sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			filter := service.SessionFilter{Limit: limit}
			if status != "" {
				s := model.SessionStatus(status)
				filter.Status = &s
			}

			sessions, err := store.ListSessions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No sessions found"))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.TableHeaderStyle.Render("ID                                    STATUS      CATEGORY     DESCRIPTION"))
			for _, s := range sessions {
				category := ""
				if s.Classification != nil {
					category = string(s.Classification.Category)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-37s %-11s %-12s %s\n",
					s.ID, s.Status, category, truncate(s.Description, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (GATHERING, CLASSIFIED, ESCALATED)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum sessions to list")

	return cmd
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's history and classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			session, err := store.GetSession(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Session "+session.ID))
			fmt.Fprintf(out, "Status:      %s\n", session.Status)
			fmt.Fprintf(out, "Description: %s\n", session.Description)
			fmt.Fprintf(out, "Questions:   %d asked, %d answered\n",
				session.State.QuestionsAsked, session.State.AnswersReceived)

			if len(session.History) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, cli.TableHeaderStyle.Render("INTERVIEW"))
				for _, qa := range session.History {
					fmt.Fprintf(out, "%s %s\n", cli.QuestionIcon, qa.Question)
					fmt.Fprintf(out, "   %s\n", cli.SubtleStyle.Render(qa.Answer))
				}
			}

			if session.Classification != nil {
				cli.NewPrompter(nil, out).ShowClassification(session)
			}
			return nil
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
