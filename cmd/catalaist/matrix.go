package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Ready2k/CatalAIst-sub004/internal/cli"
	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/matrix"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/spf13/cobra"
)

func matrixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Manage decision matrix versions",
		Long: `Manage the versioned decision matrices that refine LLM classifications.

Matrices are immutable once imported. Each new version must carry a version
number strictly greater than every stored one, and exactly one version is
active at a time.`,
	}

	cmd.AddCommand(matrixImportCmd())
	cmd.AddCommand(matrixListCmd())
	cmd.AddCommand(matrixShowCmd())
	cmd.AddCommand(matrixActivateCmd())

	return cmd
}

func matrixImportCmd() *cobra.Command {
	var activate bool

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import a new decision matrix version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read matrix file: %w", err)
			}

			var m model.DecisionMatrix
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("failed to parse matrix file: %w", err)
			}

			if err := matrix.Validate(&m); err != nil {
				return fmt.Errorf("%w: %w", common.ErrInvalidMatrix, err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			latest, err := store.GetLatestMatrixVersion(ctx)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return err
			}
			if latest != "" {
				if err := matrix.ValidateSuccessor(latest, m.Version); err != nil {
					return err
				}
			}

			m.Active = activate
			if err := store.SaveMatrix(ctx, &m); err != nil {
				return fmt.Errorf("failed to save matrix: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Imported matrix %s (%d attributes, %d rules)", m.Version, len(m.Attributes), len(m.Rules))))
			if activate {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Matrix "+m.Version+" is now active"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activate, "activate", false, "Activate the matrix after importing")

	return cmd
}

func matrixListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored matrix versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			matrices, err := store.ListMatrices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list matrices: %w", err)
			}
			if len(matrices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No matrices imported yet"))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.TableHeaderStyle.Render("VERSION    ACTIVE  RULES  DESCRIPTION"))
			for _, m := range matrices {
				active := ""
				if m.Active {
					active = cli.SuccessIcon
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-7s %-6d %s\n",
					m.Version, active, len(m.Rules), m.Description)
			}
			return nil
		},
	}
}

func matrixShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [version]",
		Short: "Show a matrix version (defaults to the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			var m *model.DecisionMatrix
			if len(args) == 1 {
				m, err = store.GetMatrix(ctx, args[0])
			} else {
				m, err = store.GetActiveMatrix(ctx)
			}
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render matrix: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func matrixActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <version>",
		Short: "Make a matrix version the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.ActivateMatrix(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to activate matrix: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Matrix "+args[0]+" is now active"))
			return nil
		},
	}
}
