package main

import (
	"fmt"

	"github.com/aretw0/stepwise/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check definitions for consistency",
	Long: `Loads every definition and reports duplicate or unknown steps, missing entry steps,
operators that do not fit a variable's kind and unreachable steps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd, args)
		logger, err := cfg.logger()
		if err != nil {
			return err
		}
		engine, err := cfg.engine(logger)
		if err != nil {
			return err
		}

		names, err := engine.Definitions()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, name := range names {
			def, err := engine.Loader().Load(name)
			if err != nil {
				return err
			}
			issues := validator.Check(def)
			errs := 0
			for _, issue := range issues {
				if issue.Severity == validator.SeverityError {
					errs++
				}
			}
			if errs == 0 {
				fmt.Fprintf(out, "%s is valid ✅\n", name)
			} else {
				failed++
				fmt.Fprintf(out, "%s is invalid ❌\n", name)
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "  %s\n", issue)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d definitions are invalid", failed, len(names))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
