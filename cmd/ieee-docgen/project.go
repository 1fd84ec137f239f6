package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ieee-docgen/internal/project"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Work with paper project directories",
}

var projectCheckCmd = &cobra.Command{
	Use:   "check <dir>",
	Short: "Report citation keys missing from references.yaml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		missing, err := project.ValidateCitations(args[0])
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			fmt.Println("All citations resolve.")
			return nil
		}
		fmt.Printf("Unknown citation keys: %s\n", strings.Join(missing, ", "))
		return fmt.Errorf("%d unknown citation key(s)", len(missing))
	},
}

var projectBibtexCmd = &cobra.Command{
	Use:   "bibtex <dir>",
	Short: "Print references.yaml as BibTeX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := project.LoadReferences(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(os.Stdout, project.GenerateBibTeX(refs))
		return err
	},
}

func init() {
	projectCmd.AddCommand(projectCheckCmd, projectBibtexCmd)
	rootCmd.AddCommand(projectCmd)
}
