package main

import (
	"fmt"
	"strings"

	"fixforge-client/pkg/codefile"
	"fixforge-client/pkg/models"

	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List code languages and accepted code file extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, l := range codefile.Languages() {
				marker := " "
				if l.ID == models.DefaultCodeLanguage {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-12s %s\n", marker, l.ID, l.Label)
			}
			fmt.Fprintf(out, "\nAccepted code files: %s\n", strings.Join(codefile.AcceptedExtensions(), " "))
			return nil
		},
	}
}
