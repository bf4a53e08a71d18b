package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List subjects and their keyword counts",
	Args:  cobra.NoArgs,
	RunE:  runSubjects,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
}

func runSubjects(cmd *cobra.Command, _ []string) error {
	subjects, err := store.ListSubjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load subjects: %w", err)
	}
	if len(subjects) == 0 {
		cmd.Println("No subjects found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tSEMESTER\tKEYWORDS")
	for _, s := range subjects {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.Code, s.Name, s.Semester, len(s.Keywords))
	}
	return w.Flush()
}
