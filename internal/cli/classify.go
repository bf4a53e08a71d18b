package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"querydesk/internal/routing"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Show how a query would be routed",
	Long: `Scores the query text against every subject's keywords and prints the ranking.
The top subject is chosen only when its score is above the routing threshold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output the ranking as JSON")
	rootCmd.AddCommand(classifyCmd)
}

type classifyResult struct {
	Threshold float64         `json:"threshold"`
	Subject   *routing.Score  `json:"subject"`
	Scores    []routing.Score `json:"scores"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	subjects, err := store.ListSubjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load subjects: %w", err)
	}

	res := classifyResult{Threshold: policy.Threshold, Scores: routing.Rank(text, subjects)}
	id, ok := routing.Classify(text, subjects, policy.Threshold)
	sort.SliceStable(res.Scores, func(i, j int) bool {
		return res.Scores[i].Score > res.Scores[j].Score
	})
	if ok {
		for i := range res.Scores {
			if res.Scores[i].SubjectID == id {
				res.Subject = &res.Scores[i]
				break
			}
		}
	}

	if classifyJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal ranking: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(res.Scores) == 0 {
		cmd.Println(warning("No subjects configured."))
		return nil
	}
	for _, s := range res.Scores {
		marker := " "
		if res.Subject != nil && s.SubjectID == res.Subject.SubjectID {
			marker = success("*")
		}
		cmd.Printf("%s %-12s %.4f  %s\n", marker, s.Code, s.Score, s.Name)
	}
	if res.Subject == nil {
		cmd.Println(warning(fmt.Sprintf("No subject scored above %.2f; the query stays pending.", policy.Threshold)))
	}
	return nil
}
