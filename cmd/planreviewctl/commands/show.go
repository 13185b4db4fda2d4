package commands

import (
	"fmt"
	"strings"

	"github.com/roasbeef/planreview/internal/review"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show one review in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	c := newClient()

	rev, err := c.getReview(args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(rev)
	}

	fmt.Print(formatReview(rev))

	return nil
}

func formatReview(r *review.Review) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Review %s\n", r.ID))
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString(fmt.Sprintf("Status:  %s\n", r.Status))
	if r.ProjectPath != "" {
		sb.WriteString(fmt.Sprintf("Project: %s\n", r.ProjectPath))
	}
	sb.WriteString(fmt.Sprintf("Created: %s\n", r.CreatedAt.Format("2006-01-02T15:04:05Z07:00")))
	sb.WriteString(fmt.Sprintf("Version: %s\n", shortHash(r.CurrentVersion)))
	sb.WriteString(strings.Repeat("-", 60) + "\n")

	for _, c := range r.Comments {
		status := "unresolved"
		if c.Resolved {
			status = "resolved"
		}
		sb.WriteString(fmt.Sprintf("[%s] %q -> %q\n", status, c.Quote, c.Text))
		if c.Question != nil {
			sb.WriteString(fmt.Sprintf("  question (%s): %s\n", c.Question.Type, c.Question.Message))
		}
		if c.Answer != nil {
			sb.WriteString(fmt.Sprintf("  answer: %s\n", *c.Answer))
		}
	}

	return sb.String()
}

func shortHash(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
