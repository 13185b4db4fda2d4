package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List non-terminal reviews",
	Long:  `List every review not yet in the approved state, most recently modified first.`,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	c := newClient()

	reviews, err := c.listPending(projectPath)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(reviews)
	}

	if len(reviews) == 0 {
		fmt.Println("No pending reviews.")
		return nil
	}

	for _, r := range reviews {
		fmt.Printf("%s  %-18s  %d comment(s), %d unresolved\n",
			r.ID, r.Status, len(r.Comments), len(r.UnresolvedCommentIDs()))
	}

	return nil
}
