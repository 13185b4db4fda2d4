package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var requestChangesCmd = &cobra.Command{
	Use:   "request-changes <review-id>",
	Short: "Move a review to changes_requested",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestChanges,
}

func runRequestChanges(cmd *cobra.Command, args []string) error {
	c := newClient()

	rev, err := c.requestChanges(args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(rev)
	}

	fmt.Printf("%s -> %s\n", rev.ID, rev.Status)

	return nil
}
