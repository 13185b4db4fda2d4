package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var approveNote string

var approveCmd = &cobra.Command{
	Use:   "approve <review-id>",
	Short: "Approve a review, with an optional note",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

func init() {
	approveCmd.Flags().StringVar(&approveNote, "note", "", "Optional reviewer note")
}

func runApprove(cmd *cobra.Command, args []string) error {
	c := newClient()

	rev, err := c.approve(args[0], approveNote)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(rev)
	}

	fmt.Printf("%s approved.\n", rev.ID)

	return nil
}
