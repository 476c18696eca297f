package webhook

import "github.com/spf13/cobra"

// Cmd is the webhook sub-command.
var Cmd = cobra.Command{
	Use:   "webhook",
	Short: "Debug utilities for the webhook receiver",
}
