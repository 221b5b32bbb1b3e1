package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "monitorsrv",
		Short: "Render server for remote CC:Tweaked monitor peripherals",
	}
	root.AddCommand(newServeCmd())
	return root
}
