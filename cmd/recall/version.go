package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/recall/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		common.PrintBanner(common.LoadVersionFromFile())
		fmt.Println(common.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
