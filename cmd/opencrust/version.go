package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencrust/opencrust/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Get().String())
		return nil
	},
}
