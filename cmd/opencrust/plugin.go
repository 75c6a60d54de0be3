package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opencrust/opencrust/internal/sandbox"
)

const defaultManifestFilename = "plugin.toml"

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect and validate plugin manifests",
}

var pluginValidateCmd = &cobra.Command{
	Use:   "validate <plugin-dir>",
	Short: "Parse a plugin manifest and report its normalized capabilities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		path := filepath.Join(dir, defaultManifestFilename)

		manifest, err := sandbox.ParseFile(path, dir)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(struct {
			Name         string               `json:"name"`
			Version      string               `json:"version"`
			Capabilities sandbox.Capabilities `json:"capabilities"`
			Limits       sandbox.Limits       `json:"limits"`
		}{
			Name:         manifest.Name,
			Version:      manifest.Version,
			Capabilities: manifest.Capabilities(),
			Limits:       manifest.Limits,
		}, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

func init() {
	pluginCmd.AddCommand(pluginValidateCmd)
}
