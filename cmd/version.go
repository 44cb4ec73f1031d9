/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/convguard/pkg/ascii"
	"github.com/fulmenhq/convguard/pkg/buildinfo"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show convguard version",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show build details")
	cmd.Flags().Bool("json", false, "Output version information in JSON format")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	info := map[string]string{
		"version":       buildinfo.Version(),
		"moduleVersion": buildinfo.ModuleVersion(),
		"goVersion":     runtime.Version(),
		"platform":      runtime.GOOS,
		"arch":          runtime.GOARCH,
	}

	if jsonOutput {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if !extended {
		_, err := fmt.Fprintf(out, "convguard %s\n", info["version"])
		return err
	}

	lines := []string{
		"convguard " + info["version"],
		"Go:       " + info["goVersion"],
		"Platform: " + info["platform"] + "/" + info["arch"],
	}
	if mv := info["moduleVersion"]; mv != "" {
		lines = append(lines, "Module:   "+mv)
	}
	_, err := fmt.Fprint(out, ascii.Box(lines))
	return err
}
