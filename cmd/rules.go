/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/convguard/internal/bridge"
	"github.com/fulmenhq/convguard/internal/rules"
	"github.com/fulmenhq/convguard/pkg/ascii"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List rule ids, severities and descriptions",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
	cmd.Flags().String("format", "text", "Output format (text|json)")
	return cmd
}

func runRules(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	all := rules.All()

	switch format {
	case "json":
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return fatal(err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "text":
	default:
		return fatal(fmt.Errorf("unsupported format %q (want text or json)", format))
	}

	rows := [][]string{{"ID", "SEVERITY", "KIND", "TITLE"}}
	for _, r := range all {
		rows = append(rows, []string{r.ID, string(r.Severity), string(r.Kind), r.Title})
	}
	if _, err := fmt.Fprint(out, ascii.Table(rows, 60)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nPython findings use <tool>-<code> ids from: %v\n", bridge.Names())
	return err
}
