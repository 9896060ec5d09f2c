package main

import (
	"encoding/json"

	"github.com/samthor/listbuf/diff"
	"github.com/spf13/cobra"
)

var diffUnique bool

var diffCmd = &cobra.Command{
	Use:   "diff PREV NEXT",
	Short: "Print the changes between two list files as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prev, err := readList(args[0], diffUnique)
		if err != nil {
			return err
		}
		next, err := readList(args[1], diffUnique)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(diff.Diff(prev, next, entryEqual))
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffUnique, "unique", false, "drop repeated keys, keeping the first")
	rootCmd.AddCommand(diffCmd)
}
