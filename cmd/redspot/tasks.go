package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bailuo/redspot/internal/lifecycle"
)

var tasksAll bool

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the available tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer lifecycle.Reset()

		_, env, err := bootstrap(runtimeArguments(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range env.Tasks.Names(tasksAll) {
			def, _ := env.Tasks.Lookup(name)
			desc := def.Description()
			if def.IsInternal() {
				desc += " (internal)"
			}
			if def.IsOverride() {
				desc += fmt.Sprintf(" [overridden x%d]", def.Depth()-1)
			}
			fmt.Fprintf(w, "%s\t%s\n", name, desc)
		}
		return w.Flush()
	},
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksAll, "all", false, "Include internal tasks")
}
