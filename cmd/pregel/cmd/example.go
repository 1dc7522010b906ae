package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborworks/pregel/examples/jobs"
)

var exampleCmd = &cobra.Command{
	Use:       "example [sssp|connectedcomponents|pagerank]",
	Short:     "run one of the built-in example jobs",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"sssp", "connectedcomponents", "pagerank"},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var (
			result map[string]float64
			err    error
		)

		switch args[0] {
		case "sssp":
			result, err = jobs.RunSSSP(ctx)
		case "connectedcomponents":
			result, err = jobs.RunConnectedComponents(ctx)
		case "pagerank":
			result, err = jobs.RunPageRank(ctx)
		}

		if err != nil {
			fmt.Printf("example job failed: %v\n", err)
			os.Exit(1)
		}

		for id, value := range result {
			fmt.Printf("%s: %v\n", id, value)
		}
	},
}

func init() {
	rootCmd.AddCommand(exampleCmd)
}
