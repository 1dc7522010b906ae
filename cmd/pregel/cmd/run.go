package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborworks/pregel/config"
)

var runCmd = &cobra.Command{
	Use:   "run [job-spec.yaml]",
	Short: "load a JobSpec from a YAML file and run it to completion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("error reading job spec: %v\n", err)
			os.Exit(1)
		}

		spec, err := config.Parse(raw)
		if err != nil {
			fmt.Printf("error parsing job spec: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()

		builder, err := spec.Builder(ctx)
		if err != nil {
			fmt.Printf("error building job: %v\n", err)
			os.Exit(1)
		}

		result, err := builder.CreateResult(ctx)
		if err != nil {
			fmt.Printf("job failed: %v\n", err)
			os.Exit(1)
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
