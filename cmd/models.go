package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goosewin/kotoba/internal/catalog"
	"github.com/goosewin/kotoba/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and whether their weights are installed",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(config.CatalogPath())
	if err != nil {
		return err
	}
	models := cat.Models()
	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, "No models in catalog")
		return nil
	}

	dir := config.ModelsDir()
	selected := config.String("model.name", "")

	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tKIND\tINSTALLED\tLICENSE")
	fmt.Fprintln(writer, "----\t----\t---------\t-------")
	for _, model := range models {
		name := model.Name
		if name == selected {
			name += " *"
		}
		installed := "no"
		if model.Installed(dir) {
			installed = "yes"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", name, model.Kind, installed, model.License)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Weights directory: %s\n", dir)
	fmt.Fprintln(out, "Usage: kotoba translate --model <name> <text>")
	return nil
}
