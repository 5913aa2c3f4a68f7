package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goosewin/kotoba/internal/config"
	"github.com/goosewin/kotoba/internal/core"
	"github.com/goosewin/kotoba/internal/llama"
)

var statusFlags modelFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which model and llama-cli would be used, and whether they are ready",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	addModelFlags(statusCmd, &statusFlags)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	translator, sel, err := newTranslator(statusFlags)
	if err != nil {
		return err
	}
	defer translator.Close()

	pair := translator.Adapter().Pair()
	settings := config.RunnerSettings()

	if sel.Model != nil {
		fmt.Fprintf(out, "Model:       %s (%s)\n", sel.Model.DisplayName, sel.Model.Name)
	} else {
		fmt.Fprintln(out, "Model:       (custom weights)")
	}
	fmt.Fprintf(out, "Kind:        %s\n", sel.Kind)
	fmt.Fprintf(out, "Weights:     %s%s\n", sel.Weights, presence(sel.Weights))
	fmt.Fprintf(out, "Languages:   %s <-> %s\n", pair.Local.Name, pair.Foreign.Name)
	fmt.Fprintf(out, "Sampling:    ctx=%d temp=%g max_tokens=%d\n", settings.ContextSize, settings.Temperature, settings.MaxTokens)

	if exe, err := llama.ResolveExecutable(llama.DefaultCandidates(settings.Executable)); err == nil {
		fmt.Fprintf(out, "llama-cli:   %s\n", exe)
	} else {
		fmt.Fprintln(out, "llama-cli:   not found")
	}

	loadErr := translator.LoadModel()

	if loadErr != nil {
		fmt.Fprintf(out, "Ready:       no (%v)\n", loadErr)
		if core.IsConfiguration(loadErr) {
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, "Install llama.cpp or set runner.executable, and place weights under:")
			fmt.Fprintf(out, "  %s\n", config.ModelsDir())
		}
		return nil
	}
	fmt.Fprintln(out, "Ready:       yes")
	return nil
}

func presence(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return " (missing)"
	}
	return ""
}
