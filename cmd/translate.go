package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goosewin/kotoba/internal/lang"
)

var (
	translateFlags   modelFlags
	translateFrom    string
	translateTo      string
	translateTimeout time.Duration
	translateStats   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text between the local and foreign language",
	Long: `Translate text with the selected model. With no arguments the text is
read from stdin. The source language is detected unless --from is given, and
the target defaults to the other side of the pair.`,
	RunE: runTranslate,
}

func init() {
	addModelFlags(translateCmd, &translateFlags)
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "Source language (local, foreign, or a language code)")
	translateCmd.Flags().StringVar(&translateTo, "to", "", "Target language (local, foreign, or a language code)")
	translateCmd.Flags().DurationVar(&translateTimeout, "timeout", 0, "Give up waiting after this long (0 waits for the model)")
	translateCmd.Flags().BoolVar(&translateStats, "stats", false, "Print duration and token count to stderr")
	rootCmd.AddCommand(translateCmd)
}

func addModelFlags(cmd *cobra.Command, flags *modelFlags) {
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Catalog model name")
	cmd.Flags().StringVar(&flags.weights, "weights", "", "Path to a GGUF weight file")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "Prompt grammar for --weights ("+kindList()+")")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	translator, _, err := newTranslator(translateFlags)
	if err != nil {
		return err
	}
	defer translator.Close()
	if err := translator.LoadModel(); err != nil {
		return err
	}
	pair := translator.Adapter().Pair()

	var source *lang.Language
	if strings.TrimSpace(translateFrom) != "" {
		parsed, err := pair.Parse(translateFrom)
		if err != nil {
			return err
		}
		source = &parsed
	}

	var target lang.Language
	switch {
	case strings.TrimSpace(translateTo) != "":
		target, err = pair.Parse(translateTo)
		if err != nil {
			return err
		}
	case source != nil:
		target = source.Other()
	default:
		target = lang.Detect(text).Other()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if translateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, translateTimeout)
		defer cancel()
	}

	result, err := translator.Translate(ctx, text, source, target)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.TranslatedText)
	if translateStats {
		errOut := cmd.ErrOrStderr()
		if result.DetectedSource != nil {
			fmt.Fprintf(errOut, "detected: %s\n", pair.Name(*result.DetectedSource))
		}
		fmt.Fprintf(errOut, "target:   %s\n", pair.Name(target))
		fmt.Fprintf(errOut, "duration: %.2fs\n", result.DurationSeconds())
		if result.TokenCount != nil {
			fmt.Fprintf(errOut, "tokens:   %d\n", *result.TokenCount)
		}
	}
	return nil
}

// inputText joins args, or reads stdin when there are none.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no input: pass text as arguments or on stdin")
	}
	return string(data), nil
}
