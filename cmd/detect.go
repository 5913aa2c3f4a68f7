package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goosewin/kotoba/internal/lang"
)

var detectCmd = &cobra.Command{
	Use:   "detect [text...]",
	Short: "Report which side of the language pair text is written in",
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}
	pair, err := configuredPair()
	if err != nil {
		return err
	}
	detected := lang.Detect(text)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", pair.Locale(detected).Code, detected)
	return nil
}
