package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	captureOut      string
	capturePrompt   string
	captureDescribe bool
)

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "frame.png", "Where to write the redacted PNG")
	captureCmd.Flags().StringVar(&capturePrompt, "prompt", "Describe what is on screen.", "Prompt for --describe")
	captureCmd.Flags().BoolVar(&captureDescribe, "describe", false, "Send the redacted frame to the vision model")
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the screen, redact PII, and save the frame",
	Long: "Grabs one frame from the current capture source (VM when configured,\n" +
		"host otherwise), blacks out detected PII, and writes the redacted PNG.\n" +
		"The raw frame is never written anywhere.",
	RunE: runCapture,
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	b, err := buildBridge(ctx, false)
	if err != nil {
		return err
	}
	defer b.close()

	frame, err := b.orch.CaptureAndRedact(ctx)
	if err != nil {
		return err
	}
	if frame == nil {
		return errors.New("no frame available from the capture source")
	}

	if err := frame.Save(captureOut); err != nil {
		return err
	}
	w, h := frame.Size()
	fmt.Fprintf(os.Stderr, "wrote %s (%dx%d, %d regions redacted)\n",
		captureOut, w, h, frame.Meta().PIIBoxCount)

	if captureDescribe {
		desc, err := b.rtr.Describe(ctx, frame, capturePrompt, b.orch.Mode())
		if err != nil {
			return fmt.Errorf("describe: %w", err)
		}
		fmt.Println(desc)
	}
	return nil
}
