package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/model"
)

func init() {
	rootCmd.AddCommand(modeCmd)
}

var modeCmd = &cobra.Command{
	Use:   "mode [normal|game|sandbox]",
	Short: "Show or validate the operating mode",
	Long: "With no argument, prints the configured mode and its dispatch target.\n" +
		"With an argument, validates the mode name. The live mode of a running\n" +
		"session is switched through the bridge_mode MCP tool.",
	Args: cobra.MaximumNArgs(1),
	RunE: runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	} else {
		cfg, err := loadBridgeConfig()
		if err != nil {
			return err
		}
		name = cfg.Mode
		if name == "" {
			name = "normal"
		}
	}

	mode, err := model.ParseMode(name)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(map[string]string{
		"mode":   string(mode),
		"target": mode.Target(),
	}, "", "  ")
	fmt.Println(string(out))
	return nil
}
