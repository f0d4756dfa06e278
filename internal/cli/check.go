package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/policy"
)

var checkMode string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkMode, "mode", "normal", "Operating mode to evaluate under")
}

var checkCmd = &cobra.Command{
	Use:   "check <rationale...>",
	Short: "Evaluate a rationale against policy without executing anything",
	Long: "Runs the policy engine over the given rationale and prints the full\n" +
		"decision as JSON. Nothing is dispatched and nothing is recorded;\n" +
		"this is a pure evaluation for probing the rule set.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	mode, err := model.ParseMode(checkMode)
	if err != nil {
		return err
	}

	cfg, err := loadBridgeConfig()
	if err != nil {
		return err
	}
	policyCfg, err := policy.LoadConfig(cfg.PolicyPath)
	if err != nil {
		return err
	}

	engine := policy.NewEngine(policyCfg)
	decision := engine.Evaluate(mode, strings.Join(args, " "), cfg.Allowlist)

	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !decision.Allowed {
		return errors.New("denied by policy")
	}
	return nil
}
