package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/vbox"
)

func init() {
	rootCmd.AddCommand(vmCmd)
	vmCmd.AddCommand(vmStartCmd)
	vmCmd.AddCommand(vmStopCmd)
	vmCmd.AddCommand(vmRevertCmd)
	vmCmd.AddCommand(vmStatusCmd)
	vmCmd.AddCommand(vmSelfcheckCmd)
}

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Manage the sandbox virtual machine",
	Long:  "Lifecycle and diagnostics for the VirtualBox guest that game and\nsandbox modes dispatch into.",
}

var vmStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Boot the VM headless",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := vmAdapter()
		if err != nil {
			return err
		}
		if err := a.Start(); err != nil {
			return err
		}
		fmt.Println("started")
		return nil
	},
}

var vmStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Power the VM off",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := vmAdapter()
		if err != nil {
			return err
		}
		if err := a.Stop(); err != nil {
			return err
		}
		fmt.Println("stopped")
		return nil
	},
}

var vmRevertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Restore the configured clean snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := vmAdapter()
		if err != nil {
			return err
		}
		if err := a.SnapshotRevert(); err != nil {
			return err
		}
		fmt.Println(a.Status())
		return nil
	},
}

var vmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show adapter state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := vmAdapter()
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(map[string]string{
			"state":  a.State(),
			"status": a.Status(),
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var vmSelfcheckCmd = &cobra.Command{
	Use:   "selfcheck",
	Short: "Run all sandbox preflight checks",
	Long: "Verifies the VBoxManage binary, VM registration, snapshot, VRDE\n" +
		"endpoint, and network isolation. Exits non-zero when any check fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := vmAdapter()
		if err != nil {
			return err
		}
		failed := 0
		for _, c := range a.Selfcheck() {
			mark := "ok"
			if !c.Passed {
				mark = "FAIL"
				failed++
			}
			fmt.Printf("%-14s %-4s %s\n", c.Name, mark, c.Detail)
			if !c.Passed && c.Fix != "" {
				fmt.Printf("%-14s      fix: %s\n", "", c.Fix)
			}
		}
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d check(s) failed\n", failed)
			os.Exit(1)
		}
		return nil
	},
}

func vmAdapter() (*vbox.Adapter, error) {
	cfg, err := loadBridgeConfig()
	if err != nil {
		return nil, err
	}
	if cfg.VM.VMName == "" {
		return nil, errors.New("no VM configured: set vm.vm_name in the bridge config")
	}
	if cfg.VM.Timeout <= 0 {
		cfg.VM.Timeout = 30 * time.Second
	}
	return vbox.New(cfg.VM), nil
}
