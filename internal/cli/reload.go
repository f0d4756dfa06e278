package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/deskbridge/internal/config"
	"github.com/ppiankov/deskbridge/internal/policy"
)

// watchPolicy hot-swaps the keyword rules when the policy file or the
// bridge config changes on disk. Policy edits take effect on the next
// evaluation; other config fields still need a restart, which the
// callback says out loud.
func watchPolicy(ctx context.Context, b *bridge) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	reloader, err := config.NewReloader(func() {
		pcfg, hash, err := policy.LoadConfigWithHash(b.cfg.PolicyPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "deskbridge: reload policy:", err)
			return
		}
		b.engine.SetConfig(pcfg)
		b.log.Record(b.orch.Session(), "policy_reloaded", map[string]any{
			"policy_hash": hash,
		})
		fmt.Fprintln(os.Stderr, "deskbridge: policy rules reloaded; other config changes apply on restart")
	}, path, b.cfg.PolicyPath)
	if err != nil {
		return err
	}
	go reloader.Run(ctx)
	return nil
}
