package cli

import (
	"context"
	"fmt"
	"image"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/audit"
	"github.com/ppiankov/deskbridge/internal/cancel"
	"github.com/ppiankov/deskbridge/internal/config"
	"github.com/ppiankov/deskbridge/internal/host"
	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
	"github.com/ppiankov/deskbridge/internal/pii"
	"github.com/ppiankov/deskbridge/internal/policy"
	"github.com/ppiankov/deskbridge/internal/provider"
	"github.com/ppiankov/deskbridge/internal/router"
	"github.com/ppiankov/deskbridge/internal/vbox"
	"github.com/ppiankov/deskbridge/internal/vision"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "deskbridge",
	Short: "Guarded bridge between vision models and a desktop",
	Long: "Captures the screen, redacts PII before any model sees a pixel,\n" +
		"evaluates every proposed action against policy, and dispatches\n" +
		"allowed actions to the host or an isolated VM. Every decision lands\n" +
		"in a hash-chained audit log.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to bridge config YAML")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bridge bundles everything a command needs after wiring.
type bridge struct {
	cfg    *config.Config
	engine *policy.Engine
	orch   *orchestrator.Orchestrator
	rtr    *router.Router
	vm     *vbox.Adapter
	token  *cancel.Token
	log    *audit.Log
	rec    *orchestrator.SessionRecorder
}

func (b *bridge) close() {
	if b.rec != nil {
		b.rec.Close()
	}
	if b.log != nil {
		b.log.Close()
	}
}

// vmCapturer adapts the VM frame grabber to the capture boundary.
type vmCapturer struct {
	vm *vbox.Adapter
}

func (c vmCapturer) Capture() (image.Image, error) {
	return c.vm.GetFrame()
}

func loadBridgeConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// buildBridge wires the full pipeline from configuration. Session
// recording is optional so one-shot commands stay cheap.
func buildBridge(ctx context.Context, withRecorder bool) (*bridge, error) {
	cfg, cfgHash, err := config.LoadWithHash(configPath)
	if err != nil {
		return nil, err
	}

	policyCfg, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	engine := policy.NewEngine(policyCfg)

	log, err := audit.Open(cfg.AuditPath)
	if err != nil {
		return nil, err
	}

	var rec *orchestrator.SessionRecorder
	session := ""
	if withRecorder {
		rec, err = orchestrator.NewSessionRecorder(cfg.SessionDir)
		if err != nil {
			log.Close()
			return nil, err
		}
		session = rec.Session()
	}

	detector, err := buildDetector(cfg.PII)
	if err != nil {
		log.Close()
		return nil, err
	}

	var vm *vbox.Adapter
	var capturer vision.ScreenCapturer = host.NewScreenshot("")
	if cfg.VM.VMName != "" {
		cfg.VM.Timeout = nonZero(cfg.VM.Timeout, 30*time.Second)
		vm = vbox.New(cfg.VM)
		capturer = vmCapturer{vm: vm}
	}

	rtr, err := buildRouter(ctx, cfg.Providers)
	if err != nil {
		log.Close()
		return nil, err
	}

	token := cancel.NewToken()
	orch := orchestrator.New(orchestrator.Options{
		Engine:    engine,
		Token:     token,
		Monitor:   host.NewInputWatcher(""),
		Log:       log,
		Recorder:  rec,
		Capturer:  capturer,
		OCR:       vision.NewTesseract(cfg.Tesseract),
		Detector:  detector,
		Host:      host.NewXDo(""),
		VM:        vm,
		Allowlist: cfg.Allowlist,
		DryRun:    cfg.DryRun,
		Settle:    cfg.SettleDelay,
		Session:   session,
	})

	if session != "" {
		log.Record(session, "session_start", map[string]any{
			"config_hash": cfgHash,
			"policy_hash": policyHash,
			"dry_run":     cfg.DryRun,
		})
	}

	mode := model.ModeNormal
	if cfg.Mode != "" {
		mode, err = model.ParseMode(cfg.Mode)
		if err != nil {
			log.Close()
			return nil, err
		}
	}
	if mode != model.ModeNormal {
		if err := orch.SetMode(mode); err != nil {
			log.Close()
			return nil, err
		}
	}

	return &bridge{cfg: cfg, engine: engine, orch: orch, rtr: rtr, vm: vm, token: token, log: log, rec: rec}, nil
}

func buildDetector(cfg config.PIIConfig) (*pii.Detector, error) {
	var custom []pii.Pattern
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p.ID, err)
		}
		custom = append(custom, pii.Pattern{ID: p.ID, Regex: re})
	}
	return pii.NewDetector(custom...), nil
}

func buildRouter(ctx context.Context, cfg config.ProvidersConfig) (*router.Router, error) {
	vis, err := buildProvider(ctx, cfg.Vision, "static-vision")
	if err != nil {
		return nil, err
	}
	reasoner, err := buildProvider(ctx, cfg.Reasoner, "static-reasoner")
	if err != nil {
		return nil, err
	}
	executor, err := buildProvider(ctx, cfg.Executor, "static-executor")
	if err != nil {
		return nil, err
	}
	return router.New(vis, reasoner, executor, nil), nil
}

func buildProvider(ctx context.Context, ref config.ProviderRef, fallback string) (router.Provider, error) {
	switch {
	case ref.HTTP != nil:
		return provider.NewHTTP(*ref.HTTP), nil
	case ref.Bedrock != nil:
		p, err := provider.NewBedrock(ctx, *ref.Bedrock)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return provider.NewStatic(fallback), nil
	}
}

func nonZero(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
