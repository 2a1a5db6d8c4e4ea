package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	cli "github.com/urfave/cli/v3"

	"sdrig/internal/cart"
	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/download"
	"sdrig/internal/ux"
)

func planCmd() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show what 'sdrig download' would fetch",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cart", Usage: "Cart file (default: <workspace>/cart.txt)"},
			&cli.BoolFlag{Name: "sdxl", Usage: "Plan against the SDXL catalog"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			plan, _, warnings, err := assemblePlan(s, cmd)
			if err != nil {
				return err
			}
			printWarnings(warnings)
			renderPlan(plan)
			return nil
		},
	}
}

func downloadCmd() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Fetch everything the config and cart select",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cart", Usage: "Cart file (default: <workspace>/cart.txt)"},
			&cli.BoolFlag{Name: "sdxl", Usage: "Download against the SDXL catalog"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent downloads (1-8)"},
			&cli.IntFlag{Name: "retries", Usage: "Retries per file"},
			&cli.StringFlag{Name: "engine", Usage: "Download engine: auto, aria2, or native"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the plan without downloading"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := applyDownloadFlags(s.cfg, cmd); err != nil {
				return err
			}

			plan, man, warnings, err := assemblePlan(s, cmd)
			if err != nil {
				return err
			}
			printWarnings(warnings)
			if cmd.Bool("dry-run") {
				renderPlan(plan)
				return nil
			}
			if len(plan.Jobs) == 0 {
				ux.Successf("nothing to download (%d already present)", len(plan.Skipped))
				return nil
			}

			mgr, err := download.NewManager(s.ws, s.cfg, s.log, man)
			if err != nil {
				return err
			}
			ux.Header(fmt.Sprintf("Downloading %d file(s) via %s", len(plan.Jobs), mgr.Engine()))

			ctx, stop := signalContext(ctx)
			defer stop()
			printer := newProgressPrinter()
			sum, err := mgr.Run(ctx, plan, printer.handle)
			printer.clearLine()
			if err != nil {
				return err
			}
			renderSummary(sum)
			if len(sum.Failed) > 0 {
				return fmt.Errorf("%d download(s) failed", len(sum.Failed))
			}
			return nil
		},
	}
}

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Re-hash every downloaded file against the manifest",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "prune", Usage: "Drop manifest entries whose files are gone"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			man, err := download.LoadManifest(s.ws)
			if err != nil {
				return err
			}
			if len(man.Entries) == 0 {
				ux.Infof("manifest is empty; nothing to verify")
				return nil
			}

			ctx, stop := signalContext(ctx)
			defer stop()
			ux.Header(fmt.Sprintf("Verifying %d file(s)", len(man.Entries)))
			rep, err := download.Verify(ctx, s.ws, man, cmd.Bool("prune"))
			if err != nil {
				return err
			}
			for _, res := range rep.Results {
				switch res.Status {
				case download.VerifyOK:
					ux.Successf("%s", res.Path)
				case download.VerifyChanged:
					ux.Warnf("%s: %s", res.Path, res.Detail)
				case download.VerifyMissing:
					ux.Failf("%s: %s", res.Path, res.Detail)
				}
			}

			if rep.Clean() {
				ux.Successf("%d file(s) verified", rep.OK)
				return nil
			}
			if cmd.Bool("prune") && rep.Missing > 0 {
				ux.Warnf("pruned %d missing entr(ies) from the manifest", rep.Missing)
			}
			if rep.Changed > 0 {
				ux.Infof("re-download changed files with 'sdrig download' after removing them")
			}
			if rep.Changed > 0 || (rep.Missing > 0 && !cmd.Bool("prune")) {
				return fmt.Errorf("%d changed, %d missing", rep.Changed, rep.Missing)
			}
			return nil
		},
	}
}

func catalogCmd() *cli.Command {
	return &cli.Command{
		Name:      "catalog",
		Usage:     "List the curated models",
		ArgsUsage: "[category]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "sdxl", Usage: "Show the SDXL catalog"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// The catalog is compiled in, so this works outside a workspace;
			// inside one, the configured flavor is the default.
			flavor := catalog.SD15
			if ws, err := openWorkspace(cmd); err == nil {
				if cfg, err := config.LoadWorkspace(ws); err == nil {
					flavor = cfg.Models.Flavor()
				}
			}
			if cmd.Bool("sdxl") {
				flavor = catalog.SDXL
			}
			cata, err := catalog.Load(flavor)
			if err != nil {
				return err
			}

			cats := catalog.Categories()
			if arg := cmd.Args().First(); arg != "" {
				cat, err := catalog.ParseCategory(arg)
				if err != nil {
					return err
				}
				cats = []catalog.Category{cat}
			}

			if cmd.Bool("json") {
				out := map[catalog.Category][]catalog.Entry{}
				for _, cat := range cats {
					out[cat] = cata.Entries(cat)
				}
				return printJSON(out)
			}

			for _, cat := range cats {
				entries := cata.Entries(cat)
				if len(entries) == 0 {
					continue
				}
				ux.Header(fmt.Sprintf("%s (%s)", cat, cata.Flavor))
				for _, e := range entries {
					fmt.Printf("  %-24s %s\n", e.Name, ux.Paint(ux.Dim, e.Description))
				}
			}
			ux.Infof("select models by name in config.yaml or via 'sdrig ui'")
			return nil
		},
	}
}

// assemblePlan merges the config's catalog selections with the cart file into
// a deduplicated plan. A missing default cart is fine; a missing --cart is an
// error.
func assemblePlan(s *session, cmd *cli.Command) (*download.Plan, *download.Manifest, []string, error) {
	if cmd.Bool("sdxl") {
		s.cfg.Models.SDXL = true
	}
	cata, err := catalog.Load(s.cfg.Models.Flavor())
	if err != nil {
		return nil, nil, nil, err
	}

	cartPath := cmd.String("cart")
	explicit := cartPath != ""
	if !explicit {
		cartPath = s.ws.CartPath()
	}
	var items []cart.Item
	var warnings []string
	c, err := cart.ParseFile(cartPath)
	switch {
	case err == nil:
		items = c.Items
		for _, w := range c.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", s.ws.Rel(cartPath), w))
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No cart is a valid workspace state.
	default:
		return nil, nil, nil, err
	}

	merged, warns := download.Assemble(s.cfg, cata, items)
	warnings = append(warnings, warns...)

	man, err := download.LoadManifest(s.ws)
	if err != nil {
		return nil, nil, nil, err
	}
	plan, err := download.BuildPlan(s.ws, man, merged)
	if err != nil {
		return nil, nil, nil, err
	}
	return plan, man, warnings, nil
}

func applyDownloadFlags(cfg *config.Config, cmd *cli.Command) error {
	if cmd.IsSet("workers") {
		cfg.Download.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("retries") {
		cfg.Download.Retries = int(cmd.Int("retries"))
	}
	if engine := cmd.String("engine"); engine != "" {
		cfg.Download.Engine = engine
	}
	return cfg.Validate()
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		ux.Warnf("%s", w)
	}
}

func renderPlan(plan *download.Plan) {
	ux.Header("Download plan")
	if len(plan.Jobs) == 0 && len(plan.Skipped) == 0 {
		ux.Infof("nothing selected; pick models in config.yaml or cart.txt (see 'sdrig docs models')")
		return
	}
	for _, job := range plan.Jobs {
		fmt.Printf("  %s %-11s %-44s %s\n",
			ux.Paint(ux.Cyan, "fetch"), job.Category, job.Filename, ux.Paint(ux.Dim, job.URL))
	}
	for _, sk := range plan.Skipped {
		fmt.Printf("  %s  %-11s %-44s %s\n",
			ux.Paint(ux.Dim, "skip"), sk.Item.Category, sk.Item.Filename, ux.Paint(ux.Dim, sk.Reason))
	}
	ux.Infof("%d to fetch, %d skipped", len(plan.Jobs), len(plan.Skipped))
}

func renderSummary(sum *download.Summary) {
	if len(sum.Failed) == 0 {
		ux.Successf("%d downloaded, %d skipped, %s in %s",
			sum.Done, sum.Skipped, ux.Bytes(sum.Bytes), ux.ShortDuration(sum.Elapsed))
		return
	}
	ux.Warnf("%d downloaded, %d skipped, %d failed", sum.Done, sum.Skipped, len(sum.Failed))
	for _, f := range sum.Failed {
		ux.Failf("%s: %v", f.Job.Filename, f.Err)
	}
}

// progressPrinter renders download events as terminal lines. Progress
// updates rewrite one line in place; state changes get their own line.
// Events arrive from worker goroutines, so everything locks.
type progressPrinter struct {
	mu      sync.Mutex
	live    bool
	lastLen int
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{live: ux.ColorEnabled()}
}

func (p *progressPrinter) handle(ev download.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev.State {
	case download.StateStarted:
		p.clear()
		ux.Infof("fetching %s", ev.Name)
	case download.StateProgress:
		if !p.live {
			return
		}
		p.clear()
		line := "  " + ux.ProgressLine(ev.Name, ev.Done, ev.Total)
		fmt.Print("\r" + line)
		p.lastLen = len(line)
	case download.StateRetrying:
		p.clear()
		ux.Warnf("%s: attempt %d failed: %v", ev.Name, ev.Attempt, ev.Err)
	case download.StateDone:
		p.clear()
		ux.Successf("%s (%s)", ev.Name, ux.Bytes(ev.Total))
	case download.StateFailed:
		p.clear()
		ux.Failf("%s: %v", ev.Name, ev.Err)
	}
}

func (p *progressPrinter) clearLine() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

func (p *progressPrinter) clear() {
	if p.lastLen == 0 {
		return
	}
	fmt.Print("\r" + strings.Repeat(" ", p.lastLen) + "\r")
	p.lastLen = 0
}
