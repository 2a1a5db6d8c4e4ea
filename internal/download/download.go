// Package download plans and executes model downloads: it merges the
// configured catalog selections with the cart, dedupes them into jobs, runs
// the jobs through a worker pool backed by either aria2c or a native HTTP
// engine, and records completed files in the workspace manifest.
package download

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"sdrig/internal/cart"
	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/workspace"
)

// Job is one file to fetch.
type Job struct {
	ID       string
	Category catalog.Category
	Name     string
	URL      string
	Filename string
	// Dest is the absolute target path under models/.
	Dest string
	// Size is the expected byte count, 0 when unknown.
	Size int64

	// derived marks a filename guessed from the URL; the server's
	// content-disposition name wins over a guess.
	derived bool
	// resolved is set by the fetcher when the final path differs from Dest.
	resolved string
}

// FinalDest returns where the file actually landed.
func (j *Job) FinalDest() string {
	if j.resolved != "" {
		return j.resolved
	}
	return j.Dest
}

// Skip records an item the plan left out.
type Skip struct {
	Item   cart.Item
	Dest   string
	Reason string
}

// Plan is the deduplicated work list for one download run.
type Plan struct {
	Jobs    []*Job
	Skipped []Skip
}

// Assemble merges the configured catalog selections with cart items into a
// single item list, deduplicated by URL. Selections are catalog names or
// direct URLs; unknown names and disallowed hosts become warnings, not
// errors.
func Assemble(cfg *config.Config, cata *catalog.Catalog, cartItems []cart.Item) ([]cart.Item, []string) {
	var items []cart.Item
	var warnings []string
	seen := make(map[string]bool)

	flavor := cfg.Models.Flavor()
	selections := cfg.Models.Selections()
	for _, cat := range catalog.Categories() {
		for _, name := range selections[cat] {
			if strings.Contains(name, "://") {
				item, err := cart.ItemFromURL(cat, name)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s URL in config: %v", cat, err))
					continue
				}
				if seen[item.URL] {
					continue
				}
				seen[item.URL] = true
				items = append(items, item)
				continue
			}
			entry, ok := cata.Find(cat, name)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown %s %q in config (see 'sdrig catalog')", cat, name))
				continue
			}
			if seen[entry.URL] {
				continue
			}
			seen[entry.URL] = true

			// Curated filenames are authoritative; the server must not
			// rename them.
			items = append(items, cart.Item{
				Category: cat,
				Flavor:   flavor,
				Name:     strings.TrimSuffix(entry.Filename, filepath.Ext(entry.Filename)),
				URL:      entry.URL,
				Filename: entry.Filename,
				Custom:   true,
			})
		}
	}

	for _, item := range cartItems {
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		items = append(items, item)
	}
	return items, warnings
}

// BuildPlan turns items into jobs, skipping files already on disk and
// rejecting two items that map to the same destination.
func BuildPlan(ws *workspace.Workspace, man *Manifest, items []cart.Item) (*Plan, error) {
	plan := &Plan{}
	claimed := make(map[string]string) // dest -> URL

	for _, item := range items {
		dest := filepath.Join(ws.ModelDir(item.Category), item.Filename)
		if !ws.Contains(dest) {
			return nil, fmt.Errorf("%s: destination %q escapes the workspace", item.URL, item.Filename)
		}
		if prev, ok := claimed[dest]; ok {
			return nil, fmt.Errorf("duplicate destination %s: %s and %s", ws.Rel(dest), prev, item.URL)
		}
		claimed[dest] = item.URL

		// A manifest entry for this URL whose file still exists covers
		// renames the server applied on a previous run.
		if path, ok := man.FindURL(item.URL); ok {
			if _, err := os.Stat(filepath.Join(ws.Root, path)); err == nil {
				plan.Skipped = append(plan.Skipped, Skip{Item: item, Dest: filepath.Join(ws.Root, path), Reason: "already downloaded"})
				continue
			}
		}
		if _, err := os.Stat(dest); err == nil {
			reason := "exists on disk (untracked)"
			if _, ok := man.Lookup(ws.Rel(dest)); ok {
				reason = "already downloaded"
			}
			plan.Skipped = append(plan.Skipped, Skip{Item: item, Dest: dest, Reason: reason})
			continue
		}

		plan.Jobs = append(plan.Jobs, &Job{
			ID:       uuid.NewString(),
			Category: item.Category,
			Name:     item.Name,
			URL:      item.URL,
			Filename: item.Filename,
			Dest:     dest,
			derived:  !item.Custom,
		})
	}
	return plan, nil
}
