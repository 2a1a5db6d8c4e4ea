package download

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"sdrig/internal/workspace"
)

// VerifyStatus classifies one manifest entry.
type VerifyStatus string

const (
	VerifyOK      VerifyStatus = "ok"
	VerifyChanged VerifyStatus = "changed"
	VerifyMissing VerifyStatus = "missing"
)

// VerifyResult is the outcome for one recorded file.
type VerifyResult struct {
	Path   string
	Status VerifyStatus
	Detail string
}

// VerifyReport summarizes a verification pass.
type VerifyReport struct {
	Results []VerifyResult
	OK      int
	Changed int
	Missing int
}

// Clean reports whether every entry verified.
func (r *VerifyReport) Clean() bool { return r.Changed == 0 && r.Missing == 0 }

// Verify re-hashes every manifest entry against its recorded BLAKE3 digest.
// With prune, entries whose files are gone are dropped from the manifest.
func Verify(ctx context.Context, ws *workspace.Workspace, man *Manifest, prune bool) (*VerifyReport, error) {
	report := &VerifyReport{}
	var gone []string

	for _, path := range man.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, _ := man.Lookup(path)
		res := VerifyResult{Path: path}

		abs := filepath.Join(ws.Root, path)
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			res.Status = VerifyMissing
			res.Detail = "file not found"
			report.Missing++
			gone = append(gone, path)
			report.Results = append(report.Results, res)
			continue
		}

		sum, _, err := HashFile(abs)
		if err != nil {
			return nil, err
		}
		if sum != entry.BLAKE3 {
			res.Status = VerifyChanged
			res.Detail = "content changed since download"
			report.Changed++
		} else {
			res.Status = VerifyOK
			report.OK++
		}
		report.Results = append(report.Results, res)
	}

	if prune && len(gone) > 0 {
		for _, path := range gone {
			delete(man.Entries, path)
		}
		if err := man.Save(ws); err != nil {
			return nil, err
		}
	}
	return report, nil
}
