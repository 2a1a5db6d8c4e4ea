package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"sdrig/internal/cart"
	"sdrig/internal/workspace"
)

// Some model hosts reject non-browser user agents.
const userAgent = "Mozilla/5.0"

// errUnsupported marks failures no retry can fix.
var errUnsupported = errors.New("not supported by the native engine")

// nativeFetcher downloads over plain HTTP with Range-based resume. Partial
// data lives in .sdrig/tmp until the file is complete.
type nativeFetcher struct {
	ws     *workspace.Workspace
	client *http.Client
}

func newNativeFetcher(ws *workspace.Workspace) *nativeFetcher {
	return &nativeFetcher{ws: ws, client: &http.Client{}}
}

func (f *nativeFetcher) Name() string { return "native" }

func (f *nativeFetcher) Fetch(ctx context.Context, job *Job, report func(done, total int64)) error {
	if u, err := url.Parse(job.URL); err == nil {
		host := strings.ToLower(u.Hostname())
		if host == "mega.nz" || strings.HasSuffix(host, ".mega.nz") {
			return fmt.Errorf("mega.nz links: %w (download manually into %s)", errUnsupported, f.ws.Rel(filepath.Dir(job.Dest)))
		}
	}

	partPath := f.partPath(job)
	if err := os.MkdirAll(filepath.Dir(partPath), 0o755); err != nil {
		return err
	}
	var offset int64
	if fi, err := os.Stat(partPath); err == nil {
		offset = fi.Size()
	}

	resp, err := f.get(ctx, job.URL, offset)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		// Server refused the resume point. Start over.
		resp.Body.Close()
		if err := os.Remove(partPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		offset = 0
		if resp, err = f.get(ctx, job.URL, 0); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusOK:
		offset = 0
		flags |= os.O_TRUNC
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	default:
		return fmt.Errorf("GET %s: %s", job.URL, resp.Status)
	}

	var total int64
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}
	if t, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
		total = t
	}

	part, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return err
	}

	report(offset, total)
	written := offset
	buf := make([]byte, 128*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := part.Write(buf[:n]); werr != nil {
				part.Close()
				return werr
			}
			written += int64(n)
			report(written, total)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			part.Close()
			return fmt.Errorf("reading %s: %w", job.URL, rerr)
		}
	}
	if err := part.Sync(); err != nil {
		part.Close()
		return err
	}
	if err := part.Close(); err != nil {
		return err
	}
	if total > 0 && written != total {
		return fmt.Errorf("%s: incomplete, got %d of %d bytes", job.Filename, written, total)
	}

	final := job.Dest
	if job.derived {
		if name := dispositionFilename(resp.Header.Get("Content-Disposition")); name != "" && name != job.Filename {
			candidate := filepath.Join(filepath.Dir(job.Dest), name)
			if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
				final = candidate
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	if err := os.Rename(partPath, final); err != nil {
		return err
	}
	if final != job.Dest {
		job.resolved = final
	}
	return nil
}

// partPath is stable across runs so interrupted downloads resume.
func (f *nativeFetcher) partPath(job *Job) string {
	return filepath.Join(f.ws.TmpDir(), string(job.Category)+"-"+job.Filename+".part")
}

func (f *nativeFetcher) get(ctx context.Context, rawURL string, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	return resp, nil
}

// parseContentRangeTotal extracts the total from "bytes 0-99/1234".
func parseContentRangeTotal(header string) (int64, bool) {
	_, after, ok := strings.Cut(header, "/")
	if !ok {
		return 0, false
	}
	total, err := strconv.ParseInt(strings.TrimSpace(after), 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}

// dispositionFilename extracts a usable filename from a Content-Disposition
// header, sanitized the same way cart filenames are. Empty means unusable.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(strings.TrimSpace(params["filename"]))
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		return ""
	}
	ext := filepath.Ext(name)
	if !validExt(ext) {
		return ""
	}
	return cart.CleanFilename(strings.TrimSuffix(name, ext)) + ext
}

func validExt(ext string) bool {
	if len(ext) < 2 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
