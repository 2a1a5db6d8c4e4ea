// Package cart parses the model shopping cart format: a plain-text list of
// download URLs grouped under category markers.
//
//	$ckpt
//	https://civitai.com/api/download/models/128713 [DreamShaper 8]
//	$vae
//	https://huggingface.co/.../vae-ft-mse-840000-ema-pruned.safetensors
//
// Markers come in a short form ($ckpt, $vae, $lora, $cnet, $emb, $ups) and a
// long form (#model, #vae, #lora, #controlnet, #embedding, #upscale). A URL
// may follow a marker on the same line. Lines starting with // are comments.
// A bracketed [custom name] renames the downloaded file.
package cart

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"

	"sdrig/internal/catalog"
)

// Item is one resolved cart line.
type Item struct {
	Category catalog.Category
	Flavor   catalog.Flavor
	Name     string // display name, the filename without extension
	URL      string
	Filename string
	Custom   bool // filename was given in brackets
	Line     int
}

// Warning is a non-fatal parse problem tied to a line.
type Warning struct {
	Line int
	Msg  string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Msg)
}

// Cart is the parse result. Items from disallowed hosts never appear in
// Items; they surface as Warnings instead.
type Cart struct {
	Items    []Item
	Warnings []Warning
}

var markers = map[string]catalog.Category{
	"$ckpt": catalog.Checkpoint, "#model": catalog.Checkpoint,
	"$vae": catalog.VAE, "#vae": catalog.VAE,
	"$lora": catalog.LoRA, "#lora": catalog.LoRA,
	"$cnet": catalog.ControlNet, "$controlnet": catalog.ControlNet, "#controlnet": catalog.ControlNet,
	"$emb": catalog.Embedding, "$embeddings": catalog.Embedding, "#embedding": catalog.Embedding,
	"$ups": catalog.Upscaler, "#upscale": catalog.Upscaler,
}

// markerList is ordered longest-first so $embeddings wins over $emb.
var markerList = func() []string {
	out := make([]string, 0, len(markers))
	for m := range markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

// allowedHosts is the download host allowlist. Subdomains are allowed.
var allowedHosts = []string{
	"civitai.com",
	"huggingface.co",
	"github.com",
	"drive.google.com",
	"mega.nz",
}

// AllowedHost reports whether a host (or one of its parents) is allowlisted.
func AllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range allowedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ParseFile parses a cart file from disk.
func ParseFile(path string) (*Cart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseString parses cart text.
func ParseString(s string) (*Cart, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads cart lines. It never fails on content; malformed lines become
// Warnings. Duplicate URLs keep the first occurrence.
func Parse(r io.Reader) (*Cart, error) {
	c := &Cart{}
	var current catalog.Category
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if cat, rest, ok := matchMarker(line); ok {
			current = cat
			if rest == "" {
				continue
			}
			line = rest
		} else if strings.HasPrefix(line, "$") || strings.HasPrefix(line, "#") {
			c.warnf(lineNo, "unknown marker %q", firstField(line))
			continue
		}

		if current == "" {
			c.warnf(lineNo, "item before any category marker; line skipped")
			continue
		}

		item, err := parseItem(current, line, lineNo)
		if err != nil {
			c.warnf(lineNo, "%v", err)
			continue
		}
		if !AllowedHost(item.host()) {
			c.warnf(lineNo, "host %q is not allowlisted; skipping %s", item.host(), item.Name)
			continue
		}
		if seen[item.URL] {
			c.warnf(lineNo, "duplicate URL skipped: %s", item.URL)
			continue
		}
		seen[item.URL] = true
		c.Items = append(c.Items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}
	return c, nil
}

func (c *Cart) warnf(line int, format string, args ...any) {
	c.Warnings = append(c.Warnings, Warning{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func matchMarker(line string) (catalog.Category, string, bool) {
	lower := strings.ToLower(line)
	for _, m := range markerList {
		if !strings.HasPrefix(lower, m) {
			continue
		}
		rest := line[len(m):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return markers[m], strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

func firstField(line string) string {
	if f := strings.Fields(line); len(f) > 0 {
		return f[0]
	}
	return line
}

var bracketRe = regexp.MustCompile(`\[(.*?)\]`)

func parseItem(cat catalog.Category, line string, lineNo int) (Item, error) {
	rawURL := line
	customName := ""
	if m := bracketRe.FindStringSubmatch(line); m != nil {
		customName = strings.TrimSpace(m[1])
		rawURL = strings.TrimSpace(strings.Replace(line, m[0], "", 1))
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Item{}, fmt.Errorf("not a URL: %q", firstField(line))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Item{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	item := Item{
		Category: cat,
		URL:      rawURL,
		Line:     lineNo,
	}
	if customName != "" {
		ext := extensionOf(customName)
		if ext == "" {
			ext = extensionFromURL(rawURL)
		}
		if ext == "" {
			ext = ".safetensors"
		}
		item.Name = CleanFilename(strings.TrimSuffix(customName, extensionOf(customName)))
		item.Filename = item.Name + ext
		item.Custom = true
	} else {
		item.Filename = FilenameFromURL(rawURL)
		item.Name = strings.TrimSuffix(item.Filename, extensionOf(item.Filename))
	}
	item.Flavor = InferFlavor(rawURL, item.Name)
	return item, nil
}

func (i Item) host() string {
	u, err := url.Parse(i.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// ItemFromURL builds a cart item for a bare URL outside any cart file, used
// for URL references in the config's model lists.
func ItemFromURL(cat catalog.Category, rawURL string) (Item, error) {
	item, err := parseItem(cat, rawURL, 0)
	if err != nil {
		return Item{}, err
	}
	if !AllowedHost(item.host()) {
		return Item{}, fmt.Errorf("host %q is not allowlisted", item.host())
	}
	return item, nil
}

// modelExtensions ordered longest-first so .pth is not mistaken for .pt.
var modelExtensions = []string{".safetensors", ".ckpt", ".pth", ".pt", ".bin", ".vae"}

func extensionOf(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range modelExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

func extensionFromURL(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, ext := range modelExtensions {
		if strings.Contains(lower, ext) {
			return ext
		}
	}
	return ""
}

var civitaiDownloadRe = regexp.MustCompile(`^/api/download/models/(\d+)$`)

// FilenameFromURL derives an on-disk filename from a model URL. Civitai
// download endpoints carry no path name, so they get a placeholder that the
// downloader replaces with the server-supplied name.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "model.safetensors"
	}
	if m := civitaiDownloadRe.FindStringSubmatch(u.Path); m != nil {
		return "civitai-" + m[1] + ".safetensors"
	}

	segment := u.Path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}

	ext := extensionOf(segment)
	stem := CleanFilename(strings.TrimSuffix(segment, ext))
	if ext == "" {
		ext = extensionFromURL(rawURL)
	}
	if ext == "" {
		ext = ".safetensors"
	}
	return stem + ext
}

var (
	badCharsRe = regexp.MustCompile(`[^\w\s-]`)
	collapseRe = regexp.MustCompile(`[-\s]+`)
)

// CleanFilename normalizes a name stem for safe filesystem use.
func CleanFilename(name string) string {
	name = badCharsRe.ReplaceAllString(name, "")
	name = collapseRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "model"
	}
	return name
}

var sdxlIndicators = []string{"sdxl", "sd_xl", "sd xl", "stable-xl", "stablediffusion-xl", "stablediffusion xl"}
var sd15Indicators = []string{"sd1.5", "sd 1.5", "sd15", "sd_1_5", "stable-diffusion-1.5", "stable-diffusion-1-5"}

// InferFlavor guesses the model generation from URL and name. Explicit
// generation markers win; failing those, an "xl" anywhere in the name
// (juggernautXL, realvisxlV30) means SDXL, and SD 1.5 is the default.
func InferFlavor(rawURL, name string) catalog.Flavor {
	text := strings.ToLower(rawURL + " " + name)
	for _, ind := range sdxlIndicators {
		if strings.Contains(text, ind) {
			return catalog.SDXL
		}
	}
	for _, ind := range sd15Indicators {
		if strings.Contains(text, ind) {
			return catalog.SD15
		}
	}
	if strings.Contains(strings.ToLower(name), "xl") {
		return catalog.SDXL
	}
	return catalog.SD15
}
