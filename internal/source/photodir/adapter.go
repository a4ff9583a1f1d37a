// Package photodir reads photos from a local directory. An optional
// manifest.jsonl next to the photos sets per-file display names, costumes
// and extra prompt text.
package photodir

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/timmy/ghostbooth/internal/source"
)

// ManifestFileName is the optional JSONL manifest inside the directory.
const ManifestFileName = "manifest.jsonl"

var photoExts = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true}

// ManifestItem is one line of manifest.jsonl.
type ManifestItem struct {
	Filename     string `json:"filename"`
	DisplayName  string `json:"display_name"`
	Variant      string `json:"variant"`
	Augmentation string `json:"extra_prompt"`
}

// Adapter implements source.Source for a directory of photos.
type Adapter struct {
	dir    string
	items  []source.PhotoItem
	loaded bool
}

// NewAdapter creates an adapter for dir.
func NewAdapter(dir string) *Adapter {
	return &Adapter{dir: dir}
}

func (a *Adapter) GetSourceID() string {
	return "photodir:" + filepath.Base(filepath.Clean(a.dir))
}

func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Photo directory (%s)", a.dir)
}

// FetchBatch pages the sorted file list; the cursor is an index.
// Parameters:
//   - ctx: unused for local reads.
//   - cursor: index string, empty for the first page.
//   - limit: maximum number of items.
// Returns:
//   - []source.PhotoItem: batch of photos.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if the directory cannot be read or the cursor is invalid.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.PhotoItem, string, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load photos: %w", err)
		}
		a.loaded = true
	}

	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(a.items) {
		return []source.PhotoItem{}, "", nil
	}

	end := start + limit
	if end > len(a.items) {
		end = len(a.items)
	}
	next := ""
	if end < len(a.items) {
		next = strconv.Itoa(end)
	}
	return a.items[start:end], next, nil
}

func (a *Adapter) loadItems() error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return err
	}

	manifest, err := a.loadManifest()
	if err != nil {
		return err
	}

	a.items = []source.PhotoItem{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if !photoExts[ext] {
			continue
		}
		item := source.PhotoItem{
			SourceID:  e.Name(),
			LocalPath: filepath.Join(a.dir, e.Name()),
			Format:    ext,
		}
		if m, ok := manifest[e.Name()]; ok {
			item.DisplayName = m.DisplayName
			item.Variant = m.Variant
			item.Augmentation = m.Augmentation
		}
		a.items = append(a.items, item)
	}

	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].SourceID < a.items[j].SourceID
	})
	return nil
}

// loadManifest returns manifest entries keyed by file name. A missing
// manifest is not an error; malformed lines are skipped.
func (a *Adapter) loadManifest() (map[string]ManifestItem, error) {
	out := map[string]ManifestItem{}
	file, err := os.Open(filepath.Join(a.dir, ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil || item.Filename == "" {
			continue
		}
		out[item.Filename] = item
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return out, nil
}
