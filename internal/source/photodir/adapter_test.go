package photodir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchBatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.jpg", "b.webp", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	manifest := `{"filename":"a.jpg","display_name":"Morgana","variant":"witch"}
not json
{"filename":"c.png","extra_prompt":"red eyes"}
`
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	a := NewAdapter(dir)
	ctx := context.Background()

	first, next, err := a.FetchBatch(ctx, "", 2)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(first) != 2 || next != "2" {
		t.Fatalf("got %d items, next %q", len(first), next)
	}
	if first[0].SourceID != "a.jpg" || first[0].DisplayName != "Morgana" || first[0].Variant != "witch" {
		t.Errorf("unexpected first item %+v", first[0])
	}

	rest, next, err := a.FetchBatch(ctx, next, 2)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(rest) != 1 || next != "" {
		t.Fatalf("got %d items, next %q", len(rest), next)
	}
	if rest[0].Augmentation != "red eyes" || rest[0].Format != "png" {
		t.Errorf("unexpected last item %+v", rest[0])
	}

	if _, _, err := a.FetchBatch(ctx, "bogus", 2); err == nil {
		t.Error("expected error for invalid cursor")
	}
}

func TestMissingDirectory(t *testing.T) {
	a := NewAdapter(filepath.Join(t.TempDir(), "nope"))
	if _, _, err := a.FetchBatch(context.Background(), "", 10); err == nil {
		t.Fatal("expected error")
	}
}
