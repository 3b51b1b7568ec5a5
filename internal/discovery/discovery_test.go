package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/harrison/minrow/internal/models"
)

// writeTree creates the given files (relative paths) under a temp dir.
func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	tmpDir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(tmpDir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("1,2,3\n"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return tmpDir
}

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("Rel(%s): %v", f, err)
		}
		rel[i] = filepath.ToSlash(r)
	}
	return rel
}

func TestDiscover(t *testing.T) {
	// tmpDir/
	//   a.csv
	//   b.CSV          (case differs: excluded)
	//   notes.txt
	//   data.csv.bak   (final extension differs: excluded)
	//   nested/c.csv
	//   nested/deep/d.csv
	//   fit-01/e.csv
	//   fit-01/sub/f.csv
	//   fit-02/g.csv
	//   other/fit-03/h.csv
	//   fit.csv
	root := writeTree(t,
		"a.csv",
		"b.CSV",
		"notes.txt",
		"data.csv.bak",
		"nested/c.csv",
		"nested/deep/d.csv",
		"fit-01/e.csv",
		"fit-01/sub/f.csv",
		"fit-02/g.csv",
		"other/fit-03/h.csv",
		"fit.csv",
	)

	tests := []struct {
		name   string
		filter models.DiscoveryFilter
		want   []string
	}{
		{
			name:   "no prefix searches root recursively",
			filter: models.DiscoveryFilter{Extension: "csv"},
			want: []string{
				"a.csv", "fit-01/e.csv", "fit-01/sub/f.csv", "fit-02/g.csv",
				"fit.csv", "nested/c.csv", "nested/deep/d.csv", "other/fit-03/h.csv",
			},
		},
		{
			name:   "extension with leading dot",
			filter: models.DiscoveryFilter{Extension: ".csv"},
			want: []string{
				"a.csv", "fit-01/e.csv", "fit-01/sub/f.csv", "fit-02/g.csv",
				"fit.csv", "nested/c.csv", "nested/deep/d.csv", "other/fit-03/h.csv",
			},
		},
		{
			name:   "extension is case-sensitive",
			filter: models.DiscoveryFilter{Extension: "CSV"},
			want:   []string{"b.CSV"},
		},
		{
			name:   "prefix restricts to top-level entries",
			filter: models.DiscoveryFilter{Extension: "csv", Prefix: "fit", PrefixDepth: 1},
			want:   []string{"fit-01/e.csv", "fit-01/sub/f.csv", "fit-02/g.csv", "fit.csv"},
		},
		{
			name:   "prefix depth reaches nested entries",
			filter: models.DiscoveryFilter{Extension: "csv", Prefix: "fit", PrefixDepth: 2},
			want:   []string{"fit-01/e.csv", "fit-01/sub/f.csv", "fit-02/g.csv", "fit.csv", "other/fit-03/h.csv"},
		},
		{
			name:   "prefix with no matches",
			filter: models.DiscoveryFilter{Extension: "csv", Prefix: "zzz"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Discover(root, tt.filter)
			if err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			got := relPaths(t, root, result.Files)
			if len(got) != len(tt.want) {
				t.Fatalf("Discover() returned %d files %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("file[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDiscoverNeverEscapesFilter(t *testing.T) {
	root := writeTree(t,
		"fit-a/x.csv",
		"fit-a/y.txt",
		"fita.csv.txt",
		"plain/z.csv",
		"deep/fit-b/w.csv",
	)
	filter := models.DiscoveryFilter{Extension: "csv", Prefix: "fit", PrefixDepth: 1}

	result, err := Discover(root, filter)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	for _, f := range result.Files {
		if filepath.Ext(f) != ".csv" {
			t.Errorf("file %s does not have the target extension", f)
		}
		rel, _ := filepath.Rel(root, f)
		top := strings.Split(filepath.ToSlash(rel), "/")[0]
		if !strings.HasPrefix(top, "fit") {
			t.Errorf("file %s is outside a prefixed top-level entry", f)
		}
	}
	if len(result.Files) != 1 {
		t.Errorf("Discover() returned %v, want only fit-a/x.csv", result.Files)
	}
}

func TestDiscoverDeterministic(t *testing.T) {
	root := writeTree(t, "fit-3/c.csv", "fit-1/a.csv", "fit-2/b.csv", "fit-1/z/y.csv")
	filter := models.DiscoveryFilter{Extension: "csv", Prefix: "fit"}

	first, err := Discover(root, filter)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Discover(root, filter)
		if err != nil {
			t.Fatalf("Discover() error = %v", err)
		}
		if strings.Join(again.Files, "|") != strings.Join(first.Files, "|") {
			t.Fatalf("discovery order changed: %v vs %v", again.Files, first.Files)
		}
	}
}

func TestDiscoverRootErrors(t *testing.T) {
	root := writeTree(t, "a.csv")

	tests := []struct {
		name string
		path string
	}{
		{name: "missing root", path: filepath.Join(root, "missing")},
		{name: "root is a file", path: filepath.Join(root, "a.csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Discover(tt.path, models.DiscoveryFilter{Extension: "csv"})
			if err == nil {
				t.Fatal("Discover() expected error, got nil")
			}
			var ioErr *models.IOError
			if !errors.As(err, &ioErr) {
				t.Errorf("error = %T, want *models.IOError", err)
			}
		})
	}
}

func TestDiscoverRequiresExtension(t *testing.T) {
	root := writeTree(t, "a.csv")
	if _, err := Discover(root, models.DiscoveryFilter{}); err == nil {
		t.Fatal("Discover() expected error for empty extension")
	}
}

func TestDiscoverEmptyRoot(t *testing.T) {
	root := t.TempDir()
	result, err := Discover(root, models.DiscoveryFilter{Extension: "csv"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("Discover() = %v, want no files", result.Files)
	}
}

func TestDiscoverSkipsBrokenSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := writeTree(t, "good.csv")
	if err := os.Symlink(filepath.Join(root, "missing.csv"), filepath.Join(root, "broken.csv")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "good.csv"), filepath.Join(root, "link.csv")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	result, err := Discover(root, models.DiscoveryFilter{Extension: "csv"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	got := relPaths(t, root, result.Files)
	if strings.Join(got, ",") != "good.csv,link.csv" {
		t.Errorf("Discover() = %v, want [good.csv link.csv]", got)
	}
	if len(result.Skipped) != 1 {
		t.Errorf("Skipped = %v, want one broken symlink", result.Skipped)
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"csv":   ".csv",
		".csv":  ".csv",
		"..csv": ".csv",
		" tsv ": ".tsv",
		"":      "",
	}
	for in, want := range tests {
		if got := NormalizeExtension(in); got != want {
			t.Errorf("NormalizeExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
