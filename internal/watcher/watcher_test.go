package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

// recorder collects the base names passed to onIngest.
type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) onIngest(path string) {
	r.mu.Lock()
	r.names = append(r.names, filepath.Base(path))
	r.mu.Unlock()
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// waitFor polls until every name has been ingested or the deadline passes.
func (r *recorder) waitFor(t *testing.T, names ...string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if containsAll(r.seen(), names) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %v, ingested %v", names, r.seen())
}

func containsAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func startWatcher(t *testing.T, root string, exts []string, rec *recorder) *Watcher {
	t.Helper()
	w := NewWatcher([]string{root}, exts, true, rec.onIngest, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Directories(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher([]string{dir}, []string{".pdf"}, true, nil)
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_NewFileIsIngestedOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt"}, rec)

	path := filepath.Join(dir, "wording.txt")
	writeDoc(t, path, "1. DEFINITIONS")
	// A burst of writes within the debounce window settles into one callback.
	writeDoc(t, path, "1. DEFINITIONS\nInsured means the policyholder.")
	rec.waitFor(t, "wording.txt")

	time.Sleep(200 * time.Millisecond)
	if got := rec.seen(); len(got) != 1 {
		t.Errorf("expected one debounced callback, got %v", got)
	}
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt", ".md"}, rec)

	writeDoc(t, filepath.Join(dir, "schedule.xlsx"), "skip")
	writeDoc(t, filepath.Join(dir, "terms.md"), "# Terms")
	rec.waitFor(t, "terms.md")

	for _, name := range rec.seen() {
		if name == "schedule.xlsx" {
			t.Error("schedule.xlsx should be filtered out")
		}
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/docs/policy.pdf", []string{".pdf", ".docx"}, true},
		{"/docs/POLICY.PDF", []string{".pdf"}, true},
		{"/docs/notes.md", []string{".pdf"}, false},
		{"/docs/README", nil, true},
		{"/docs/README", []string{}, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/srv/policies", "/srv/policies", true},
		{"/srv/policies", "/srv/policies/health.pdf", true},
		{"/srv/policies", "/srv/policies-old/health.pdf", false},
		{"/srv/policies", "/srv/policies/../claims", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "health.txt"), "Hospital cover")
	writeDoc(t, filepath.Join(dir, "archive", "motor.txt"), "Own damage")
	writeDoc(t, filepath.Join(dir, "scan.tiff"), "x")

	rec := &recorder{}
	w := startWatcher(t, dir, []string{".txt"}, rec)
	w.SyncExistingFiles()

	if got := rec.seen(); len(got) != 2 || got[0] != "health.txt" || got[1] != "motor.txt" {
		t.Errorf("SyncExistingFiles ingested %v, want [health.txt motor.txt]", got)
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "policies")
	rec := &recorder{}
	startWatcher(t, root, []string{".txt"}, rec)

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectoryIsScanned(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt", ".md"}, rec)

	// Copying a folder in: its files may land before the directory is watched.
	folder := filepath.Join(dir, "2024-renewal")
	writeDoc(t, filepath.Join(folder, "schedule.txt"), "Sum insured")
	writeDoc(t, filepath.Join(folder, "endorsements.md"), "# Endorsements")
	writeDoc(t, filepath.Join(folder, "ignore.xyz"), "skip")
	rec.waitFor(t, "schedule.txt", "endorsements.md")

	for _, name := range rec.seen() {
		if name == "ignore.xyz" {
			t.Error("ignore.xyz should not be ingested")
		}
	}
}

func TestWatcher_NestedDirectories(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt"}, rec)

	writeDoc(t, filepath.Join(dir, "health", "group", "deep.txt"), "Maternity cover")
	rec.waitFor(t, "deep.txt")
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, false, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
