package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// Create directories for symlink tests
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(safeDir, 0755); err != nil {
		t.Fatalf("Failed to create safe directory: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("Failed to create unsafe directory: %v", err)
	}

	// Create a file in the unsafe directory
	unsafeFile := filepath.Join(unsafeDir, "secret.txt")
	if err := os.WriteFile(unsafeFile, []byte("secret"), 0644); err != nil {
		t.Fatalf("Failed to create unsafe file: %v", err)
	}

	// Create a symlink inside safe directory pointing to unsafe directory
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{
			name:      "valid path within directory",
			filePath:  filepath.Join(tmpDir, "file.txt"),
			safeDir:   tmpDir,
			wantError: false,
		},
		{
			name:      "valid nested path",
			filePath:  filepath.Join(tmpDir, "subdir", "file.txt"),
			safeDir:   tmpDir,
			wantError: false,
		},
		{
			name:      "path traversal with ..",
			filePath:  filepath.Join(tmpDir, "..", "file.txt"),
			safeDir:   tmpDir,
			wantError: true,
		},
		{
			name:      "path traversal at start",
			filePath:  "../../../etc/passwd",
			safeDir:   tmpDir,
			wantError: true,
		},
		{
			name:      "absolute path outside safe dir",
			filePath:  "/etc/passwd",
			safeDir:   tmpDir,
			wantError: true,
		},
		{
			name:      "symlink escape attack - following symlink to outside dir",
			filePath:  filepath.Join(symlinkPath, "secret.txt"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "symlink escape attack - accessing symlink directly",
			filePath:  symlinkPath,
			safeDir:   safeDir,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestChartFilePath(t *testing.T) {
	root := t.TempDir()
	run := "0b8a6f2e-4c1d-4f3e-9a51-2d7c9e1b6a40"

	got, err := ChartFilePath(root, run, "driver_age_histogram.png")
	if err != nil {
		t.Fatalf("ChartFilePath() error = %v", err)
	}
	if want := filepath.Join(root, run, "driver_age_histogram.png"); got != want {
		t.Errorf("ChartFilePath() = %q, want %q", got, want)
	}

	bad := []struct {
		name string
		run  string
		file string
	}{
		{"empty run", "", "a.png"},
		{"parent run", "..", "a.png"},
		{"nested run", "a/b", "a.png"},
		{"traversal file", run, "../../etc/passwd"},
		{"not png", run, "data.csv"},
		{"empty file", run, ""},
		{"spaces", run, "my chart.png"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ChartFilePath(root, tt.run, tt.file); err == nil {
				t.Errorf("ChartFilePath(%q, %q) expected error", tt.run, tt.file)
			}
		})
	}
}

func TestChartFilePath_SymlinkedRun(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "charts")
	outside := filepath.Join(tmp, "outside")
	for _, d := range []string{root, outside} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(outside, filepath.Join(root, "evil")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if _, err := ChartFilePath(root, "evil", "x.png"); err == nil {
		t.Error("expected symlinked run directory to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":               "unknown",
		"chart.png":      "chart.png",
		"my chart!!.png": "my_chart_.png",
		"../../etc":      "etc",
		"...":            "unknown",
		"run-1_final":    "run-1_final",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("a", 200)); len(got) != 128 {
		t.Errorf("long name trimmed to %d bytes, want 128", len(got))
	}
}
