package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTempDir(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	// Verify directory exists
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory should exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("should be a directory")
	}

	if !filepath.IsAbs(dir) {
		t.Error("should return absolute path")
	}
}

func TestTempDir_Cleanup(t *testing.T) {
	dir, cleanup := TempDir(t)

	// Create a file in the directory
	testFile := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	cleanup()

	// Verify directory and file are removed
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory should be removed after cleanup")
	}
}

func TestWriteFile(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	path := WriteFile(t, dir, "test.txt", "hello world")

	// Verify file exists
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if string(content) != "hello world" {
		t.Errorf("content = %q, want %q", content, "hello world")
	}
}

func TestWriteFile_CreatesSubdirectories(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	path := WriteFile(t, dir, "sub/dir/test.txt", "content")

	// Verify file exists
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if string(content) != "content" {
		t.Errorf("content = %q, want %q", content, "content")
	}
}

func TestReadFile(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	path := WriteFile(t, dir, "test.txt", "test content")
	content := ReadFile(t, path)

	if content != "test content" {
		t.Errorf("content = %q, want %q", content, "test content")
	}
}

func TestFileExists(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	path := WriteFile(t, dir, "exists.txt", "content")

	if !FileExists(t, path) {
		t.Error("FileExists should return true for existing file")
	}

	if FileExists(t, filepath.Join(dir, "nonexistent.txt")) {
		t.Error("FileExists should return false for nonexistent file")
	}
}

func TestSetupProjectDir(t *testing.T) {
	dir, cleanup := SetupProjectDir(t, "metronome:\n  bpm: 90\n")
	defer cleanup()

	path := filepath.Join(dir, ".gimme", "config.yaml")
	if !FileExists(t, path) {
		t.Fatal(".gimme/config.yaml should exist")
	}
	if got := ReadFile(t, path); got != "metronome:\n  bpm: 90\n" {
		t.Errorf("unexpected content: %q", got)
	}
}
