package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockPath(t *testing.T) {
	got := LockPath(filepath.Join("ci", "Plc.sln"))
	if !strings.HasSuffix(got, "Plc.sln.tcsa.lock") {
		t.Errorf("LockPath() = %q", got)
	}
}

func TestAcquireExclusive(t *testing.T) {
	solution := filepath.Join(t.TempDir(), "Plc.sln")

	first, err := Acquire(solution)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if !first.Held() {
		t.Error("Held() = false after Acquire")
	}
	if first.Path() != LockPath(solution) {
		t.Errorf("Path() = %q, want %q", first.Path(), LockPath(solution))
	}

	// flock locks are per open file description, so a second handle in the
	// same process conflicts just like another process would.
	_, err = Acquire(solution)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire() error = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if first.Held() {
		t.Error("Held() = true after Release")
	}

	again, err := Acquire(solution)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	again.Release()
}

func TestReleaseTwice(t *testing.T) {
	lock, err := Acquire(filepath.Join(t.TempDir(), "Plc.sln"))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestLockFileKeptAfterRelease(t *testing.T) {
	solution := filepath.Join(t.TempDir(), "Plc.sln")
	lock, err := Acquire(solution)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	lock.Release()

	if _, err := os.Stat(LockPath(solution)); err != nil {
		t.Errorf("lock file missing after Release: %v", err)
	}
}

func TestAcquireMissingDirectory(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "missing", "Plc.sln"))
	if err == nil {
		t.Fatal("expected error for a solution in a missing directory")
	}
	if errors.Is(err, ErrLocked) {
		t.Errorf("error = %v, should not be ErrLocked", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.yaml")

	if err := WriteFile(path, []byte("status: success\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := WriteFile(path, []byte("status: error\n"), 0644); err != nil {
		t.Fatalf("WriteFile() overwrite error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "status: error\n" {
		t.Errorf("content = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temp files left behind: %v", names)
	}
}

func TestWriteFileFailsOnDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(target, []byte("x"), 0644); err == nil {
		t.Error("expected error when the target is a non-empty directory")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind after failure: %d entries", len(entries))
	}
}
