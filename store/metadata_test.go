package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMetadataWrittenOnFirstOpen(t *testing.T) {
	dir := t.TempDir()
	if err := checkOrWriteMetadata(dir, "badger"); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, metadataFileName)); err != nil {
		t.Fatalf("metadata sidecar not written: %v", err)
	}
	// Re-opening the same directory with the same backend succeeds.
	if err := checkOrWriteMetadata(dir, "badger"); err != nil {
		t.Fatalf("re-open: %v", err)
	}
}

func TestMetadataRefusesRevisionMismatch(t *testing.T) {
	dir := t.TempDir()
	content := `{"backend":"badger","format_revision":999}`
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := checkOrWriteMetadata(dir, "badger")
	if !errors.Is(err, ErrFormatRevision) {
		t.Fatalf("expected ErrFormatRevision, got %v", err)
	}
}

func TestMetadataRefusesBackendMismatch(t *testing.T) {
	dir := t.TempDir()
	content := `{"backend":"otherkv","format_revision":1}`
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := checkOrWriteMetadata(dir, "badger")
	if !errors.Is(err, ErrFormatRevision) {
		t.Fatalf("expected ErrFormatRevision, got %v", err)
	}
}

func TestOpenBadgerRefusesMismatchedDirectory(t *testing.T) {
	dir := t.TempDir()
	content := `{"backend":"badger","format_revision":999}`
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := OpenBadger(dir); !errors.Is(err, ErrFormatRevision) {
		t.Fatalf("expected ErrFormatRevision from OpenBadger, got %v", err)
	}
}
