package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// formatRevision is bumped whenever the on-disk key encoding changes
// incompatibly (a tag-byte reassignment, a permutation reorder, a new
// family). Open refuses a directory written under a different revision
// rather than silently migrating or misreading it.
const formatRevision = 1

const metadataFileName = "quadgraph.meta"

// ErrFormatRevision is wrapped by the error OpenBadger returns when the
// data directory was written by an incompatible backend or format
// revision.
var ErrFormatRevision = errors.New("store: incompatible format revision")

// datasetMetadata is the small sidecar file identifying what wrote the
// data directory.
type datasetMetadata struct {
	Backend        string `json:"backend"`
	FormatRevision int    `json:"format_revision"`
}

// checkOrWriteMetadata verifies dir's metadata sidecar against the given
// backend name and the current format revision, writing a fresh sidecar
// when none exists (a new or pre-sidecar dataset directory).
func checkOrWriteMetadata(dir, backendName string) error {
	path := filepath.Join(dir, metadataFileName)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		meta := datasetMetadata{Backend: backendName, FormatRevision: formatRevision}
		out, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return os.WriteFile(path, out, 0o644)
	}
	if err != nil {
		return err
	}

	var meta datasetMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("%w: unreadable metadata file %s: %v", ErrFormatRevision, path, err)
	}
	if meta.Backend != backendName {
		return fmt.Errorf("%w: directory written by backend %q, opening as %q", ErrFormatRevision, meta.Backend, backendName)
	}
	if meta.FormatRevision != formatRevision {
		return fmt.Errorf("%w: directory at revision %d, this build reads revision %d", ErrFormatRevision, meta.FormatRevision, formatRevision)
	}
	return nil
}
