package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// FileName is the manifest's on-disk name under a core directory.
const FileName = "manifest.json"

type wireManifest struct {
	Entries []Entry `json:"entries"`
}

// Load reads manifest.json from dir. A missing file is not an error: it
// yields an empty manifest, matching a freshly Initialize'd core directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, coreerr.New(coreerr.External, path, "cannot read manifest", err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, coreerr.New(coreerr.Format, path, err.Error(), err)
	}
	return m, nil
}

// Decode parses manifest.json content already read from disk or from a VCS
// blob (reconstruction fetches manifest.json via ShowAt rather than Load,
// since an older commit's working tree copy may no longer be current).
func Decode(data []byte) (*Manifest, error) {
	var wire wireManifest
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	m := New()
	for _, e := range wire.Entries {
		if !ValidCommit(e.Commit) {
			return nil, fmt.Errorf("manifest entry for %s has an invalid commit value", e.Path)
		}
		if _, dup := m.index[e.Path]; dup {
			return nil, fmt.Errorf("duplicate manifest entry for path %s", e.Path)
		}
		m.index[e.Path] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// Save pretty-prints the manifest to manifest.json under dir so the file
// diffs line-by-line, writing it atomically.
func (m *Manifest) Save(dir string) error {
	path := filepath.Join(dir, FileName)
	wire := wireManifest{Entries: m.Entries()}
	if wire.Entries == nil {
		wire.Entries = []Entry{}
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return coreerr.New(coreerr.Format, path, "cannot marshal manifest", err)
	}
	data = append(data, '\n')
	if err := atomicio.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	return nil
}
