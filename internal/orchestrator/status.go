package orchestrator

import (
	"github.com/NaughtyChas/GitMC/internal/changedetect"
	"github.com/NaughtyChas/GitMC/internal/manifest"
)

// Summary is the read-only counts the `status` CLI verb prints.
// Unlike Initialize/Translate/Commit/Reconstruct, Status never drives an
// Operation: it takes no lock and never mutates the save.
type Summary struct {
	PendingEntries   int
	ChangedChunks    int
	DeletedChunks    int
	ChangedDataFiles int
	Warnings         []error
}

// Status reports how many manifest entries are still pending and how much
// the save has drifted from its last translation.
func (o *Orchestrator) Status(savePath string) (Summary, error) {
	core := corePath(savePath)
	if err := ensureInitialized(savePath, core); err != nil {
		return Summary{}, err
	}

	m, err := manifest.Load(core)
	if err != nil {
		return Summary{}, err
	}
	var pending int
	for _, e := range m.Entries() {
		if e.Commit == manifest.PendingCommit {
			pending++
		}
	}

	result, warnings, err := changedetect.Detect(changedetect.Config{
		SaveDir:  savePath,
		CoreDir:  core,
		SaveVCS:  o.VCS,
		CoreVCS:  o.VCS,
		Manifest: m,
	})
	if err != nil {
		return Summary{}, err
	}

	var changedChunks, deletedChunks int
	for _, rc := range result.RegionChunks {
		changedChunks += len(rc.Chunks)
	}
	for _, dc := range result.DeletedChunks {
		deletedChunks += len(dc.Chunks)
	}

	return Summary{
		PendingEntries:   pending,
		ChangedChunks:    changedChunks,
		DeletedChunks:    deletedChunks,
		ChangedDataFiles: len(result.NonRegionTranslate) + len(result.NonRegionCopy),
		Warnings:         warnings,
	}, nil
}
