package orchestrator

import (
	"time"

	"github.com/NaughtyChas/GitMC/internal/changedetect"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
)

// Translate materializes every actually-changed chunk and data file as
// SNBT under the core directory without touching either repository. since,
// if non-nil, prefilters candidate region-like files by mtime (the
// "translate-since" CLI variant).
func (o *Orchestrator) Translate(savePath string, since *time.Time) (*opmanager.Operation, []error, error) {
	core := corePath(savePath)
	if err := ensureInitialized(savePath, core); err != nil {
		return nil, nil, err
	}
	log := o.Log.With("save", savePath)

	op, err := o.Ops.Start(savePath, opmanager.Translate, 3)
	if err != nil {
		return nil, nil, err
	}
	fail := func(stepErr error) (*opmanager.Operation, []error, error) {
		o.Ops.Complete(op, false, stepErr.Error())
		return op, nil, stepErr
	}

	o.Ops.Update(op, 1, "loading manifest", "")
	m, err := manifest.Load(core)
	if err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 2, "detecting changes", "")
	result, warnings, err := changedetect.Detect(changedetect.Config{
		SaveDir:    savePath,
		CoreDir:    core,
		SaveVCS:    o.VCS,
		CoreVCS:    o.VCS,
		Manifest:   m,
		SinceMtime: since,
	})
	if err != nil {
		return fail(err)
	}
	if result.Empty() {
		log.Infof("no changes to translate")
		o.Ops.Complete(op, true, "no changes")
		return op, warnings, nil
	}

	o.Ops.Update(op, 3, "exporting changed chunks", "")
	if _, err := runExport(exportInput{
		SaveDir:  savePath,
		CoreDir:  core,
		Manifest: m,
		Result:   result,
	}); err != nil {
		return fail(err)
	}
	if err := m.Save(core); err != nil {
		return fail(err)
	}

	log.Infof("translated %d changed regions and %d data files",
		len(result.RegionChunks), len(result.NonRegionTranslate)+len(result.NonRegionCopy))
	o.Ops.Complete(op, true, "translated")
	return op, warnings, nil
}
