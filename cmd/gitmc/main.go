// Command gitmc is the command-line frontend for the GitMC core: it wires
// the Orchestrator's four workflows (init, translate, commit, reconstruct)
// and a status verb onto github.com/google/subcommands, alongside the
// supplemented compact/extract-strings/patch verbs inherited from the
// original mcstrings tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/subcommands"

	"github.com/NaughtyChas/GitMC/commands"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/envcfg"
	"github.com/NaughtyChas/GitMC/internal/logx"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
	"github.com/NaughtyChas/GitMC/internal/orchestrator"
	"github.com/NaughtyChas/GitMC/internal/vcs/gitvcs"
)

// Exit codes for the Orchestrator-backed verbs.
const (
	exitOK                 = 0
	exitIdentityMissing    = 2
	exitNotASave           = 3
	exitAlreadyInitialized = 4
	exitTranslationError   = 5
	exitNothingToCommit    = 6
	exitCommitFailed       = 7
	exitCommitNotFound     = 8
	exitPartial            = 9
)

func newOrchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(gitvcs.New(), opmanager.New())
}

func main() {
	logx.SetMinLevel(envcfg.LogLevel())

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&initCmd{}, "")
	subcommands.Register(&translateCmd{}, "")
	subcommands.Register(&translateSinceCmd{}, "")
	subcommands.Register(&commitCmd{}, "")
	subcommands.Register(&reconstructCmd{}, "")
	subcommands.Register(&statusCmd{}, "")

	subcommands.Register(&commands.Compact{}, "supplemented")
	subcommands.Register(&commands.Extract{}, "supplemented")
	subcommands.Register(&commands.Patch{}, "supplemented")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// contractExitCode inspects a failed workflow's terminal error and maps
// its coreerr.Kind/Message onto the verb-specific exit codes.
// fallback is returned for any error that doesn't match a known case.
func contractExitCode(err error, fallback subcommands.ExitStatus) subcommands.ExitStatus {
	var ce *coreerr.Error
	if !errors.As(err, &ce) {
		return fallback
	}
	switch {
	case ce.Kind == coreerr.Contract && ce.Message == "identity missing":
		return exitIdentityMissing
	case ce.Kind == coreerr.Contract && ce.Message == "not a Minecraft save (missing level.dat)":
		return exitNotASave
	case ce.Kind == coreerr.Contract && ce.Message == "already initialized":
		return exitAlreadyInitialized
	case ce.Kind == coreerr.Contract && ce.Message == "nothing to commit":
		return exitNothingToCommit
	}
	return fallback
}

// isCommitNotFound reports whether err traces back to a missing git object,
// the signal that the `reconstruct` verb's commit hash doesn't exist
// in the core repository.
func isCommitNotFound(err error) bool {
	return errors.Is(err, plumbing.ErrObjectNotFound)
}

// printWarnings writes each non-fatal per-file warning a workflow
// collected to stderr, one per line, so no partial state is hidden.
func printWarnings(warnings []error) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
}

type initCmd struct{}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "Turn a Minecraft save into a GitMC save." }
func (*initCmd) Usage() string {
	return `init <save>
Mirrors <save> into a version-controlled core directory and commits the
initial import (exit codes: 0 ok; 2 identity missing; 3 not a save; 4
already initialized).

`
}
func (*initCmd) SetFlags(*flag.FlagSet) {}

func (*initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "<save> is required.")
		return subcommands.ExitUsageError
	}
	o := newOrchestrator()
	_, err := o.Initialize(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return contractExitCode(err, subcommands.ExitFailure)
	}
	return exitOK
}

type translateCmd struct{}

func (*translateCmd) Name() string     { return "translate" }
func (*translateCmd) Synopsis() string { return "Materialize changed chunks and data files as SNBT." }
func (*translateCmd) Usage() string {
	return `translate <save>
Detects every chunk and data file that changed since the last commit and
writes it out as SNBT under the core directory, without committing (exit
codes: 0 ok, including no-op; 5 translation error).

`
}
func (*translateCmd) SetFlags(*flag.FlagSet) {}

func (*translateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "<save> is required.")
		return subcommands.ExitUsageError
	}
	o := newOrchestrator()
	_, warnings, err := o.Translate(f.Arg(0), nil)
	printWarnings(warnings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate: %v\n", err)
		return exitTranslationError
	}
	return exitOK
}

type translateSinceCmd struct{}

func (*translateSinceCmd) Name() string { return "translate-since" }
func (*translateSinceCmd) Synopsis() string {
	return "Materialize changed chunks and data files modified since a given time."
}
func (*translateSinceCmd) Usage() string {
	return `translate-since <save> <iso-utc>
Same as translate, but only considers region-like files whose mtime is at or
after <iso-utc> (RFC 3339, e.g. 2026-01-02T15:04:05Z) as translate
candidates (exit codes: same as translate).

`
}
func (*translateSinceCmd) SetFlags(*flag.FlagSet) {}

func (*translateSinceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "<save> and <iso-utc> are required.")
		return subcommands.ExitUsageError
	}
	since, err := time.Parse(time.RFC3339, f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid <iso-utc>: %v\n", err)
		return subcommands.ExitUsageError
	}
	o := newOrchestrator()
	_, warnings, err := o.Translate(f.Arg(0), &since)
	printWarnings(warnings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate-since: %v\n", err)
		return exitTranslationError
	}
	return exitOK
}

type commitCmd struct{}

func (*commitCmd) Name() string     { return "commit" }
func (*commitCmd) Synopsis() string { return "Commit translated and hand-edited changes." }
func (*commitCmd) Usage() string {
	return `commit <save> <message>
Translates outstanding changes (letting any textual edit already made in the
core working tree win), commits the core repository, rebuilds any region
the user edited by hand, and commits the save repository (exit codes: 0 ok;
6 nothing to commit; 7 commit failed).

`
}
func (*commitCmd) SetFlags(*flag.FlagSet) {}

func (*commitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "<save> and <message> are required.")
		return subcommands.ExitUsageError
	}
	o := newOrchestrator()
	op, warnings, err := o.Commit(f.Arg(0), f.Arg(1))
	printWarnings(warnings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "commit: %v\n", err)
		return contractExitCode(err, exitCommitFailed)
	}
	fmt.Println(op.Message)
	return exitOK
}

type reconstructCmd struct{}

func (*reconstructCmd) Name() string { return "reconstruct" }
func (*reconstructCmd) Synopsis() string {
	return "Materialize the save as it existed at a past commit."
}
func (*reconstructCmd) Usage() string {
	return `reconstruct <save> <commit> <out>
Writes every path active as of <commit> into <out>, preserving relative
paths (exit codes: 0 ok; 8 commit not found; 9 partial, meaning some paths
were missing at that commit).

`
}
func (*reconstructCmd) SetFlags(*flag.FlagSet) {}

func (*reconstructCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "<save>, <commit>, and <out> are required.")
		return subcommands.ExitUsageError
	}
	o := newOrchestrator()
	_, warnings, err := o.Reconstruct(f.Arg(0), f.Arg(1), f.Arg(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconstruct: %v\n", err)
		if isCommitNotFound(err) {
			return exitCommitNotFound
		}
		return subcommands.ExitFailure
	}
	if len(warnings) > 0 {
		printWarnings(warnings)
		return exitPartial
	}
	return exitOK
}

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "Print counts of pending and changed entries." }
func (*statusCmd) Usage() string {
	return `status <save>
Prints how many manifest entries are pending a commit and how many chunks
or data files have changed since the last translation (exit code: 0).

`
}
func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (*statusCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "<save> is required.")
		return subcommands.ExitUsageError
	}
	o := newOrchestrator()
	summary, err := o.Status(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("pending entries:    %d\n", summary.PendingEntries)
	fmt.Printf("changed chunks:     %d\n", summary.ChangedChunks)
	fmt.Printf("deleted chunks:     %d\n", summary.DeletedChunks)
	fmt.Printf("changed data files: %d\n", summary.ChangedDataFiles)
	printWarnings(summary.Warnings)
	return exitOK
}
