// Package gitvcs implements internal/vcs.Adapter over go-git
// (github.com/go-git/go-git/v5). No system git binary is invoked; both
// the save repository and the core repository are driven entirely
// in-process.
package gitvcs

import (
	"errors"
	"io"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/vcs"
)

// Adapter is the go-git backed vcs.Adapter. It is stateless: every call
// opens dir fresh, so a single Adapter value is safely shared between the
// save repo and the core repo without either leaking into the other.
type Adapter struct{}

// New returns a ready-to-use Adapter.
func New() *Adapter { return &Adapter{} }

var _ vcs.Adapter = (*Adapter)(nil)

func open(dir string) (*git.Repository, *git.Worktree, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, nil, coreerr.Wrapf(coreerr.External, err, "cannot open repository at %s", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, coreerr.Wrapf(coreerr.External, err, "cannot open worktree at %s", dir)
	}
	return repo, wt, nil
}

func (a *Adapter) Init(dir string) error {
	if _, err := git.PlainInit(dir, false); err != nil {
		return coreerr.Wrapf(coreerr.External, err, "cannot init repository at %s", dir)
	}
	return nil
}

// Identity resolves the same way `git commit` does: local repo config
// overriding global config. dir need not be a repository yet (the
// Initialize workflow checks identity before running `Init`), in which
// case only the global config is consulted.
func (a *Adapter) Identity(dir string) (name, email string, ok bool, err error) {
	if repo, rerr := git.PlainOpen(dir); rerr == nil {
		if cfg, cerr := repo.ConfigScoped(config.LocalScope); cerr == nil && cfg.User.Name != "" && cfg.User.Email != "" {
			return cfg.User.Name, cfg.User.Email, true, nil
		}
	}
	cfg, cerr := config.LoadConfig(config.GlobalScope)
	if cerr != nil {
		return "", "", false, nil
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return cfg.User.Name, cfg.User.Email, false, nil
	}
	return cfg.User.Name, cfg.User.Email, true, nil
}

func (a *Adapter) Status(dir string) (vcs.Status, error) {
	repo, wt, err := open(dir)
	if err != nil {
		return vcs.Status{}, err
	}
	raw, err := wt.Status()
	if err != nil {
		return vcs.Status{}, coreerr.Wrapf(coreerr.External, err, "cannot read status of %s", dir)
	}

	var s vcs.Status
	for path, fs := range raw {
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			s.Staged = append(s.Staged, path)
		}
		switch {
		case fs.Worktree == git.Untracked && fs.Staging == git.Untracked:
			s.Untracked = append(s.Untracked, path)
		case fs.Worktree == git.Deleted:
			s.Deleted = append(s.Deleted, path)
		case fs.Worktree != git.Unmodified:
			s.Modified = append(s.Modified, path)
		}
	}
	sort.Strings(s.Modified)
	sort.Strings(s.Untracked)
	sort.Strings(s.Deleted)
	sort.Strings(s.Staged)

	if head, herr := repo.Head(); herr == nil {
		s.Branch = head.Name().Short()
	}
	// Ahead/Behind are always 0: neither repository ever pushes to or
	// pulls from a remote, so there is no upstream to compare against.
	return s, nil
}

func (a *Adapter) Stage(dir, path string) error {
	_, wt, err := open(dir)
	if err != nil {
		return err
	}
	if _, err := wt.Add(path); err != nil {
		return coreerr.Wrapf(coreerr.External, err, "cannot stage %s", path)
	}
	return nil
}

func (a *Adapter) StageAll(dir string) ([]string, error) {
	_, wt, err := open(dir)
	if err != nil {
		return nil, err
	}
	before, err := wt.Status()
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot read status of %s", dir)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot stage all changes in %s", dir)
	}
	after, err := wt.Status()
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot read status of %s", dir)
	}
	var staged []string
	for path, fs := range after {
		if fs.Staging == git.Unmodified || fs.Staging == git.Untracked {
			continue
		}
		if b, ok := before[path]; !ok || b.Staging != fs.Staging {
			staged = append(staged, path)
		}
	}
	sort.Strings(staged)
	return staged, nil
}

func (a *Adapter) Unstage(dir, path string) error {
	_, wt, err := open(dir)
	if err != nil {
		return err
	}
	st, err := wt.Status()
	if err != nil {
		return coreerr.Wrapf(coreerr.External, err, "cannot read status of %s", dir)
	}
	if fs, ok := st[path]; !ok || fs.Staging == git.Unmodified || fs.Staging == git.Untracked {
		return coreerr.New(coreerr.Contract, path, "path is not currently staged", nil)
	}
	if err := wt.Reset(&git.ResetOptions{Mode: git.MixedReset, Files: []string{path}}); err != nil {
		return coreerr.Wrapf(coreerr.External, err, "cannot unstage %s", path)
	}
	return nil
}

func (a *Adapter) Commit(dir, message string) (string, error) {
	_, wt, err := open(dir)
	if err != nil {
		return "", err
	}
	name, email, ok, err := a.Identity(dir)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", coreerr.New(coreerr.Contract, dir, "identity missing", nil)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: time.Now()},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", coreerr.New(coreerr.Contract, dir, "nothing to commit", nil)
		}
		return "", coreerr.Wrapf(coreerr.External, err, "cannot commit in %s", dir)
	}
	return hash.String(), nil
}

// Amend rewrites HEAD with the currently staged index. If message is
// empty, the parent commit's message and authorship are reused.
func (a *Adapter) Amend(dir, message string) (string, error) {
	repo, wt, err := open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", coreerr.Wrapf(coreerr.Contract, err, "no parent commit to amend in %s", dir)
	}
	parent, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", coreerr.Wrapf(coreerr.External, err, "cannot load parent commit in %s", dir)
	}
	author := parent.Author
	msg := message
	if msg == "" {
		msg = parent.Message
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{Amend: true, Author: &author})
	if err != nil {
		return "", coreerr.Wrapf(coreerr.External, err, "cannot amend commit in %s", dir)
	}
	return hash.String(), nil
}

func (a *Adapter) CurrentHash(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", coreerr.Wrapf(coreerr.External, err, "cannot open repository at %s", dir)
	}
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", coreerr.Wrapf(coreerr.External, err, "cannot resolve HEAD in %s", dir)
	}
	return head.Hash().String(), nil
}

func (a *Adapter) ShowAt(dir, path, hash string) ([]byte, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot open repository at %s", dir)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot load commit %s in %s", hash, dir)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot load tree for commit %s", hash)
	}
	file, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, nil
		}
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot look up %s at %s", path, hash)
	}
	r, err := file.Reader()
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot read %s at %s", path, hash)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.External, err, "cannot read %s at %s", path, hash)
	}
	return data, nil
}

func (a *Adapter) IsAncestor(dir, ancestor, descendant string) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, coreerr.Wrapf(coreerr.External, err, "cannot open repository at %s", dir)
	}
	ac, err := repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, coreerr.Wrapf(coreerr.External, err, "cannot load commit %s", ancestor)
	}
	dc, err := repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, coreerr.Wrapf(coreerr.External, err, "cannot load commit %s", descendant)
	}
	ok, err := ac.IsAncestor(dc)
	if err != nil {
		return false, coreerr.Wrapf(coreerr.External, err, "cannot determine ancestry")
	}
	return ok, nil
}
