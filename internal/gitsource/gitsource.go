// Package gitsource loads model documents out of a Git repository's object
// database without ever checking out a working tree, the way the teacher's
// internal/gitclient loaded catalog YAML: clone with NoCheckout into an
// in-memory storer, then read individual blobs by path at a chosen revision.
package gitsource

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Auth holds HTTP Basic Auth credentials for a private remote.
type Auth struct {
	Username string
	Password string
}

// modelExtensions is the set of file extensions this loader will hand back;
// a git blob that isn't one of these isn't a model document (§4.5/§6).
var modelExtensions = map[string]bool{".xmi": true, ".xml": true}

// Loader holds one cloned repository's object database in memory, plus the
// revision-to-tree resolutions it has already paid for.
type Loader struct {
	repo  *git.Repository
	trees map[string]*object.Tree
}

// NewLoader clones url's full history (no working tree) into memory.
func NewLoader(url string, auth *Auth) (*Loader, error) {
	storer := memory.NewStorage()
	opts := &git.CloneOptions{
		URL:        url,
		NoCheckout: true,
		Depth:      0,
	}
	if auth != nil {
		opts.Auth = &http.BasicAuth{Username: auth.Username, Password: auth.Password}
	}
	repo, err := git.Clone(storer, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("gitsource: clone %s: %w", url, err)
	}
	return &Loader{repo: repo, trees: map[string]*object.Tree{}}, nil
}

// rootTree resolves revision to its commit's root tree, caching the result:
// a fetch/docs session typically reads or lists many paths at the same
// revision, and each resolution walks the object graph from scratch.
func (l *Loader) rootTree(revision string) (*object.Tree, error) {
	if tree, ok := l.trees[revision]; ok {
		return tree, nil
	}
	hash, err := l.resolveRevision(revision)
	if err != nil {
		return nil, err
	}
	commit, err := l.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("gitsource: commit lookup for %s: %w", revision, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitsource: root tree for %s: %w", revision, err)
	}
	l.trees[revision] = tree
	return tree, nil
}

func (l *Loader) resolveRevision(revision string) (*plumbing.Hash, error) {
	hash, err := l.repo.ResolveRevision(plumbing.Revision(revision))
	if err == nil {
		return hash, nil
	}
	if !strings.HasPrefix(revision, "refs/") {
		if hash, err := l.repo.ResolveRevision(plumbing.Revision("origin/" + revision)); err == nil {
			return hash, nil
		}
	}
	return nil, fmt.Errorf("gitsource: revision not found: %w", err)
}

func (l *Loader) subtree(revision, dirPath string) (*object.Tree, error) {
	root, err := l.rootTree(revision)
	if err != nil {
		return nil, err
	}
	if dirPath == "" || dirPath == "." || dirPath == "/" {
		return root, nil
	}
	tree, err := root.Tree(dirPath)
	if err != nil {
		return nil, fmt.Errorf("gitsource: directory %q not found at %s: %w", dirPath, revision, err)
	}
	return tree, nil
}

// ReadFile returns the content of filePath as it existed at revision.
// filePath must have a model-document extension (.xmi or .xml); the loader
// only ever hands back model documents, not arbitrary repository blobs.
func (l *Loader) ReadFile(revision, filePath string) ([]byte, error) {
	ext := strings.ToLower(path.Ext(filePath))
	if !modelExtensions[ext] {
		return nil, fmt.Errorf("gitsource: %s is not a model file (want .xmi or .xml)", filePath)
	}
	tree, err := l.rootTree(revision)
	if err != nil {
		return nil, err
	}
	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("gitsource: %s@%s: %w", filePath, revision, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// ListModelFiles returns every .xmi/.xml file below dirPath at revision, the
// set a caller can then pass one by one to ReadFile.
func (l *Loader) ListModelFiles(revision, dirPath string) ([]string, error) {
	tree, err := l.subtree(revision, dirPath)
	if err != nil {
		return nil, err
	}
	var paths []string
	iter := tree.Files()
	defer iter.Close()
	err = iter.ForEach(func(f *object.File) error {
		if modelExtensions[strings.ToLower(path.Ext(f.Name))] {
			paths = append(paths, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitsource: list %s@%s: %w", dirPath, revision, err)
	}
	return paths, nil
}

// ReadModelFiles lists every model file below dirPath at revision and reads
// each one, returning a path-to-content map. A single file that fails to
// decode as Git blob content aborts the whole batch, since a caller feeding
// the result straight to a schema loader wants all-or-nothing.
func (l *Loader) ReadModelFiles(revision, dirPath string) (map[string][]byte, error) {
	paths, err := l.ListModelFiles(revision, dirPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(paths))
	for _, p := range paths {
		content, err := l.ReadFile(revision, p)
		if err != nil {
			return nil, err
		}
		out[p] = content
	}
	return out, nil
}
