// Package sample loads a file tree described in JSON into a container.
//
// The format is a single object mapping absolute paths to contents:
//
//	{"files": {"/aa/bb/a.1": "abc", "/aa/cc/a.2": ""}}
package sample

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/konorlevich/sfms/internal/container"
)

// DefaultConcurrency bounds the writes Populate runs at once.
const DefaultConcurrency = 4

type Tree struct {
	Files map[string]string `json:"files"`
}

// Load decodes a tree from r and validates every path in it.
func Load(r io.Reader) (*Tree, error) {
	t := &Tree{}
	if err := json.NewDecoder(r).Decode(t); err != nil {
		return nil, fmt.Errorf("can't decode sample: %w", err)
	}
	if t.Files == nil {
		t.Files = map[string]string{}
	}
	for p := range t.Files {
		if err := container.ValidateAbsolutePath(p); err != nil {
			return nil, err
		}
		if err := container.ValidateFileName(p); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func LoadFile(name string) (*Tree, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can't open sample %s: %w", name, err)
	}
	defer f.Close()
	return Load(f)
}

// Paths returns the paths of the tree in order.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CountFiles returns how many files of the tree live under dirPath at any depth.
func (t *Tree) CountFiles(dirPath string) int {
	prefix := container.DirPrefix(dirPath)
	count := 0
	for p := range t.Files {
		if strings.HasPrefix(p, prefix) {
			count++
		}
	}
	return count
}

// Content returns the original content of the file at path.
func (t *Tree) Content(path string) ([]byte, bool) {
	content, ok := t.Files[path]
	return []byte(content), ok
}

// Populate writes every file of the tree into c, at most concurrency at a time.
func (t *Tree) Populate(ctx context.Context, c *container.Container, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, p := range t.Paths() {
		p := p
		content := t.Files[p]
		eg.Go(func() error {
			if _, err := c.Write(ctx, p, strings.NewReader(content)); err != nil {
				return fmt.Errorf("can't populate %s: %w", p, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// NewContainer returns a private in-memory container holding the tree.
func (t *Tree) NewContainer(ctx context.Context, name string, opts ...container.Option) (*container.Container, error) {
	c, err := container.New(name, true, opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Populate(ctx, c, DefaultConcurrency); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
