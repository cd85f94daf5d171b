package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/konorlevich/sfms/internal/container"
)

var (
	ErrCantCreateExportDir = errors.New("can't create export dir")
	ErrCantCreateFile      = errors.New("can't create exported file")
	ErrCantWriteFile       = errors.New("can't write exported file")
	ErrCantReadContent     = errors.New("can't read file content")
	ErrUnsafePath          = errors.New("path leaves the export dir")
)

// Exporter copies container files into a host directory, keeping their layout.
type Exporter struct {
	path string
	l    *log.Entry
	open func(name string) (io.WriteCloser, error)
}

func NewExporter(basePath string, l *log.Entry) (*Exporter, error) {
	basePath = filepath.Clean(basePath)
	if err := os.MkdirAll(basePath, fs.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCantCreateExportDir, err)
	}
	return &Exporter{
		path: basePath,
		l:    l.WithField("export_base_path", basePath),
		open: createFile,
	}, nil
}

func createFile(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// Export writes every file under dirPath and returns how many there were.
func (e *Exporter) Export(ctx context.Context, c *container.Container, dirPath string, concurrency int) (int, error) {
	files, err := c.ListFiles(ctx, dirPath)
	if err != nil {
		return 0, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, f := range files {
		f := f
		eg.Go(func() error {
			return e.exportFile(ctx, c, f)
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return len(files), nil
}

func (e *Exporter) target(filePath string) (string, error) {
	target := filepath.Join(e.path, filepath.FromSlash(filePath))
	rel, err := filepath.Rel(e.path, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, filePath)
	}
	return target, nil
}

func (e *Exporter) exportFile(ctx context.Context, c *container.Container, f *container.File) (err error) {
	l := e.l.WithField("path", f.FilePath)

	target, err := e.target(f.FilePath)
	if err != nil {
		l.WithError(err).Error(ErrUnsafePath)
		return err
	}
	content, err := c.ReadContent(ctx, f)
	if err != nil {
		l.WithError(err).Error(ErrCantReadContent)
		return fmt.Errorf("%w: %w", ErrCantReadContent, err)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
		l.WithField("export_dir", dir).WithError(err).Error(ErrCantCreateExportDir)
		return fmt.Errorf("%w: %w", ErrCantCreateExportDir, err)
	}

	out, err := e.open(target)
	if err != nil {
		l.WithField("target", target).WithError(err).Error(ErrCantCreateFile)
		return fmt.Errorf("%w: %w", ErrCantCreateFile, err)
	}
	defer func(out io.WriteCloser) {
		if closeErr := out.Close(); closeErr != nil {
			l.WithError(closeErr).Error(ErrCantWriteFile)
			if err == nil {
				err = fmt.Errorf("%w: %w", ErrCantWriteFile, closeErr)
			}
		}
	}(out)

	if _, err := out.Write(content.Data); err != nil {
		l.WithError(err).Error(ErrCantWriteFile)
		return fmt.Errorf("%w: %w", ErrCantWriteFile, err)
	}
	l.WithField("size", len(content.Data)).Debug("file exported")
	return nil
}
