package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/konorlevich/sfms/internal/database"
)

type (
	File        = database.File
	FileContent = database.FileContent
)

// Container is a virtual filesystem whose files live as records in a relational store.
// Every operation that touches both tables runs in one transaction,
// writing File before FileContent.
type Container struct {
	repo  *database.Repository
	clock Clock
}

// New opens the store at location. With inMemory set the store is a private
// in-memory database, invisible to every other Container.
func New(location string, inMemory bool, opts ...Option) (*Container, error) {
	o := &options{clock: realClock{}}
	for _, opt := range opts {
		opt(o)
	}
	db, err := database.NewDb(database.Config{
		Location: location,
		InMemory: inMemory,
		Logger:   o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("can't open store %s: %w", location, err)
	}
	return &Container{repo: database.NewRepository(db), clock: o.clock}, nil
}

func (c *Container) Close() error {
	return database.Close(c.repo.DB())
}

// ListFiles returns every file under dirPath at any depth.
func (c *Container) ListFiles(ctx context.Context, dirPath string) ([]*File, error) {
	if err := ValidateAbsolutePath(dirPath); err != nil {
		return nil, err
	}
	files, err := c.repo.ListFiles(ctx, DirPrefix(dirPath))
	if err != nil {
		return nil, fmt.Errorf("can't list files in %s: %w", dirPath, err)
	}
	return files, nil
}

// GetFile returns the file at path, or nil when there is none.
func (c *Container) GetFile(ctx context.Context, path string) (*File, error) {
	if err := validateFilePath(path); err != nil {
		return nil, err
	}
	file, err := c.repo.GetFile(ctx, path)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't get file %s: %w", path, err)
	}
	return file, nil
}

// ReadContent returns the content of a file obtained from this container.
// ErrNotFound means the handle is stale: the file was deleted.
func (c *Container) ReadContent(ctx context.Context, file *File) (*FileContent, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: nil file", ErrArgumentInvalid)
	}
	content, err := c.repo.GetContent(ctx, file.ID)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w (%d): %s", ErrNotFound, file.ID, file.FilePath)
	}
	if err != nil {
		return nil, fmt.Errorf("can't read file %s: %w", file.FilePath, err)
	}
	return content, nil
}

// Touch creates an empty file at path, or bumps its modification time if it exists.
func (c *Container) Touch(ctx context.Context, path string) (*File, error) {
	if err := validateFilePath(path); err != nil {
		return nil, err
	}
	file, err := c.GetFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return c.createEmptyFile(ctx, path)
	}

	now := c.now()
	n, err := c.repo.TouchFile(ctx, file.ID, now)
	if err != nil {
		return nil, fmt.Errorf("can't touch %s: %w", path, err)
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: can't update modified time of %s", ErrDatabaseFailed, path)
	}
	file.ModifiedDateTime = now
	return file, nil
}

// Write replaces the content of the file at path with everything read from r,
// creating the file first when needed.
func (c *Container) Write(ctx context.Context, path string, r io.Reader, opts ...WriteOption) (file *File, err error) {
	if err := validateFilePath(path); err != nil {
		return nil, err
	}
	o := &writeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.preservePosition {
		seeker, ok := r.(io.Seeker)
		if !ok {
			return nil, fmt.Errorf("%w: reader is not seekable, its position can't be preserved", ErrArgumentInvalid)
		}
		pos, seekErr := seeker.Seek(0, io.SeekCurrent)
		if seekErr != nil {
			return nil, fmt.Errorf("%w: reader is not seekable: %w", ErrArgumentInvalid, seekErr)
		}
		defer func() {
			if _, seekErr := seeker.Seek(pos, io.SeekStart); seekErr != nil && err == nil {
				file, err = nil, fmt.Errorf("can't restore reader position: %w", seekErr)
			}
		}()
	}

	file, err = c.Touch(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("can't read content for %s: %w", path, err)
	}

	now := c.now()
	err = c.repo.Transaction(ctx, func(tx *database.Repository) error {
		n, err := tx.UpdateFileSize(ctx, file.ID, int64(len(data)), now)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: can't update file %s", ErrDatabaseFailed, path)
		}
		n, err = tx.UpdateContent(ctx, file.ID, data)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: can't update content of %s", ErrDatabaseFailed, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("can't write %s: %w", path, err)
	}
	file.OriginalFileSize = int64(len(data))
	file.ModifiedDateTime = now
	return file, nil
}

// Move changes the path of the file at srcPath to dstPath.
// The modification time is kept: the content did not change.
func (c *Container) Move(ctx context.Context, srcPath, dstPath string) (*File, error) {
	if err := validateFilePath(srcPath); err != nil {
		return nil, err
	}
	if err := validateFilePath(dstPath); err != nil {
		return nil, err
	}
	src, err := c.GetFile(ctx, srcPath)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, srcPath)
	}
	dst, err := c.GetFile(ctx, dstPath)
	if err != nil {
		return nil, err
	}
	if dst != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dstPath)
	}

	n, err := c.repo.MoveFile(ctx, src.ID, dstPath)
	if errors.Is(err, database.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dstPath)
	}
	if err != nil {
		return nil, fmt.Errorf("can't move %s to %s: %w", srcPath, dstPath, err)
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: can't move %s to %s", ErrDatabaseFailed, srcPath, dstPath)
	}
	src.FilePath = dstPath
	return src, nil
}

// Delete removes the file at path together with its content and returns its last state.
func (c *Container) Delete(ctx context.Context, path string) (*File, error) {
	if err := ValidateFileName(path); err != nil {
		return nil, err
	}
	file, err := c.GetFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	err = c.repo.Transaction(ctx, func(tx *database.Repository) error {
		n, err := tx.RemoveFile(ctx, file.ID)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: can't delete %s", ErrDatabaseFailed, path)
		}
		_, err = tx.RemoveContent(ctx, file.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("can't delete %s: %w", path, err)
	}
	return file, nil
}

// SetMeta replaces the free-form annotation of the file at path.
func (c *Container) SetMeta(ctx context.Context, path string, meta string) (*File, error) {
	if err := ValidateFileName(path); err != nil {
		return nil, err
	}
	file, err := c.GetFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	now := c.now()
	n, err := c.repo.SetFileMeta(ctx, file.ID, meta, now)
	if err != nil {
		return nil, fmt.Errorf("can't set meta of %s: %w", path, err)
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: can't update meta of %s", ErrDatabaseFailed, path)
	}
	file.Meta = meta
	file.ModifiedDateTime = now
	return file, nil
}

func (c *Container) createEmptyFile(ctx context.Context, path string) (*File, error) {
	file := database.NewFile(path, c.now())
	err := c.repo.Transaction(ctx, func(tx *database.Repository) error {
		n, err := tx.CreateFile(ctx, file)
		if errors.Is(err, database.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: can't insert file %s", ErrDatabaseFailed, path)
		}
		n, err = tx.CreateContent(ctx, &FileContent{FileID: file.ID})
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: can't insert content of %s", ErrDatabaseFailed, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("can't create %s: %w", path, err)
	}
	if file.ID == 0 {
		return nil, fmt.Errorf("%w: no id assigned to %s", ErrDatabaseFailed, path)
	}
	return file, nil
}

func (c *Container) now() time.Time {
	return c.clock.Now().UTC()
}
