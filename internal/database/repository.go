package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRecordNotFound = gorm.ErrRecordNotFound
	ErrDuplicatedKey  = gorm.ErrDuplicatedKey
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the gorm handle the repository runs on, a transaction inside Transaction.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn against a repository bound to a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *Repository) GetFile(ctx context.Context, path string) (*File, error) {
	f := &File{}
	return f, r.db.WithContext(ctx).Where("filePath = ?", path).Take(f).Error
}

// ListFiles returns the files whose path starts with prefix, ordered by path.
func (r *Repository) ListFiles(ctx context.Context, prefix string) ([]*File, error) {
	res := make([]*File, 0)
	q := r.db.WithContext(ctx).Where("filePath >= ?", prefix)
	if upper, ok := prefixUpperBound(prefix); ok {
		q = q.Where("filePath < ?", upper)
	}
	return res, q.Order("filePath").Find(&res).Error
}

// CreateFile inserts f and sets its ID.
func (r *Repository) CreateFile(ctx context.Context, f *File) (int64, error) {
	tx := r.db.WithContext(ctx).Create(f)
	return tx.RowsAffected, translate(tx.Error, f.FilePath)
}

func (r *Repository) CreateContent(ctx context.Context, c *FileContent) (int64, error) {
	if c.Data == nil {
		c.Data = []byte{}
	}
	tx := r.db.WithContext(ctx).Create(c)
	return tx.RowsAffected, translate(tx.Error, fmt.Sprintf("content of file %d", c.FileID))
}

func (r *Repository) GetContent(ctx context.Context, fileID int64) (*FileContent, error) {
	c := &FileContent{}
	if err := r.db.WithContext(ctx).Where("fileId = ?", fileID).Take(c).Error; err != nil {
		return nil, err
	}
	if c.Data == nil {
		c.Data = []byte{}
	}
	return c, nil
}

func (r *Repository) TouchFile(ctx context.Context, id int64, modified time.Time) (int64, error) {
	return r.updateFile(ctx, id, map[string]any{"modifiedDateTime": modified.UTC()}, "")
}

func (r *Repository) UpdateFileSize(ctx context.Context, id int64, size int64, modified time.Time) (int64, error) {
	return r.updateFile(ctx, id, map[string]any{
		"originalFileSize": size,
		"modifiedDateTime": modified.UTC(),
	}, "")
}

func (r *Repository) MoveFile(ctx context.Context, id int64, path string) (int64, error) {
	return r.updateFile(ctx, id, map[string]any{"filePath": path}, path)
}

func (r *Repository) SetFileMeta(ctx context.Context, id int64, meta string, modified time.Time) (int64, error) {
	return r.updateFile(ctx, id, map[string]any{
		"meta":             meta,
		"modifiedDateTime": modified.UTC(),
	}, "")
}

func (r *Repository) UpdateContent(ctx context.Context, fileID int64, data []byte) (int64, error) {
	if data == nil {
		data = []byte{}
	}
	tx := r.db.WithContext(ctx).
		Model(&FileContent{}).
		Where("fileId = ?", fileID).
		Update("data", data)
	return tx.RowsAffected, tx.Error
}

func (r *Repository) RemoveFile(ctx context.Context, id int64) (int64, error) {
	tx := r.db.WithContext(ctx).Delete(&File{}, id)
	return tx.RowsAffected, tx.Error
}

// RemoveContent deletes every content row of the file; there is one under normal operation.
func (r *Repository) RemoveContent(ctx context.Context, fileID int64) (int64, error) {
	tx := r.db.WithContext(ctx).Where("fileId = ?", fileID).Delete(&FileContent{})
	return tx.RowsAffected, tx.Error
}

func (r *Repository) updateFile(ctx context.Context, id int64, values map[string]any, key string) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&File{}).
		Where("id = ?", id).
		Updates(values)
	return tx.RowsAffected, translate(tx.Error, key)
}

// translate maps unique index violations to ErrDuplicatedKey whatever the driver reports.
func translate(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", ErrDuplicatedKey, key)
	}
	return err
}

// prefixUpperBound returns the smallest string greater than every string starting with prefix.
// Together with prefix it bounds a case-sensitive range scan that can use the path index.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
