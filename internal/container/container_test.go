package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	testDirPath          = "/aa/bb"
	testFilePath         = "/aa/bb/a.1"
	testFileContent      = "abc"
	testEmptyFilePath    = "/aa/cc/a.2"
	notExistDirPath      = "/xx/yy/zz"
	notExistFilePath     = testDirPath + "/a.2"
	invalidAbsolutePath  = "not absolute/path"
	endWithSeparatorPath = "/aa/bb/"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// setup returns a private in-memory container holding the sample tree.
func setup(t *testing.T) (*Container, *stubClock) {
	t.Helper()
	clock := newStubClock()
	c, err := New("container_test", true, WithClock(clock))
	if err != nil {
		t.Fatalf("can't create container: %s", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	if _, err := c.Write(ctx, testFilePath, strings.NewReader(testFileContent)); err != nil {
		t.Fatalf("can't prepare test: %s", err)
	}
	if _, err := c.Touch(ctx, testEmptyFilePath); err != nil {
		t.Fatalf("can't prepare test: %s", err)
	}
	return c, clock
}

func countRows(t *testing.T, c *Container, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.repo.DB().Model(model).Count(&n).Error)
	return n
}

func assertExist(t *testing.T, c *Container, path string) *File {
	t.Helper()
	f, err := c.GetFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, f, "%s should exist", path)
	return f
}

func assertNotExist(t *testing.T, c *Container, path string) {
	t.Helper()
	f, err := c.GetFile(context.Background(), path)
	require.NoError(t, err)
	assert.Nil(t, f, "%s should not exist", path)
}

func TestContainer_InvalidPaths(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	ops := map[string]func(path string) error{
		"ListFiles": func(p string) error { _, err := c.ListFiles(ctx, p); return err },
		"GetFile":   func(p string) error { _, err := c.GetFile(ctx, p); return err },
		"Touch":     func(p string) error { _, err := c.Touch(ctx, p); return err },
		"Write": func(p string) error {
			_, err := c.Write(ctx, p, strings.NewReader("data"))
			return err
		},
		"MoveSrc": func(p string) error { _, err := c.Move(ctx, p, notExistFilePath); return err },
		"MoveDst": func(p string) error { _, err := c.Move(ctx, testFilePath, p); return err },
		"MoveDstMissingSrc": func(p string) error {
			_, err := c.Move(ctx, notExistFilePath, p)
			return err
		},
		"Delete":  func(p string) error { _, err := c.Delete(ctx, p); return err },
		"SetMeta": func(p string) error { _, err := c.SetMeta(ctx, p, "meta"); return err },
	}

	for name, op := range ops {
		t.Run(name+" absolute path", func(t *testing.T) {
			err := op(invalidAbsolutePath)
			if !errors.Is(err, ErrInvalidAbsolutePath) {
				t.Errorf("%s() error = %v, want %v", name, err, ErrInvalidAbsolutePath)
			}
		})
		if name == "ListFiles" {
			continue
		}
		t.Run(name+" file name", func(t *testing.T) {
			err := op(endWithSeparatorPath)
			if !errors.Is(err, ErrInvalidFileName) {
				t.Errorf("%s() error = %v, want %v", name, err, ErrInvalidFileName)
			}
		})
	}

	t.Run("no mutation", func(t *testing.T) {
		assert.Equal(t, int64(2), countRows(t, c, &File{}))
		assert.Equal(t, int64(2), countRows(t, c, &FileContent{}))
		f := assertExist(t, c, testFilePath)
		assert.Equal(t, "", f.Meta)
	})
}

func TestContainer_ListFilesSampleTree(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	files, err := c.ListFiles(ctx, testDirPath)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, testFilePath, files[0].FilePath)

	files, err = c.ListFiles(ctx, "/aa")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestContainer_ListFiles(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	for _, p := range []string{"/aa/bbx/sibling", "/AA/bb/upper", "/a_/wildcard"} {
		_, err := c.Touch(ctx, p)
		require.NoError(t, err)
	}

	tests := []struct {
		dir  string
		want []string
	}{
		{dir: testDirPath, want: []string{testFilePath}},
		{dir: testDirPath + "/", want: []string{testFilePath}},
		{dir: testDirPath + "//", want: []string{testFilePath}},
		{dir: "/aa", want: []string{testFilePath, "/aa/bbx/sibling", testEmptyFilePath}},
		{dir: "/AA", want: []string{"/AA/bb/upper"}},
		{dir: "/a%", want: []string{}},
		{dir: "/a_", want: []string{"/a_/wildcard"}},
		{dir: notExistDirPath, want: []string{}},
		{dir: "/", want: []string{"/AA/bb/upper", "/a_/wildcard", testFilePath, "/aa/bbx/sibling", testEmptyFilePath}},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			files, err := c.ListFiles(ctx, tt.dir)
			if err != nil {
				t.Fatalf("ListFiles() error = %v", err)
			}
			require.NotNil(t, files)
			got := make([]string, 0, len(files))
			for _, f := range files {
				got = append(got, f.FilePath)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
				t.Errorf("ListFiles(%q):\n%s", tt.dir, diff)
			}
		})
	}
}

func TestContainer_GetFile(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	notExist, err := c.GetFile(ctx, notExistFilePath)
	assert.NoError(t, err)
	assert.Nil(t, notExist)

	file, err := c.GetFile(ctx, testFilePath)
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, int64(len(testFileContent)), file.OriginalFileSize)
	assert.Equal(t, testFilePath, file.FilePath)
	assert.NotZero(t, file.ID)
}

func TestContainer_ReadContent(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	file := assertExist(t, c, testFilePath)
	content, err := c.ReadContent(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, []byte(testFileContent), content.Data)
	assert.Equal(t, file.ID, content.FileID)

	empty := assertExist(t, c, testEmptyFilePath)
	content, err = c.ReadContent(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, content.Data)

	_, err = c.ReadContent(ctx, nil)
	assert.ErrorIs(t, err, ErrArgumentInvalid)
}

func TestContainer_Touch(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		c, clock := setup(t)
		ctx := context.Background()
		assertNotExist(t, c, notExistFilePath)

		touched, err := c.Touch(ctx, notExistFilePath)
		require.NoError(t, err)
		assert.NotZero(t, touched.ID)
		assert.True(t, touched.CreateDateTime.Equal(touched.ModifiedDateTime))
		assert.True(t, touched.CreateDateTime.Equal(clock.Now()))
		assert.Equal(t, int64(0), touched.OriginalFileSize)
		assert.Equal(t, "", touched.Meta)

		stored := assertExist(t, c, notExistFilePath)
		assert.Equal(t, touched.ID, stored.ID)
		assert.WithinDuration(t, stored.CreateDateTime, stored.ModifiedDateTime, time.Second)

		content, err := c.ReadContent(ctx, stored)
		require.NoError(t, err)
		assert.Empty(t, content.Data)
		assert.Equal(t, int64(3), countRows(t, c, &File{}))
		assert.Equal(t, int64(3), countRows(t, c, &FileContent{}))
	})

	t.Run("modified time", func(t *testing.T) {
		c, clock := setup(t)
		ctx := context.Background()
		before := assertExist(t, c, testFilePath)

		clock.Advance(time.Second)
		touched, err := c.Touch(ctx, testFilePath)
		require.NoError(t, err)
		assert.Equal(t, before.ID, touched.ID)
		assert.True(t, touched.ModifiedDateTime.After(before.ModifiedDateTime))
		assert.GreaterOrEqual(t, touched.ModifiedDateTime.Sub(touched.CreateDateTime), time.Second)

		stored := assertExist(t, c, testFilePath)
		assert.True(t, stored.ModifiedDateTime.Equal(clock.Now()))
		assert.True(t, stored.CreateDateTime.Equal(before.CreateDateTime))
		assert.Equal(t, before.OriginalFileSize, stored.OriginalFileSize)

		content, err := c.ReadContent(ctx, stored)
		require.NoError(t, err)
		assert.Equal(t, []byte(testFileContent), content.Data)
	})

	t.Run("create conflict", func(t *testing.T) {
		c, _ := setup(t)
		_, err := c.createEmptyFile(context.Background(), testFilePath)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, int64(2), countRows(t, c, &File{}))
		assert.Equal(t, int64(2), countRows(t, c, &FileContent{}))
	})

	t.Run("concurrent create", func(t *testing.T) {
		c, _ := setup(t)
		ctx := context.Background()
		eg := &errgroup.Group{}
		for i := 0; i < 8; i++ {
			eg.Go(func() error {
				if _, err := c.Touch(ctx, notExistFilePath); err != nil && !errors.Is(err, ErrAlreadyExists) {
					return err
				}
				return nil
			})
		}
		require.NoError(t, eg.Wait())
		assert.Equal(t, int64(3), countRows(t, c, &File{}))
		assert.Equal(t, int64(3), countRows(t, c, &FileContent{}))
	})
}

type brokenReader struct{}

func (brokenReader) Read(_ []byte) (int, error) {
	return 0, errors.New("test error")
}

// brokenReadSeeker seeks fine but fails every read.
type brokenReadSeeker struct {
	pos int64
}

func (r *brokenReadSeeker) Read(_ []byte) (int, error) {
	r.pos += 2
	return 0, errors.New("test error")
}

func (r *brokenReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		r.pos = offset
	case io.SeekCurrent:
		r.pos += offset
	default:
		return 0, errors.New("unsupported whence")
	}
	return r.pos, nil
}

func TestContainer_Write(t *testing.T) {
	src := []byte{0x11, 0xcf, 0xd1, 0x04}

	t.Run("create and overwrite", func(t *testing.T) {
		c, _ := setup(t)
		ctx := context.Background()
		assertNotExist(t, c, notExistFilePath)

		stream := bytes.NewReader(src)
		file, err := c.Write(ctx, notExistFilePath, stream, PreservePosition())
		require.NoError(t, err)
		assert.Equal(t, int64(len(src)), file.OriginalFileSize)
		content, err := c.ReadContent(ctx, file)
		require.NoError(t, err)
		assert.Equal(t, src, content.Data)

		other := assertExist(t, c, testFilePath)
		otherContent, err := c.ReadContent(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, []byte(testFileContent), otherContent.Data)

		// the position was preserved, so the same stream writes the same bytes again
		file, err = c.Write(ctx, notExistFilePath, stream, PreservePosition())
		require.NoError(t, err)
		content, err = c.ReadContent(ctx, file)
		require.NoError(t, err)
		assert.Equal(t, src, content.Data)

		file, err = c.Write(ctx, notExistFilePath, bytes.NewReader(src[:1]))
		require.NoError(t, err)
		assert.Equal(t, int64(1), file.OriginalFileSize)
		content, err = c.ReadContent(ctx, file)
		require.NoError(t, err)
		assert.Equal(t, src[:1], content.Data)

		stored := assertExist(t, c, notExistFilePath)
		assert.Equal(t, int64(1), stored.OriginalFileSize)
	})

	t.Run("modified time", func(t *testing.T) {
		c, clock := setup(t)
		before := assertExist(t, c, testFilePath)
		clock.Advance(time.Minute)
		file, err := c.Write(context.Background(), testFilePath, bytes.NewReader(src))
		require.NoError(t, err)
		assert.True(t, file.ModifiedDateTime.After(before.ModifiedDateTime))
		assert.True(t, file.CreateDateTime.Equal(before.CreateDateTime))
	})

	t.Run("preserve position from the middle", func(t *testing.T) {
		c, _ := setup(t)
		stream := bytes.NewReader(src)
		_, err := stream.Seek(1, io.SeekStart)
		require.NoError(t, err)

		file, err := c.Write(context.Background(), notExistFilePath, stream, PreservePosition())
		require.NoError(t, err)
		assert.Equal(t, int64(len(src)-1), file.OriginalFileSize)
		pos, err := stream.Seek(0, io.SeekCurrent)
		require.NoError(t, err)
		assert.Equal(t, int64(1), pos)
	})

	t.Run("not seekable", func(t *testing.T) {
		c, _ := setup(t)
		_, err := c.Write(context.Background(), notExistFilePath, io.MultiReader(bytes.NewReader(src)), PreservePosition())
		assert.ErrorIs(t, err, ErrArgumentInvalid)
		assertNotExist(t, c, notExistFilePath)
	})

	t.Run("position restored on failure", func(t *testing.T) {
		c, _ := setup(t)
		stream := &brokenReadSeeker{pos: 3}
		_, err := c.Write(context.Background(), testFilePath, stream, PreservePosition())
		assert.Error(t, err)
		assert.Equal(t, int64(3), stream.pos)

		content, err := c.ReadContent(context.Background(), assertExist(t, c, testFilePath))
		require.NoError(t, err)
		assert.Equal(t, []byte(testFileContent), content.Data)
	})

	t.Run("read failure keeps content", func(t *testing.T) {
		c, _ := setup(t)
		_, err := c.Write(context.Background(), testFilePath, brokenReader{})
		assert.Error(t, err)
		content, err := c.ReadContent(context.Background(), assertExist(t, c, testFilePath))
		require.NoError(t, err)
		assert.Equal(t, []byte(testFileContent), content.Data)
	})
}

func TestContainer_Move(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()
	original := assertExist(t, c, testFilePath)
	assertNotExist(t, c, notExistFilePath)

	tests := []struct {
		name    string
		src     string
		dst     string
		wantErr error
	}{
		{name: "missing source", src: notExistFilePath, dst: testFilePath, wantErr: ErrNotFound},
		{name: "same path", src: testFilePath, dst: testFilePath, wantErr: ErrAlreadyExists},
		{name: "existing destination", src: testFilePath, dst: testEmptyFilePath, wantErr: ErrAlreadyExists},
		{name: "success", src: testFilePath, dst: notExistFilePath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(time.Second)
			file, err := c.Move(ctx, tt.src, tt.dst)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Move() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			assert.Equal(t, tt.dst, file.FilePath)
			assert.Equal(t, original.ID, file.ID)
		})
	}

	assertNotExist(t, c, testFilePath)
	moved := assertExist(t, c, notExistFilePath)
	assert.Equal(t, original.ID, moved.ID)
	assert.True(t, moved.ModifiedDateTime.Equal(original.ModifiedDateTime))
	content, err := c.ReadContent(ctx, moved)
	require.NoError(t, err)
	assert.Equal(t, []byte(testFileContent), content.Data)
}

func TestContainer_Delete(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	src := assertExist(t, c, testFilePath)
	_, err := c.ReadContent(ctx, src)
	require.NoError(t, err)

	deleted, err := c.Delete(ctx, testFilePath)
	require.NoError(t, err)
	if diff := cmp.Diff(src, deleted); diff != "" {
		t.Errorf("Delete():\n%s", diff)
	}
	assertNotExist(t, c, testFilePath)

	_, err = c.ReadContent(ctx, deleted)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Delete(ctx, testFilePath)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, int64(1), countRows(t, c, &File{}))
	assert.Equal(t, int64(1), countRows(t, c, &FileContent{}))
}

func TestContainer_SetMeta(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()
	const meta = "blabla"

	_, err := c.SetMeta(ctx, notExistFilePath, "")
	assert.ErrorIs(t, err, ErrNotFound)

	file := assertExist(t, c, testFilePath)
	assert.Equal(t, "", file.Meta)

	clock.Advance(time.Second)
	file, err = c.SetMeta(ctx, testFilePath, meta)
	require.NoError(t, err)
	assert.Equal(t, meta, file.Meta)

	file = assertExist(t, c, testFilePath)
	assert.Equal(t, meta, file.Meta)
	assert.True(t, file.ModifiedDateTime.Equal(clock.Now()))

	_, err = c.SetMeta(ctx, testFilePath, "")
	require.NoError(t, err)
	assert.Equal(t, "", assertExist(t, c, testFilePath).Meta)
}

func TestContainer_InMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	first, err := New("isolated", true)
	require.NoError(t, err)
	defer first.Close()
	second, err := New("isolated", true)
	require.NoError(t, err)
	defer second.Close()

	_, err = first.Touch(ctx, testFilePath)
	require.NoError(t, err)

	assertExist(t, first, testFilePath)
	assertNotExist(t, second, testFilePath)
}

func TestContainer_Persistent(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "persistent.db")

	c, err := New(location, false)
	require.NoError(t, err)
	_, err = c.Write(ctx, testFilePath, strings.NewReader(testFileContent))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := New(location, false)
	require.NoError(t, err)
	defer reopened.Close()
	file := assertExist(t, reopened, testFilePath)
	content, err := reopened.ReadContent(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, []byte(testFileContent), content.Data)
}
