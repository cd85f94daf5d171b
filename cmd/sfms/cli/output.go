package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/konorlevich/sfms/internal/container"
)

const timeLayout = "2006-01-02 15:04:05"

// fileView is the printable form of a file record.
type fileView struct {
	ID       int64     `json:"id"       yaml:"id"`
	Path     string    `json:"path"     yaml:"path"`
	Size     int64     `json:"size"     yaml:"size"`
	Created  time.Time `json:"created"  yaml:"created"`
	Modified time.Time `json:"modified" yaml:"modified"`
	Meta     string    `json:"meta"     yaml:"meta"`
}

func newFileView(f *container.File) fileView {
	return fileView{
		ID:       f.ID,
		Path:     f.FilePath,
		Size:     f.OriginalFileSize,
		Created:  f.CreateDateTime,
		Modified: f.ModifiedDateTime,
		Meta:     f.Meta,
	}
}

func formatSize(size int64, human bool) string {
	if human {
		return humanize.IBytes(uint64(size))
	}
	return strconv.FormatInt(size, 10)
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func printFileTable(w io.Writer, files []*container.File, human bool) {
	table := newTable(w)
	table.SetHeader([]string{"ID", "Size", "Modified", "Path", "Meta"})
	for _, f := range files {
		table.Append([]string{
			strconv.FormatInt(f.ID, 10),
			formatSize(f.OriginalFileSize, human),
			f.ModifiedDateTime.Format(timeLayout),
			f.FilePath,
			f.Meta,
		})
	}
	table.Render()
}

func printFile(w io.Writer, f *container.File, format string, human bool) error {
	v := newFileView(f)
	switch strings.ToLower(format) {
	case "", "table":
		table := newTable(w)
		table.SetColumnSeparator(":")
		table.AppendBulk([][]string{
			{"ID", strconv.FormatInt(v.ID, 10)},
			{"Path", v.Path},
			{"Size", formatSize(v.Size, human)},
			{"Created", v.Created.Format(timeLayout)},
			{"Modified", v.Modified.Format(timeLayout)},
			{"Meta", v.Meta},
		})
		table.Render()
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", format)
	}
}
