// Package output serializes article records to files: JSON for documents,
// CSV for spreadsheets and Markdown for reading.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/wxcrawl/cleaner"
	"github.com/use-agent/wxcrawl/models"
)

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

// FilePrefix starts every default export file name.
const FilePrefix = "wechat_articles_"

// CSVHeader lists the tabular columns in order.
var CSVHeader = []string{"title", "author", "publishTime", "summary", "articleUrl", "crawledAt", "imageCount"}

// ParseFormats expands a CLI format flag. "both" means JSON and CSV.
func ParseFormats(s string) ([]Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return []Format{FormatJSON}, nil
	case "csv":
		return []Format{FormatCSV}, nil
	case "both":
		return []Format{FormatJSON, FormatCSV}, nil
	case "md", "markdown":
		return []Format{FormatMarkdown}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use json, csv, both or md)", s)
	}
}

// DefaultFileName returns the timestamped base name, without extension.
func DefaultFileName(t time.Time) string {
	return FilePrefix + t.Format("2006-01-02_15-04-05")
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []*models.ArticleRecord) error {
	if records == nil {
		records = []*models.ArticleRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// WriteCSV writes one row per record under CSVHeader. The body markup is
// left out; the summary stands in for it.
func WriteCSV(w io.Writer, records []*models.ArticleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Title,
			r.Author,
			r.PublishTime,
			r.Summary,
			r.ArticleURL,
			r.CrawledAt.Format(time.RFC3339),
			strconv.Itoa(len(r.Images)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown renders each record as a titled section, separated by
// horizontal rules.
func WriteMarkdown(w io.Writer, records []*models.ArticleRecord, renderer *cleaner.MarkdownRenderer) error {
	if renderer == nil {
		renderer = cleaner.NewMarkdownRenderer()
	}
	for i, r := range records {
		body, err := renderer.Render(r.Content, domainOf(r.ArticleURL))
		if err != nil {
			return fmt.Errorf("render %s: %w", r.ArticleURL, err)
		}
		if i > 0 {
			if _, err := io.WriteString(w, "\n---\n\n"); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, "# %s\n\n%s · %s\n\n<%s>\n\n%s\n",
			r.Title, r.Author, r.PublishTime, r.ArticleURL, strings.TrimSpace(body))
		if err != nil {
			return err
		}
	}
	return nil
}

// Save writes records to dir/base.<ext> for every format and returns the
// written paths. dir is created when missing.
func Save(dir, base string, records []*models.ArticleRecord, formats ...Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	for _, f := range formats {
		path := filepath.Join(dir, base+"."+string(f))
		if err := saveOne(path, f, records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveOne(path string, f Format, records []*models.ArticleRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	switch f {
	case FormatJSON:
		err = WriteJSON(file, records)
	case FormatCSV:
		err = WriteCSV(file, records)
	case FormatMarkdown:
		err = WriteMarkdown(file, records, nil)
	default:
		err = fmt.Errorf("unsupported format %q", f)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Latest returns the newest default-named export of format f in dir.
// Timestamped names sort chronologically, so the last one wins.
func Latest(dir string, f Format) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, FilePrefix+"*."+string(f)))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", os.ErrNotExist
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
