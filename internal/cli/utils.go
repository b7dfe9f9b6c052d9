// Package cli renders search results, ingestion reports and corpus status for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/biblio/internal/indexer"
	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes the compiled predicate followed by numbered result
// blocks (title, author, id, pages, path), or "no result".
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "sql:\n%s\n\n", response.Predicate)
	if response.NoResults {
		fmt.Fprintln(w, "no result")
		return nil
	}
	for i, r := range response.Results {
		fmt.Fprintf(w, "%d\n%s\n%s\n%s\n%s\n%s\n\n", i+1, r.Title, r.Author, r.ID, r.Pages, r.Path)
	}
	return nil
}

// ProgressPrinter returns an indexer progress callback that prints
// "writing start", one percentage line per document, and "writing completed".
func ProgressPrinter(w io.Writer) indexer.ProgressFunc {
	return func(done, total int, title string) {
		if done >= total {
			fmt.Fprintln(w, "writing completed")
			return
		}
		if done == 0 {
			fmt.Fprintln(w, "writing start")
		}
		fmt.Fprintf(w, "%.2f%% writing: %s\n", float64(done+1)/float64(total)*100, title)
	}
}

// WriteIngestReport writes path updates, skipped files and a summary line.
func WriteIngestReport(w io.Writer, report *models.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	for _, m := range report.Moved {
		fmt.Fprintf(w, "update path\n old:%s\n new:%s\n", m.OldPath, m.NewPath)
	}
	writeFileErrors(w, "malformed filename", report.Malformed)
	writeFileErrors(w, "duplicate id", report.Duplicates)
	writeFileErrors(w, "extraction failed", report.Failed)
	fmt.Fprintf(w, "run %s: %d discovered, %d added (%d pages), %d moved, %d unchanged, %d skipped in %dms\n",
		report.RunID, report.Discovered, len(report.Added), report.Pages, len(report.Moved), report.Unchanged,
		len(report.Malformed)+len(report.Duplicates)+len(report.Failed), report.DurationMs)
	return nil
}

func writeFileErrors(w io.Writer, label string, errs []models.FileError) {
	for _, e := range errs {
		fmt.Fprintf(w, "skip (%s): %s\n  %s\n", label, e.Path, e.Error)
	}
}

// WritePlan writes what an ingestion run would do with each discovered file.
func WritePlan(w io.Writer, plan *indexer.Plan, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, plan)
	}
	for _, f := range plan.Files {
		switch f.Class {
		case models.Moved:
			fmt.Fprintf(w, "%-9s %s (from %s)\n", f.Class, f.Path, f.StoredPath)
		case models.Duplicate:
			fmt.Fprintf(w, "%-9s %s (id %s claimed by %s)\n", f.Class, f.Path, f.Identity.ID, f.StoredPath)
		default:
			fmt.Fprintf(w, "%-9s %s\n", f.Class, f.Path)
		}
	}
	writeFileErrors(w, "malformed filename", plan.Malformed)
	return nil
}

// WriteStatus writes corpus counts and the store location.
func WriteStatus(w io.Writer, st *models.CorpusStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:  %d\n", st.Documents)
	fmt.Fprintf(w, "Pages:      %d\n", st.Pages)
	fmt.Fprintf(w, "Database:   %s (%s)\n", st.DatabasePath, st.Driver)
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(st.DiskUsageBytes))
	return nil
}

// WriteDocument writes a document's metadata and a preview of each page.
func WriteDocument(w io.Writer, doc *models.Document, pages []*models.Page, previewLen int) {
	fmt.Fprintf(w, "ID:     %s\n", doc.ID)
	fmt.Fprintf(w, "Title:  %s\n", doc.Title)
	fmt.Fprintf(w, "Author: %s\n", doc.Author)
	fmt.Fprintf(w, "Path:   %s\n", doc.Path)
	fmt.Fprintf(w, "Pages:  %d\n", len(pages))
	for _, p := range pages {
		text := strings.Join(strings.Fields(p.Content), " ")
		fmt.Fprintf(w, "\n[%d] %s\n", p.Number, utils.Truncate(text, previewLen))
	}
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
