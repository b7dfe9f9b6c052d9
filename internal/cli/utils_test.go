package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/biblio/internal/identity"
	"github.com/hyperjump/biblio/internal/indexer"
	"github.com/hyperjump/biblio/internal/models"
)

func TestWriteSearchResults_text(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "phonon",
		Predicate: "(document_id LIKE '%')\nAND ((content LIKE '%phonon%'))",
		Results: []*models.SearchResult{
			{Title: "Intro", Author: "Alice", ID: "1", Pages: "1", Path: "/c/1$Intro$Alice$.pdf"},
			{Title: "Other", Author: "Bob", ID: "2", Pages: "1, 3", Path: "/c/2$Other$Bob$.pdf"},
		},
		Total: 2,
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "sql:\n(document_id LIKE '%')\nAND ((content LIKE '%phonon%'))\n\n" +
		"1\nIntro\nAlice\n1\n1\n/c/1$Intro$Alice$.pdf\n\n" +
		"2\nOther\nBob\n2\n1, 3\n/c/2$Other$Bob$.pdf\n\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteSearchResults_noResult(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.SearchResponse{Predicate: "p", Results: []*models.SearchResult{}, NoResults: true}
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "no result\n") {
		t.Errorf("expected no-result message, got %q", buf.String())
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "electron, phonon",
		QueryTime: 42,
		Results:   []*models.SearchResult{{ID: "1", Pages: "1", PageNumbers: []int{1}}},
		Total:     1,
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != 42 || len(decoded.Results) != 1 || decoded.Results[0].ID != "1" {
		t.Errorf("unexpected decoded response: %+v", decoded)
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	progress := ProgressPrinter(&buf)
	progress(0, 2, "Intro")
	progress(1, 2, "Other")
	progress(2, 2, "")
	want := "writing start\n50.00% writing: Intro\n100.00% writing: Other\nwriting completed\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestProgressPrinter_emptyTitle(t *testing.T) {
	var buf bytes.Buffer
	progress := ProgressPrinter(&buf)
	progress(0, 2, "")
	progress(1, 2, "Second")
	progress(2, 2, "")
	want := "writing start\n50.00% writing: \n100.00% writing: Second\nwriting completed\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteIngestReport_text(t *testing.T) {
	report := &models.IngestReport{
		RunID:      "run-1",
		Discovered: 4,
		Added:      []string{"1"},
		Moved:      []models.PathChange{{ID: "7", OldPath: "/a/7$L$K$.pdf", NewPath: "/b/7$L$K$.pdf"}},
		Unchanged:  1,
		Malformed:  []models.FileError{{Path: "/a/scan.pdf", Error: "malformed identity"}},
		Pages:      2,
	}
	var buf bytes.Buffer
	if err := WriteIngestReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"update path\n old:/a/7$L$K$.pdf\n new:/b/7$L$K$.pdf\n",
		"skip (malformed filename): /a/scan.pdf",
		"4 discovered, 1 added (2 pages), 1 moved, 1 unchanged, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePlan_text(t *testing.T) {
	plan := &indexer.Plan{Files: []indexer.PlannedFile{
		{Path: "/a/1$I$A$.pdf", Identity: identity.Identity{ID: "1"}, Class: models.New},
		{Path: "/b/7$L$K$.pdf", Identity: identity.Identity{ID: "7"}, Class: models.Moved, StoredPath: "/a/7$L$K$.pdf"},
	}}
	var buf bytes.Buffer
	if err := WritePlan(&buf, plan, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "new       /a/1$I$A$.pdf\nmoved     /b/7$L$K$.pdf (from /a/7$L$K$.pdf)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteDocument(t *testing.T) {
	var buf bytes.Buffer
	doc := &models.Document{ID: "1", Title: "Intro", Author: "Alice", Path: "/c/1$Intro$Alice$.pdf"}
	pages := []*models.Page{{DocumentID: "1", Number: 1, Content: "electron\nphonon   coupling"}, {DocumentID: "1", Number: 2}}
	WriteDocument(&buf, doc, pages, 12)
	out := buf.String()
	if !strings.Contains(out, "[1] electron pho...") || !strings.Contains(out, "[2] \n") || !strings.Contains(out, "Pages:  2") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
