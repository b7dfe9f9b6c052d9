package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// collect runs EachPageBytes and returns page texts, failing on numbering gaps.
func collect(t *testing.T, content []byte, ext string) []string {
	t.Helper()
	var pages []string
	err := NewExtractor().EachPageBytes(context.Background(), content, ext, func(n int, text string) error {
		if n != len(pages)+1 {
			t.Fatalf("page number %d after %d pages", n, len(pages))
		}
		pages = append(pages, text)
		return nil
	})
	if err != nil {
		t.Fatalf("EachPageBytes(%s): %v", ext, err)
	}
	return pages
}

func TestEachPageBytes_plain(t *testing.T) {
	got := collect(t, []byte("Hello world\nLine 2"), ".txt")
	if !reflect.DeepEqual(got, []string{"Hello world\nLine 2"}) {
		t.Errorf("got %q", got)
	}
}

func TestEachPageBytes_plainFormFeedPages(t *testing.T) {
	got := collect(t, []byte("electron phonon coupling\funrelated text\f"), ".txt")
	want := []string{"electron phonon coupling", "unrelated text", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEachPageBytes_plainInvalidUTF8(t *testing.T) {
	got := collect(t, []byte("hello\x80world"), ".rst")
	if got[0] != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestEachPageBytes_excelSheetPerPage(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	if _, err := f.NewSheet("Second"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Second", "A1", "More")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got := collect(t, buf.Bytes(), ".xlsx")
	want := []string{"Title\nValue 1\tValue 2", "More"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

// minimalDocx returns a minimal .docx zip bytes with word/document.xml containing the given text in <w:t> tags.
func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestEachPageBytes_docx(t *testing.T) {
	got := collect(t, minimalDocx("Searchable docx content"), ".docx")
	if !reflect.DeepEqual(got, []string{"Searchable docx content"}) {
		t.Errorf("got %q", got)
	}
}

func TestEachPageBytes_docxContentTypesReversedOrder(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/>
</Types>`))
	fw, _ := w.Create("word/document3.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Reversed order test</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()

	got := collect(t, buf.Bytes(), ".docx")
	if got[0] != "Reversed order test" {
		t.Errorf("got %q", got)
	}
}

func TestEachPageBytes_decodesXMLEntities(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("ppt/slides/slide1.xml")
	_, _ = fw.Write([]byte(`<p:sld><a:t>AT&amp;T &lt;R&amp;D&gt;</a:t><a:t>caf&#233;</a:t></p:sld>`))
	_ = w.Close()

	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"docx", minimalDocx("AT&amp;T &lt;R&amp;D&gt; &quot;q&quot;"), ".docx", `AT&T <R&D> "q"`},
		{"pptx", buf.Bytes(), ".pptx", "AT&T <R&D> café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.content, tt.ext)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("got %q, want [%q]", got, tt.want)
			}
		})
	}
}

func TestEachPageBytes_docxNotZip(t *testing.T) {
	err := NewExtractor().EachPageBytes(context.Background(), []byte("not a zip"), ".docx", func(int, string) error { return nil })
	if err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestEachPageBytes_pptxSlidesInNumericOrder(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, s := range []struct{ name, text string }{
		{"ppt/slides/slide10.xml", "tenth"},
		{"ppt/slides/slide2.xml", "second"},
		{"ppt/slides/_rels/slide1.xml.rels", "ignored"},
		{"ppt/slides/slide1.xml", "first"},
	} {
		fw, _ := w.Create(s.name)
		_, _ = fw.Write([]byte(`<p:sld><a:t>` + s.text + `</a:t></p:sld>`))
	}
	_ = w.Close()

	got := collect(t, buf.Bytes(), ".pptx")
	want := []string{"first", "second", "tenth"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

// odfPackage returns a zip holding content.xml with the given office body.
func odfPackage(body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("content.xml")
	_, _ = fw.Write([]byte(`<office:document-content><office:body>` + body + `</office:body></office:document-content>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestEachPageBytes_odpSlidePerPage(t *testing.T) {
	body := `<office:presentation>` +
		`<draw:page draw:name="page1"><draw:frame><draw:text-box>` +
		`<text:h>Phonon &amp; Electron</text:h><text:p>coupling <text:span text:style-name="T1">constant</text:span></text:p>` +
		`</draw:text-box></draw:frame></draw:page>` +
		`<draw:page draw:name="page2"><text:p text:style-name="P1"/></draw:page>` +
		`<draw:page draw:name="page3"><text:p>Summary</text:p></draw:page>` +
		`</office:presentation>`

	got := collect(t, odfPackage(body), ".odp")
	want := []string{"Phonon & Electron\ncoupling constant", "", "Summary"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEachPageBytes_odsSheetPerPage(t *testing.T) {
	body := `<office:spreadsheet>` +
		`<table:table table:name="Data"><table:table-row>` +
		`<table:table-cell><text:p>Title</text:p></table:table-cell>` +
		`<table:table-cell><text:p>Value</text:p></table:table-cell>` +
		`</table:table-row></table:table>` +
		`<table:table table:name="Notes"><table:table-row><table:table-cell><text:p>More</text:p></table:table-cell></table:table-row></table:table>` +
		`</office:spreadsheet>`

	got := collect(t, odfPackage(body), ".ods")
	want := []string{"Title\nValue", "More"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEachPageBytes_odfMissingContent(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("mimetype")
	_ = w.Close()
	err := NewExtractor().EachPageBytes(context.Background(), buf.Bytes(), ".ods", func(int, string) error { return nil })
	if err == nil {
		t.Error("expected error for package without content.xml")
	}
}

func TestEachPageBytes_unsupported(t *testing.T) {
	err := NewExtractor().EachPageBytes(context.Background(), []byte("raw"), ".xyz", func(int, string) error { return nil })
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// minimalPDF builds a PDF with one page per entry, each showing its text in
// Helvetica. An empty entry becomes a page without a content stream.
func minimalPDF(pages ...string) []byte {
	next := 4 // 1 catalog, 2 page tree, 3 font
	pageObjs := make([]int, len(pages))
	contentObjs := make([]int, len(pages))
	kids := make([]string, len(pages))
	for i, text := range pages {
		pageObjs[i] = next
		kids[i] = fmt.Sprintf("%d 0 R", next)
		next++
		if text != "" {
			contentObjs[i] = next
			next++
		}
	}

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >>"
		if contentObjs[i] == 0 {
			obj(page + " >>")
			continue
		}
		obj(fmt.Sprintf("%s /Contents %d 0 R >>", page, contentObjs[i]))
		stream := "BT /F1 12 Tf 72 720 Td (" + text + ") Tj ET"
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", next)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", next, xref)
	return buf.Bytes()
}

func TestEachPageBytes_pdfPagesInOrder(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
	}{
		{"single page", []string{"electron phonon coupling"}},
		{"empty page keeps numbering", []string{"electron phonon coupling", "", "phonon only"}},
		{"leading empty page", []string{"", "unrelated text"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, minimalPDF(tt.pages...), ".pdf")
			if len(got) != len(tt.pages) {
				t.Fatalf("got %d pages %q, want %d", len(got), got, len(tt.pages))
			}
			for i, want := range tt.pages {
				// Each text object starts on a new line.
				if strings.TrimSpace(got[i]) != want {
					t.Errorf("page %d = %q, want %q", i+1, got[i], want)
				}
				if want == "" && got[i] != "" {
					t.Errorf("page %d without content = %q, want empty", i+1, got[i])
				}
			}
		})
	}
}

func TestEachPage_pdfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1$Intro$Alice$.pdf")
	if err := os.WriteFile(path, minimalPDF("electron phonon coupling", "unrelated text"), 0600); err != nil {
		t.Fatal(err)
	}
	var numbers []int
	err := NewExtractor().EachPage(context.Background(), path, func(n int, _ string) error {
		numbers = append(numbers, n)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(numbers, []int{1, 2}) {
		t.Errorf("page numbers = %v, want [1 2]", numbers)
	}
}

func TestEachPageBytes_invalidPDF(t *testing.T) {
	err := NewExtractor().EachPageBytes(context.Background(), []byte("%PDF-garbage"), ".pdf", func(int, string) error { return nil })
	if err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestEachPage_stopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "3$Pages$Someone$.txt")
	if err := os.WriteFile(path, []byte("a\fb\fc"), 0600); err != nil {
		t.Fatal(err)
	}
	stop := errors.New("stop")
	calls := 0
	err := NewExtractor().EachPage(context.Background(), path, func(n int, _ string) error {
		calls++
		if n == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected extraction to stop after page 2, got %d calls", calls)
	}
}

func TestEachPage_nonexistent(t *testing.T) {
	err := NewExtractor().EachPage(context.Background(), "/nonexistent/path/file.txt", func(int, string) error { return nil })
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSupports(t *testing.T) {
	e := NewExtractor()
	for ext, want := range map[string]bool{".pdf": true, ".PDF": true, ".xlsx": true, ".odt": true, ".ods": true, ".odp": true, ".exe": false, "": false} {
		if got := e.Supports(ext); got != want {
			t.Errorf("Supports(%q) = %v, want %v", ext, got, want)
		}
	}
}
