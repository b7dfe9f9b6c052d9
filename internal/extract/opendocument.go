package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// odfContentPath is the body part of every OpenDocument package.
const odfContentPath = "content.xml"

var (
	// odpSlide and odsSheet capture one presentation slide or spreadsheet table.
	// The trailing [\s>] keeps draw:page-thumbnail and table:table-row out.
	odpSlide = regexp.MustCompile(`(?s)<draw:page(?:\s[^>]*)?>(.*?)</draw:page>`)
	odsSheet = regexp.MustCompile(`(?s)<table:table(?:\s[^>]*)?>(.*?)</table:table>`)

	// odfParagraph matches a text:p or text:h element with its inline markup.
	// Self-closing (empty) paragraphs are not matched.
	odfParagraph = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*[^/])?>(.*?)</text:(?:p|h)>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// eachODPSlide yields one page per slide of an .odp presentation.
func eachODPSlide(ctx context.Context, content []byte, fn PageFunc) error {
	return eachODFPart(ctx, content, "ODP", odpSlide, fn)
}

// eachODSSheet yields one page per sheet of an .ods spreadsheet, one line per
// non-empty cell paragraph.
func eachODSSheet(ctx context.Context, content []byte, fn PageFunc) error {
	return eachODFPart(ctx, content, "ODS", odsSheet, fn)
}

func eachODFPart(ctx context.Context, content []byte, kind string, part *regexp.Regexp, fn PageFunc) error {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	body, err := readZipEntry(zr, odfContentPath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", kind, err)
	}
	if body == nil {
		return fmt.Errorf("extract %s: %s not found", kind, odfContentPath)
	}
	for i, m := range part.FindAllSubmatch(body, -1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i+1, odfText(m[1])); err != nil {
			return err
		}
	}
	return nil
}

// odfText returns the paragraphs of an OpenDocument fragment, one per line,
// with inline markup removed and entities decoded.
func odfText(fragment []byte) string {
	var lines []string
	for _, m := range odfParagraph.FindAllSubmatch(fragment, -1) {
		line := strings.TrimSpace(html.UnescapeString(xmlTag.ReplaceAllString(string(m[1]), "")))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
