package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// slidePath matches slide parts inside a .pptx zip and captures the slide number.
var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t> (and any other attributes).
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// eachPPTXSlide yields one page per slide ordered by slide number. Zip entry
// order is not slide order (slide10 may precede slide2).
func eachPPTXSlide(ctx context.Context, content []byte, fn PageFunc) error {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := readZipFile(s.file)
		if err != nil {
			return fmt.Errorf("extract PPTX: %w", err)
		}
		if err := fn(i+1, joinMatches(atTag, data)); err != nil {
			return err
		}
	}
	return nil
}

// joinMatches joins the trimmed first capture of every match of re with single
// spaces, decoding XML entities (&amp;, &lt;, &#233; ...).
func joinMatches(re *regexp.Regexp, data []byte) string {
	var b strings.Builder
	for _, m := range re.FindAllSubmatch(data, -1) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(html.UnescapeString(string(bytes.TrimSpace(m[1]))))
	}
	return strings.TrimSpace(b.String())
}
