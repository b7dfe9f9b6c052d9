package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// formFeed separates pages in plain text, as pdftotext and most line printers emit it.
const formFeed = "\f"

// eachPlainPage yields the form-feed separated chunks of content, validated as UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character. A file
// without form feeds is one page.
func eachPlainPage(ctx context.Context, content []byte, fn PageFunc) error {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	for i, page := range strings.Split(text, formFeed) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i+1, page); err != nil {
			return err
		}
	}
	return nil
}
