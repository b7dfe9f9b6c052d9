package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// eachPDFPage yields every physical page. A page without a content stream
// yields empty text so numbering stays aligned with the document.
func eachPDFPage(ctx context.Context, content []byte, fn PageFunc) (err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var text string
		page := r.Page(i)
		if !page.V.IsNull() {
			text, err = page.GetPlainText(nil)
			if err != nil {
				return fmt.Errorf("extract page %d: %w", i, err)
			}
		}
		if err := fn(i, text); err != nil {
			return err
		}
	}
	return nil
}
