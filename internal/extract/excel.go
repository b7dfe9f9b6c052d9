package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// eachExcelSheet yields one page per sheet, in workbook order: rows on separate
// lines, cells separated by tabs.
func eachExcelSheet(ctx context.Context, content []byte, fn PageFunc) error {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		if err := fn(i+1, strings.TrimSpace(buf.String())); err != nil {
			return err
		}
	}
	return nil
}
