package extract

import (
	"context"
	"fmt"

	"github.com/lu4p/cat"
)

// eachCatPage handles ODT and RTF through lu4p/cat. Neither format stores
// pagination, so the whole text is page 1.
func eachCatPage(ctx context.Context, content []byte, fn PageFunc) error {
	text, err := cat.FromBytes(content)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(1, text)
}
