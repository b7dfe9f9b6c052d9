// Package identity derives a document's stable id and display metadata from its filename.
package identity

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultDelimiter separates the id, title and author fields in a filename,
// e.g. "9812566910$Solid State Physics$Kittel$.pdf".
const DefaultDelimiter = "$"

// minFields is the number of leading fields every filename must carry: id, title, author.
const minFields = 3

// ErrMalformedIdentity is returned when a filename yields fewer than three fields.
var ErrMalformedIdentity = errors.New("malformed identity")

// Identity is the metadata encoded positionally in a filename.
type Identity struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Parser splits filenames on a fixed delimiter.
type Parser struct {
	delimiter string
}

// NewParser returns a parser for delimiter. An empty delimiter selects DefaultDelimiter.
func NewParser(delimiter string) *Parser {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Parser{delimiter: delimiter}
}

// Parse strips the directory and extension from name and splits the rest on the
// delimiter. Fields after the third are ignored. The author may be empty.
func (p *Parser) Parse(name string) (Identity, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	fields := strings.Split(stem, p.delimiter)
	if len(fields) < minFields {
		return Identity{}, fmt.Errorf("%w: %q has %d field(s) separated by %q, want at least %d",
			ErrMalformedIdentity, base, len(fields), p.delimiter, minFields)
	}
	return Identity{ID: fields[0], Title: fields[1], Author: fields[2]}, nil
}

// Parse parses name with DefaultDelimiter.
func Parse(name string) (Identity, error) {
	return NewParser(DefaultDelimiter).Parse(name)
}
