// Package document parses positional text extracted from budget PDFs and
// splits it into per-department sections.
//
// Input lines look like
//
//	# === PAGE 12 === [size: 612x792]
//	[3:0:72,144] 0250 Judicial Branch
//
// where the bracket holds block, line, x and y. Anything else is ignored.
package document

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/civicledger/budgetmap/internal/matcher"
	"github.com/civicledger/budgetmap/pkg/errors"
)

// Token is one positioned line of text. Index is the token's ordinal within
// its document.
type Token struct {
	Index int     `json:"index" yaml:"index"`
	Page  int     `json:"page" yaml:"page"`
	Block int     `json:"block" yaml:"block"`
	Line  int     `json:"line" yaml:"line"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Text  string  `json:"text" yaml:"text"`
}

// Page is a page sentinel with its dimensions.
type Page struct {
	Number int     `json:"number" yaml:"number"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Document is the ordered token stream of one source file.
type Document struct {
	Name   string
	Tokens []Token
	Pages  []Page
}

var (
	tokenLine = matcher.MustNew(matcher.Regex,
		`^\[(\d+):(\d+):(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)\]\s?(.*)$`)
	pageLine = matcher.MustNew(matcher.Regex,
		`^#\s*===\s*PAGE\s+(\d+)\s*===\s*(?:\[size:\s*(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*\])?`,
		&matcher.Options{CaseInsensitive: true})
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Parse reads a positional text stream. Lines that do not conform and tokens
// with empty text are skipped; only read failures are returned.
func Parse(r io.Reader, name string) (*Document, error) {
	doc := &Document{Name: name}
	page := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if m := pageLine.Submatch(line); m != nil {
			page, _ = strconv.Atoi(m[1])
			p := Page{Number: page}
			p.Width, _ = strconv.ParseFloat(m[2], 64)
			p.Height, _ = strconv.ParseFloat(m[3], 64)
			doc.Pages = append(doc.Pages, p)
			continue
		}

		m := tokenLine.Submatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[5])
		if text == "" {
			continue
		}
		block, _ := strconv.Atoi(m[1])
		ln, _ := strconv.Atoi(m[2])
		x, errX := strconv.ParseFloat(m[3], 64)
		y, errY := strconv.ParseFloat(m[4], 64)
		if errX != nil || errY != nil {
			continue
		}
		doc.Tokens = append(doc.Tokens, Token{
			Index: len(doc.Tokens),
			Page:  page,
			Block: block,
			Line:  ln,
			X:     x,
			Y:     y,
			Text:  text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapIO("read", name, err)
	}
	return doc, nil
}

// ParseFile opens and parses path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, path)
}

// Len returns the number of tokens.
func (d *Document) Len() int {
	return len(d.Tokens)
}

// Text returns the text of token i, or "" when i is out of range.
func (d *Document) Text(i int) string {
	if i < 0 || i >= len(d.Tokens) {
		return ""
	}
	return d.Tokens[i].Text
}

// Slice returns the tokens in [start, end), clamped to the document.
func (d *Document) Slice(start, end int) []Token {
	start = max(start, 0)
	end = min(end, len(d.Tokens))
	if start >= end {
		return nil
	}
	return d.Tokens[start:end]
}

// Page returns the page with the given number.
func (d *Document) Page(number int) (Page, bool) {
	for _, p := range d.Pages {
		if p.Number == number {
			return p, true
		}
	}
	return Page{}, false
}
