// Package sequence normalizes uploaded genome files into nucleotide strings.
//
// Reading never fails: malformed, empty or unsupported input degrades to an
// empty sequence. Each file format maps to an ordered plan of parsers that is
// tried until one of them accepts the input.
package sequence

import (
	"path"
	"strings"
)

type Format string

const (
	FormatFASTA Format = "fasta"
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
	FormatText  Format = "text"
)

// FASTAExtensions lists the suffixes parsed as FASTA.
var FASTAExtensions = []string{".fa", ".fasta", ".fna", ".ffn", ".faa"}

// Result is a decoded sequence plus the parser that produced it.
type Result struct {
	Sequence string
	Format   Format
}

// parser reports ok when it claims the input. Plans stop at the first claim.
type parser struct {
	format Format
	parse  func(text string) (seq string, ok bool)
}

var (
	fastaParser = parser{format: FormatFASTA, parse: parseFASTA}
	csvParser   = parser{format: FormatCSV, parse: parseCSV}
	textParser  = parser{format: FormatText, parse: parseText}
)

type plan struct {
	format  Format
	parsers []parser
}

// Read returns the nucleotide sequence found in data.
func Read(filename string, data []byte) string {
	return Parse(filename, data).Sequence
}

// Parse dispatches on the filename suffix (case-insensitive).
func Parse(filename string, data []byte) Result {
	p := planFor(filename)
	if len(p.parsers) == 0 {
		return Result{Format: p.format}
	}

	text := decode(data)
	last := Result{Format: p.format}
	for _, pr := range p.parsers {
		seq, ok := pr.parse(text)
		if ok {
			return Result{Sequence: seq, Format: pr.format}
		}
		last = Result{Sequence: seq, Format: pr.format}
	}
	return last
}

// DetectFormat reports which format the filename suffix selects.
func DetectFormat(filename string) Format {
	return planFor(filename).format
}

func planFor(filename string) plan {
	ext := strings.ToLower(path.Ext(filename))
	for _, fe := range FASTAExtensions {
		if ext == fe {
			return plan{format: FormatFASTA, parsers: []parser{fastaParser}}
		}
	}

	switch ext {
	case ".csv":
		return plan{format: FormatCSV, parsers: []parser{csvParser, textParser}}
	case ".pdf":
		// No extraction for PDFs yet.
		return plan{format: FormatPDF}
	}
	return plan{format: FormatText, parsers: []parser{fastaParser, textParser}}
}

// decode drops undecodable byte runs instead of failing.
func decode(data []byte) string {
	text := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(text, "\uFEFF")
}

// parseText keeps only A, C, G, T (any case) and uppercases them.
func parseText(text string) (string, bool) {
	return normalize(text), true
}

func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case 'A', 'C', 'G', 'T':
			b.WriteByte(c)
		case 'a', 'c', 'g', 't':
			b.WriteByte(c - ('a' - 'A'))
		}
	}
	return b.String()
}
