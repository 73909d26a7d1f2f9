package sequence

import (
	"bufio"
	"strings"
)

// Record is a single FASTA entry.
type Record struct {
	Header   string
	Sequence string
}

// ParseFASTA reads records from text. Lines before the first header are
// ignored; sequence lines are right-trimmed and joined with spaces removed.
// Residue letters are returned as written.
func ParseFASTA(text string) []Record {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)

	var (
		records []Record
		current *Record
		lines   []string
	)

	flush := func() {
		if current == nil {
			return
		}
		seq := strings.Join(lines, "")
		seq = strings.ReplaceAll(seq, " ", "")
		current.Sequence = strings.ReplaceAll(seq, "\r", "")
		records = append(records, *current)
		lines = lines[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			current = &Record{Header: strings.TrimSpace(line[1:])}
			continue
		}
		if current == nil {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t\r\n\v\f"))
	}
	flush()

	return records
}

// parseFASTA concatenates every record's sequence in file order.
func parseFASTA(text string) (string, bool) {
	var b strings.Builder
	for _, rec := range ParseFASTA(text) {
		b.WriteString(rec.Sequence)
	}
	seq := b.String()
	return seq, seq != ""
}
