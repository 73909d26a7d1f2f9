package sequence

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

const sequenceColumn = "sequence"

var errNoSequenceColumn = errors.New("no sequence column")

// parseCSV concatenates the "sequence" column across rows. It declines the
// input when there is no such header or the document is not valid CSV.
func parseCSV(text string) (string, bool) {
	values, err := readSequenceColumn(text)
	if err != nil {
		return "", false
	}
	return normalize(strings.Join(values, "")), true
}

func readSequenceColumn(text string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, err
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(name, sequenceColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errNoSequenceColumn
	}

	var values []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if col < len(rec) {
			values = append(values, rec[col])
		}
	}
	return values, nil
}
