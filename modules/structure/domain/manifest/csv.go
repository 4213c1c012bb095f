package manifest

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

// ReadCSV decodes manifest rows, skipping the header. Records may be
// shorter or longer than Header.
func ReadCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	cr := csv.NewReader(bytes.NewReader(stripUTF8BOM(data)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read manifest header")
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read manifest row")
		}
		rows = append(rows, RowFromValues(rec))
	}
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, "write manifest header")
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return errors.Wrap(err, "write manifest row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush manifest")
}

// ReadCSVState detects read errors and, when there are none, reads the tree.
func ReadCSVState(data []byte) State {
	if errs := DetectReadErrors(data); len(errs) > 0 {
		return State{Errors: errs}
	}
	rows, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return State{Errors: []string{"File is not a valid CSV document: " + errors.Cause(err).Error() + "."}}
	}
	return State{Manifest: Read(rows)}
}
