package manifest

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// ReadXLSX reads the first sheet of a workbook. The first row is returned
// as the header.
func ReadXLSX(r io.Reader) ([]string, []Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read sheet %s", sheets[0])
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, RowFromValues(rec))
	}
	return records[0], rows, nil
}

// ReadXLSXState is the workbook counterpart of ReadCSVState.
func ReadXLSXState(data []byte) State {
	header, rows, err := ReadXLSX(bytes.NewReader(data))
	if err != nil {
		return State{Errors: []string{"File is not a valid XLSX workbook."}}
	}
	if len(header) == 0 {
		return State{Errors: []string{"File is empty."}}
	}
	if errs := DetectHeaderErrors(header); len(errs) > 0 {
		return State{Errors: errs}
	}
	return State{Manifest: Read(rows)}
}

func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeSheetRow(f, 1, Header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, i+2, row.Values()); err != nil {
			return err
		}
	}
	return errors.Wrap(f.Write(w), "write workbook")
}

func writeSheetRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return errors.Wrap(err, "cell name")
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return errors.Wrapf(f.SetSheetRow(xlsxSheet, cell, &row), "write row %d", n)
}
