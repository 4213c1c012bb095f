package manifest

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, true
	}
	return "", false
}

// DetectFormat sniffs the content first and falls back to the file extension.
// Zip archives whose workbook entries lie past the sniffing window still count.
func DetectFormat(data []byte, filename string) Format {
	mime := mimetype.Detect(data)
	if mime.Is(xlsxMIME) || (mime.Is("application/zip") && bytes.Contains(data, []byte("xl/workbook.xml"))) {
		return FormatXLSX
	}
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return xlsxMIME
	}
	return "text/csv; charset=utf-8"
}

// ReadState reads a manifest in the given format.
func ReadState(data []byte, format Format) State {
	if format == FormatXLSX {
		return ReadXLSXState(data)
	}
	return ReadCSVState(data)
}
