package sheets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFile = errors.New("file is not a readable xlsx, xls or csv workbook")

// ReadRows returns the cells of the first sheet of an uploaded workbook.
// Later sheets are ignored. Unknown extensions are sniffed as xlsx, then
// xls, then csv.
func ReadRows(data []byte, fileName string) ([][]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptySheet
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	case ".csv":
		return readCSV(data)
	}

	if rows, err := readXLSX(data); err == nil {
		return rows, nil
	}
	if rows, err := readXLS(data); err == nil {
		return rows, nil
	}
	if rows, err := readCSV(data); err == nil {
		return rows, nil
	}
	return nil, ErrUnsupportedFile
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrUnsupportedFile, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptySheet
	}
	// raw values keep date cells as serials so CoerceDate sees the number
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// the xls decoder panics on some malformed OLE streams
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("%w: open xls: %v", ErrUnsupportedFile, r)
		}
	}()
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: open xls: %v", ErrUnsupportedFile, err)
	}
	if book.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptySheet
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		vals := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			vals = append(vals, row.Col(j))
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", ErrUnsupportedFile, err)
	}
	return rows, nil
}
