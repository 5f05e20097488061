package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// ReadCSV reads a CSV document whose first record is the header. Ragged
// rows are an error. A header with no data rows yields an empty frame.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "reading CSV: no header")
	}
	return New(records[0], records[1:])
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	f, err := ReadCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return f, nil
}

// WriteCSV writes the header and every row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.header); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	if err := cw.WriteAll(f.rows); err != nil {
		return errors.Wrap(err, "writing CSV rows")
	}
	return nil
}
