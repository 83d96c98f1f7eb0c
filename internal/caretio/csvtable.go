package caretio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	csvHeaderTable   = "header"
	csvTableNameMark = "TableName"
)

// csvTable is one named table of a CSV-encoded file: a title row
// (TableName,<name>), a column-headers row, and data rows. A table runs
// until the next title row or end of file.
type csvTable struct {
	name    string
	columns []string
	rows    [][]string
}

// parseCSVTables splits a CSV-encoded file (magic line included) into
// its named tables.
func parseCSVTables(data []byte) ([]csvTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	// Magic line first.
	magic, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if strings.Join(magic, ",") != csvFileMagic {
		return nil, fmt.Errorf("csv: missing %s magic", csvFileMagic)
	}

	var tables []csvTable
	var current *csvTable
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if len(record) >= 2 && record[0] == csvTableNameMark {
			tables = append(tables, csvTable{name: record[1]})
			current = &tables[len(tables)-1]
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("csv: row before first %s", csvTableNameMark)
		}
		if current.columns == nil {
			current.columns = record
			continue
		}
		current.rows = append(current.rows, record)
	}
	return tables, nil
}

// writeCSVTables appends tables to w. The caller is responsible for the
// magic line.
func writeCSVTables(w io.Writer, tables []csvTable) error {
	cw := csv.NewWriter(w)
	for _, tbl := range tables {
		if err := cw.Write([]string{csvTableNameMark, tbl.name}); err != nil {
			return err
		}
		if err := cw.Write(tbl.columns); err != nil {
			return err
		}
		for _, row := range tbl.rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// headerIntoTable renders the header as the "header" table: first
// column key, second column value.
func headerIntoTable(hdr *Header) csvTable {
	tbl := csvTable{name: csvHeaderTable, columns: []string{"key", "value"}}
	for _, key := range hdr.Keys() {
		value, _ := hdr.Get(key)
		tbl.rows = append(tbl.rows, []string{key, value})
	}
	return tbl
}

// tableIntoHeader loads the "header" table into hdr.
func tableIntoHeader(tbl csvTable, hdr *Header) {
	for _, row := range tbl.rows {
		if len(row) >= 2 {
			hdr.Set(row[0], row[1])
		}
	}
}
