// Package ingest turns uploaded lead files into candidate records.
//
// CSV files are read with a header row and blank lines skipped. XLSX
// workbooks are read from their first sheet, the first row naming the
// columns. Columns beyond the four required ones are kept on each record.
package ingest
