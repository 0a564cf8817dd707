package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/RajkumarR2006/gemarag/store"
)

var (
	entityColumns    = []string{"startup", "company", "organization", "firm", "business"}
	financialColumns = []string{"amount", "investor", "round", "funding", "series", "valuation"}
)

func parseCSV(path string) ([]store.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return chunkRows(filepath.Base(path), rows)
}

func parseXLSX(path string) ([]store.Chunk, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return chunkRows(filepath.Base(path), rows)
}

// chunkRows renders each data row as one sentence chunk. Funding sheets
// (detected by having both an entity and a financial column) get a
// structured template; anything else becomes a prefixed value list.
func chunkRows(filename string, rows [][]string) ([]store.Chunk, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: no data rows", filename)
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}
	isFunding := hasAnyColumn(header, entityColumns) && hasAnyColumn(header, financialColumns)

	var chunks []store.Chunk
	for idx, row := range rows[1:] {
		var text string
		if isFunding {
			text = fundingSentence(header, row)
		} else {
			text = recordSentence(filename, row)
		}
		if text == "" {
			continue
		}
		id := chunkID(fmt.Sprintf("%s_%d", filename, idx))
		c := newChunk(id, filename, idx+1, text, tabularTrustScore)
		chunks = append(chunks, c)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: no usable rows", filename)
	}
	return chunks, nil
}

func hasAnyColumn(header []string, keywords []string) bool {
	joined := strings.Join(header, " ")
	for _, k := range keywords {
		if strings.Contains(joined, k) {
			return true
		}
	}
	return false
}

// findColumn returns the index of the first header cell containing any
// of the keywords, or -1.
func findColumn(header []string, keywords ...string) int {
	for i, col := range header {
		for _, k := range keywords {
			if strings.Contains(col, k) {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[idx])
	switch strings.ToLower(v) {
	case "nan", "none", "null":
		return ""
	}
	return v
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// fundingSentence builds a natural-language funding record from a row.
func fundingSentence(header, row []string) string {
	startup := cellAt(row, findColumn(header, "startup", "company", "name", "organization"))
	investor := cellAt(row, findColumn(header, "investor", "lead"))
	amount := cellAt(row, findColumn(header, "amount", "funding", "investment", "valuation"))
	round := cellAt(row, findColumn(header, "round", "stage", "series", "type"))
	year := cellAt(row, findColumn(header, "year", "date", "founded"))
	sector := cellAt(row, findColumn(header, "sector", "industry", "vertical", "category"))
	city := cellAt(row, findColumn(header, "city", "location", "headquarters"))

	if startup == "" && investor == "" && amount == "" {
		return ""
	}

	parts := []string{"Funding Record:"}
	if startup != "" {
		parts = append(parts, startup)
		if city != "" {
			parts = append(parts, fmt.Sprintf("(based in %s)", city))
		}
	} else {
		parts = append(parts, "A startup")
	}
	if sector != "" {
		parts = append(parts, fmt.Sprintf("in the %s sector", sector))
	}
	parts = append(parts, "raised")
	if amount != "" {
		parts = append(parts, amount)
	} else {
		parts = append(parts, "funding")
	}
	if investor != "" {
		parts = append(parts, fmt.Sprintf("from %s", investor))
	}
	if round != "" {
		parts = append(parts, fmt.Sprintf("in a %s round", round))
	}
	if year != "" {
		if m := yearPattern.FindString(year); m != "" {
			year = m
		}
		parts = append(parts, fmt.Sprintf("in %s", year))
	}
	return strings.Join(parts, " ") + "."
}

const maxRecordValues = 12

// recordSentence flattens a non-funding row into a prefixed value list.
func recordSentence(filename string, row []string) string {
	var values []string
	for i := range row {
		if v := cellAt(row, i); v != "" {
			values = append(values, v)
		}
		if len(values) == maxRecordValues {
			break
		}
	}
	if len(values) == 0 {
		return ""
	}
	return recordPrefix(filename) + " " + strings.Join(values, ", ") + "."
}

func recordPrefix(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "patent"):
		return "Patent Record:"
	case strings.Contains(lower, "copyright"):
		return "Copyright Record:"
	case strings.Contains(lower, "policy"), strings.Contains(lower, "scheme"):
		return "Policy Record:"
	case strings.Contains(lower, "unicorn"):
		return "Unicorn Startup:"
	default:
		return "Data Record:"
	}
}
