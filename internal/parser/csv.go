package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/layertree/internal/doctree"
)

// CSVParser handles CSV files. The first row names the columns; every data
// row becomes a FRAME holding one TEXT layer per cell.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc, page := newDocument(titleFromFilename(filename), filename)
	if len(records) == 0 {
		return doc, nil
	}

	headers := records[0]
	for i, row := range records[1:] {
		frame := doctree.NewLayer(doc.NextID(), fmt.Sprintf("Row %d", i+1), doctree.TypeFrame)
		for j, cell := range row {
			name := fmt.Sprintf("Column %d", j+1)
			if j < len(headers) && headers[j] != "" {
				name = headers[j]
			}
			frame.Append(doctree.NewLayer(doc.NextID(), name, doctree.TypeText).SetText(cell))
		}
		page.Append(frame)
	}

	return doc, nil
}
