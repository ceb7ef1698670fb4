package fileformat

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

const (
	excelWorkbookPath = "xl/workbook.xml"
	excelRelsPath     = "xl/_rels/workbook.xml.rels"
	excelStringsPath  = "xl/sharedStrings.xml"
	docxDocumentPath  = "word/document.xml"
)

// ExcelStrategy reads XLSX workbooks. The result maps each sheet name to its
// rows as records keyed by the first row.
type ExcelStrategy struct {
	limits Limits
}

func (s *ExcelStrategy) Format() Format { return FormatExcel }
func (s *ExcelStrategy) Priority() int  { return PriorityExcel }

func (s *ExcelStrategy) CanHandle(_ context.Context, data []byte) bool {
	_, ok := zipEntries(data)[excelWorkbookPath]
	return ok
}

type xlsxWorkbook struct {
	Sheets []struct {
		Name  string     `xml:"name,attr"`
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSharedStrings struct {
	Items []struct {
		Text string `xml:"t"`
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				Text string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func (s *ExcelStrategy) Parse(_ context.Context, data []byte) (any, error) {
	entries := zipEntries(data)
	if entries == nil {
		return nil, errors.New("not a ZIP container")
	}

	var workbook xlsxWorkbook
	if err := decodeEntry(entries, excelWorkbookPath, s.limits, &workbook); err != nil {
		return nil, err
	}

	targets := map[string]string{}
	var rels xlsxRelationships
	if _, ok := entries[excelRelsPath]; ok {
		if err := decodeEntry(entries, excelRelsPath, s.limits, &rels); err != nil {
			return nil, err
		}
		for _, rel := range rels.Relationships {
			targets[rel.ID] = resolveTarget(rel.Target)
		}
	}

	var shared []string
	if _, ok := entries[excelStringsPath]; ok {
		var sst xlsxSharedStrings
		if err := decodeEntry(entries, excelStringsPath, s.limits, &sst); err != nil {
			return nil, err
		}
		for _, item := range sst.Items {
			var b strings.Builder
			b.WriteString(item.Text)
			for _, run := range item.Runs {
				b.WriteString(run.Text)
			}
			shared = append(shared, b.String())
		}
	}

	result := make(map[string]any, len(workbook.Sheets))
	for i, sheet := range workbook.Sheets {
		sheetPath := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		for _, attr := range sheet.Attrs {
			if attr.Name.Local == "id" {
				if target, ok := targets[attr.Value]; ok {
					sheetPath = target
				}
			}
		}

		var ws xlsxSheet
		if err := decodeEntry(entries, sheetPath, s.limits, &ws); err != nil {
			return nil, err
		}
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		records, err := sheetRecords(ws, shared)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		result[name] = records
	}
	return result, nil
}

func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("xl", target)
}

func sheetRecords(ws xlsxSheet, shared []string) ([]any, error) {
	var rows [][]any
	for _, row := range ws.Rows {
		var values []any
		next := 0
		for _, cell := range row.Cells {
			col := next
			if cell.Ref != "" {
				var err error
				if col, err = columnIndex(cell.Ref); err != nil {
					return nil, err
				}
			}
			if col > maxExcelColumn {
				return nil, fmt.Errorf("row has more than %d columns", maxExcelColumn+1)
			}
			for len(values) <= col {
				values = append(values, "")
			}
			values[col] = cellValue(cell.Type, cell.Value, cell.Inline.Text, shared)
			next = col + 1
		}
		rows = append(rows, values)
	}

	records := []any{}
	if len(rows) == 0 {
		return records, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(h))
	}
	header = headerKeys(header)

	for _, row := range rows[1:] {
		if blankValues(row) {
			continue
		}
		record := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(row) {
				record[key] = row[i]
			} else {
				record[key] = ""
			}
		}
		for i := len(header); i < len(row); i++ {
			record[fmt.Sprintf("column_%d", i+1)] = row[i]
		}
		records = append(records, record)
	}
	return records, nil
}

func cellValue(cellType, raw, inline string, shared []string) any {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(shared) {
			return raw
		}
		return shared[idx]
	case "inlineStr":
		return inline
	case "b":
		return raw == "1"
	case "str", "e":
		return raw
	default:
		if raw == "" {
			return ""
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	}
}

// maxExcelColumn is the zero-based index of XFD, the last column a
// worksheet can address.
const maxExcelColumn = 16383

// columnIndex converts the letters of a cell reference such as "AB12" into a
// zero-based column index. References past XFD are rejected.
func columnIndex(ref string) (int, error) {
	col := 0
	for _, c := range ref {
		if c < 'A' || c > 'Z' {
			break
		}
		col = col*26 + int(c-'A'+1)
		if col-1 > maxExcelColumn {
			return 0, fmt.Errorf("cell reference %q is beyond column XFD", ref)
		}
	}
	if col == 0 {
		return 0, nil
	}
	return col - 1, nil
}

func blankValues(row []any) bool {
	for _, v := range row {
		if s, ok := v.(string); !ok || strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// DOCXStrategy extracts paragraph text from Word documents.
type DOCXStrategy struct {
	limits Limits
}

func (s *DOCXStrategy) Format() Format { return FormatDOCX }
func (s *DOCXStrategy) Priority() int  { return PriorityDOCX }

func (s *DOCXStrategy) CanHandle(_ context.Context, data []byte) bool {
	_, ok := zipEntries(data)[docxDocumentPath]
	return ok
}

// Parse returns the document text with one line per paragraph.
func (s *DOCXStrategy) Parse(_ context.Context, data []byte) (any, error) {
	entries := zipEntries(data)
	file, ok := entries[docxDocumentPath]
	if !ok {
		return nil, errors.New("missing " + docxDocumentPath)
	}
	content, err := readZipEntry(file, s.limits.MaxExpandedBytes)
	if err != nil {
		return nil, err
	}

	decoder := xml.NewDecoder(strings.NewReader(string(content)))
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", docxDocumentPath, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}

func decodeEntry(entries map[string]*zip.File, name string, limits Limits, v any) error {
	file, ok := entries[name]
	if !ok {
		return fmt.Errorf("missing %s", name)
	}
	content, err := readZipEntry(file, limits.MaxExpandedBytes)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := xml.Unmarshal(content, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
