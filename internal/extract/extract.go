// Package extract converts uploaded files into plain text for the analysis
// prompt. Dispatch is by filename extension; any parse failure is logged and
// surfaced as "no text", never as an error to the caller.
package extract

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"baliance.com/gooxml/document"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"med-analysis-bot/internal/storage"
)

type Extractor struct {
	errLog *storage.ErrorLog
}

func New(errLog *storage.ErrorLog) *Extractor {
	return &Extractor{errLog: errLog}
}

// Extract returns the text content of the file at path. The declared filename
// decides the parser. ok is false when the format is unsupported or parsing
// failed; the caller must treat that as "could not extract", not as empty text.
func (e *Extractor) Extract(path, filename string) (text string, ok bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			e.logError(fmt.Sprintf("Error extracting text from %s", filename), err)
			return "", false
		}
		return string(data), true

	case ".docx":
		return e.extractDocx(path, filename)

	case ".pdf":
		return e.extractPDF(path, filename)

	case ".xls", ".xlsx":
		return e.extractSpreadsheet(path, filename)

	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff":
		// OCR is not implemented; the model gets told what was uploaded.
		return fmt.Sprintf("Пользователь загрузил изображение файла: %s. Требуется OCR для извлечения текста.", filename), true

	default:
		return "", false
	}
}

func (e *Extractor) extractDocx(path, filename string) (string, bool) {
	doc, err := document.Open(path)
	if err != nil {
		e.logError(fmt.Sprintf("Error extracting text from %s", filename), err)
		return "", false
	}

	var paragraphs []string
	for _, p := range doc.Paragraphs() {
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		paragraphs = append(paragraphs, sb.String())
	}
	return strings.Join(paragraphs, "\n"), true
}

func (e *Extractor) extractPDF(path, filename string) (string, bool) {
	f, r, err := pdf.Open(path)
	if err != nil {
		e.logError(fmt.Sprintf("Error processing PDF %s", filename), err)
		return "", false
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			e.logError(fmt.Sprintf("Error processing PDF %s", filename), err)
			return "", false
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), true
}

func (e *Extractor) extractSpreadsheet(path, filename string) (string, bool) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		e.logError(fmt.Sprintf("Error extracting text from %s", filename), err)
		return "", false
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		e.logError(fmt.Sprintf("Error extracting text from %s", filename), err)
		return "", false
	}

	// GetRows trims trailing blank cells; pad every row to the sheet
	// width so each line carries the same number of fields.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	return sb.String(), true
}

func (e *Extractor) logError(msg string, err error) {
	log.Printf("❌ %s: %v", msg, err)
	if e.errLog != nil {
		if lerr := e.errLog.Append(msg, err); lerr != nil {
			log.Printf("⚠️ failed to write error log: %v", lerr)
		}
	}
}
