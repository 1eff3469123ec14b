// Package importer brings existing material into the editor: manuscripts
// (markdown, plain text, Word, PDF) as chapter paragraphs, and spreadsheet
// sheets as bulk setting entries.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"inkwell/internal/models"
)

// ImportManuscript reads a manuscript file into ordered paragraphs suitable
// for a chapter document.
func ImportManuscript(filePath string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".md", ".markdown":
		return parseMarkdown(filePath)
	case ".txt":
		return parseText(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pdf":
		return parsePDF(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parseText(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return splitParagraphs(string(data)), nil
}

// parseMarkdown walks the goldmark AST and flattens block nodes into
// paragraphs, dropping markup.
func parseMarkdown(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	md := goldmark.New()
	root := md.Parser().Parse(gtext.NewReader(data))

	var paragraphs []string
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading:
			var sb strings.Builder
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(data))
			}
			if t := strings.TrimSpace(sb.String()); t != "" {
				paragraphs = append(paragraphs, t)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return paragraphs, nil
}

func parseDOCX(filePath string) ([]string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, block := range strings.Split(content, "</w:p>") {
		text := extractTextFromXML(block, "<w:t")
		if text = strings.TrimSpace(text); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs, nil
}

func parsePDF(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var paragraphs []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		pageText, err := reader.Page(i).GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, splitParagraphs(pageText)...)
	}
	return paragraphs, nil
}

// SettingEntry is one row of a bulk setting import.
type SettingEntry struct {
	Kind        models.FragmentKind
	Name        string
	Description string
	Section     string
}

// ImportSettings reads setting entries from an .xlsx workbook. Every sheet
// is scanned; expected columns are kind, name, description, and an optional
// section. Rows with an unknown kind are skipped with a warning.
func ImportSettings(filePath string) ([]SettingEntry, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []SettingEntry
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		for i, row := range rows {
			if len(row) < 3 {
				continue
			}
			kind := models.FragmentKind(strings.ToLower(strings.TrimSpace(row[0])))
			if i == 0 && kind == "kind" {
				continue // header row
			}
			if !kind.IsValid() || kind == models.KindChapter {
				log.Warn().Str("sheet", sheetName).Int("row", i+1).Str("kind", string(kind)).Msg("Skipping row with unknown setting kind")
				continue
			}
			entry := SettingEntry{
				Kind:        kind,
				Name:        strings.TrimSpace(row[1]),
				Description: strings.TrimSpace(row[2]),
			}
			if len(row) > 3 {
				entry.Section = strings.TrimSpace(row[3])
			}
			if entry.Name == "" || entry.Description == "" {
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if t := strings.TrimSpace(block); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	return paragraphs
}

// extractTextFromXML pulls the text runs out of raw OOXML markup.
func extractTextFromXML(xmlContent, openTag string) string {
	var text strings.Builder
	rest := xmlContent
	for {
		idx := strings.Index(rest, openTag)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(openTag):]
		if rest == "" || (rest[0] != '>' && rest[0] != ' ') {
			continue // e.g. <w:tbl>, not a text run
		}
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, "</")
		if end < 0 {
			break
		}
		text.WriteString(rest[:end])
		rest = rest[end:]
	}
	return text.String()
}
