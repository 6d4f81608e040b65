package document

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu would otherwise create a config dir under $HOME, which is
	// read-only on Cloud Functions.
	api.DisableConfigDir()
}

const (
	pdfFont         = "Helvetica"
	pdfLineHeight   = 5.5
	pdfBulletIndent = 4.0
	pdfBulletWidth  = 5.0
)

// WritePDF lays out the title block and blocks on A4 pages and writes an
// optimized PDF.
func WritePDF(w io.Writer, meta Meta, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetTitle(meta.Title(), true)
	pdf.AddPage()
	// The core fonts are cp1252; this covers æ, ø, å and the en dash.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(pdfFont, "B", 20)
	pdf.MultiCell(0, 9, tr(meta.Title()), "", "L", false)
	if meta.CustomerURL != "" {
		pdf.SetFont(pdfFont, "I", 11)
		pdf.MultiCell(0, pdfLineHeight, tr(meta.CustomerURL), "", "L", false)
	}
	pdf.Ln(4)

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	for _, b := range doc.Blocks {
		switch b.Kind {
		case Heading:
			pdf.Ln(3)
			pdf.SetFont(pdfFont, "B", 14)
			pdf.MultiCell(0, 7, tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case Bold:
			pdf.SetFont(pdfFont, "B", 11)
			pdf.MultiCell(0, pdfLineHeight, tr(b.Text), "", "L", false)
			pdf.Ln(1.5)
		case Bullet:
			pdf.SetFont(pdfFont, "", 11)
			pdf.SetX(left + pdfBulletIndent)
			pdf.CellFormat(pdfBulletWidth, pdfLineHeight, tr("•"), "", 0, "L", false, 0, "")
			textLeft := left + pdfBulletIndent + pdfBulletWidth
			pdf.MultiCell(pageW-right-textLeft, pdfLineHeight, tr(b.Text), "", "L", false)
			pdf.Ln(0.5)
		default:
			pdf.SetFont(pdfFont, "", 11)
			pdf.MultiCell(0, pdfLineHeight, tr(b.Text), "", "L", false)
			pdf.Ln(2)
		}
	}

	var raw bytes.Buffer
	if err := pdf.Output(&raw); err != nil {
		return fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return optimizePDF(bytes.NewReader(raw.Bytes()), w)
}

func optimizePDF(rs io.ReadSeeker, w io.Writer) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.Optimize(rs, w, cfg); err != nil {
		return fmt.Errorf("failed to optimize PDF: %w", err)
	}
	return nil
}
