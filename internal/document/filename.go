package document

import (
	"fmt"
	"strings"
)

// Format is an output file format.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// ParseFormat defaults to DOCX.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatDOCX:
		return FormatDOCX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported document format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// FileName builds the download name from the customer name.
func FileName(customerName string, f Format) string {
	token := strings.TrimSpace(customerName)
	if token == "" {
		token = "kunde"
	}
	return fmt.Sprintf("SEO_analyse_%s.%s", strings.ReplaceAll(token, " ", "_"), f)
}
