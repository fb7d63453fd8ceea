package local

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoicegw/internal/invoice"
)

type validationMessage struct {
	level string // "error" or "notice"
	text  string
}

// Validate inspects an invoice document, XML or hybrid PDF, and produces
// an XML report. Structural checks only: well-formedness, a recognized
// root element, and presence of the identifying header fields. Business
// rule checks beyond that are reported as a notice so callers know the
// report is not an EN 16931 verdict.
func (e *Engine) Validate(ctx context.Context, src []byte, filename string, noNotices bool, logAppend string) (*invoice.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := src
	if bytes.HasPrefix(src, []byte("%PDF")) {
		extracted, err := e.extractFromBytes(ctx, src)
		if err != nil {
			return report(filename, []validationMessage{{level: "error", text: err.Error()}}, noNotices, logAppend), nil
		}
		data = extracted
	}

	msgs := checkStructure(data)
	return report(filename, msgs, noNotices, logAppend), nil
}

// extractFromBytes runs Extract against an in-memory PDF.
func (e *Engine) extractFromBytes(ctx context.Context, pdf []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "validate-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, err
	}
	xmlPath := filepath.Join(dir, "payload.xml")
	if err := e.Extract(ctx, pdfPath, xmlPath); err != nil {
		return nil, err
	}
	return os.ReadFile(xmlPath)
}

func checkStructure(data []byte) []validationMessage {
	var msgs []validationMessage

	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return append(msgs, validationMessage{level: "error", text: fmt.Sprintf("document is not well-formed XML: %v", err)})
	}

	switch root.XMLName.Local {
	case rootCII, rootCIILegacy:
	case rootUBL:
		msgs = append(msgs, validationMessage{level: "notice", text: "UBL invoice detected, structural checks only"})
		return msgs
	default:
		return append(msgs, validationMessage{level: "error", text: fmt.Sprintf("unrecognized root element '%s'", root.XMLName.Local)})
	}

	doc, err := parseCII(data)
	if err != nil {
		return append(msgs, validationMessage{level: "error", text: err.Error()})
	}

	hdr := doc.header()
	if strings.TrimSpace(hdr.ID) == "" {
		msgs = append(msgs, validationMessage{level: "error", text: "invoice number (ExchangedDocument/ID) is missing"})
	}
	if strings.TrimSpace(hdr.IssueDateTime.DateTimeString.Value) == "" {
		msgs = append(msgs, validationMessage{level: "error", text: "issue date is missing"})
	}
	if doc.seller() == "" {
		msgs = append(msgs, validationMessage{level: "notice", text: "seller name is missing"})
	}
	if doc.buyer() == "" {
		msgs = append(msgs, validationMessage{level: "notice", text: "buyer name is missing"})
	}
	if len(doc.lines()) == 0 {
		msgs = append(msgs, validationMessage{level: "notice", text: "invoice has no line items"})
	}

	msgs = append(msgs, validationMessage{level: "notice", text: "structural validation only, schema rule sets not evaluated"})
	return msgs
}

// report assembles the validation report XML. Valid means no
// error-level messages.
func report(filename string, msgs []validationMessage, noNotices bool, logAppend string) *invoice.ValidationResult {
	valid := true
	for _, m := range msgs {
		if m.level == "error" {
			valid = false
		}
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, "<validation filename=%q datetime=%q>\n", filename, time.Now().UTC().Format(time.RFC3339))
	b.WriteString("  <xml>\n")
	b.WriteString("    <messages>\n")
	for _, m := range msgs {
		if noNotices && m.level == "notice" {
			continue
		}
		fmt.Fprintf(&b, "      <%s>%s</%s>\n", m.level, escapeXML(m.text), m.level)
	}
	b.WriteString("    </messages>\n")
	status := "valid"
	if !valid {
		status = "invalid"
	}
	fmt.Fprintf(&b, "    <summary status=%q/>\n", status)
	b.WriteString("  </xml>\n")
	if logAppend != "" {
		fmt.Fprintf(&b, "  <log>%s</log>\n", escapeXML(logAppend))
	}
	b.WriteString("</validation>\n")

	return &invoice.ValidationResult{
		ReportXML: b.String(),
		Valid:     valid,
		OptionsOK: true,
	}
}

func escapeXML(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
