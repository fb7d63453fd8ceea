// Package local implements the invoice.Engine contract on top of pdfcpu
// for PDF attachment handling and headless Chrome for PDF rendering. It
// covers the structural subset of the hybrid-invoice operations; schema
// validation against the full EN 16931 rule set is out of its reach and
// reported accordingly.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"invoicegw/internal/config"
	"invoicegw/internal/invoice"
)

// Engine is the local conversion backend.
type Engine struct {
	renderer      *htmlRenderer
	renderTimeout time.Duration
}

// New builds the engine from its configuration.
func New(cfg config.EngineConfig) *Engine {
	timeout := time.Duration(cfg.RenderTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		renderer:      newHTMLRenderer(cfg.BrowserBin),
		renderTimeout: timeout,
	}
}

// Close releases the browser if one was started.
func (e *Engine) Close() error {
	return e.renderer.Close()
}

var _ invoice.Engine = (*Engine)(nil)

// payloadName is the filename the invoice XML is embedded under; readers
// locate the payload by this exact name.
func payloadName(cfg *invoice.ConversionConfig) string {
	switch cfg.Standard {
	case invoice.StandardFacturX:
		return "factur-x.xml"
	case invoice.StandardZUGFeRD:
		// Strict ZUGFeRD keeps its own payload name in both generations;
		// the Factur-X companion naming stays off. Only the casing
		// changed between them.
		if cfg.Version == 1 {
			return "ZUGFeRD-invoice.xml"
		}
		return "zugferd-invoice.xml"
	case invoice.StandardOrderX:
		return "order-x.xml"
	case invoice.StandardDespatch:
		return "despatch-advice.xml"
	default:
		return "factur-x.xml"
	}
}

// knownPayloadNames are candidates when extracting from a hybrid PDF, in
// lookup order.
var knownPayloadNames = []string{
	"factur-x.xml",
	"ZUGFeRD-invoice.xml",
	"zugferd-invoice.xml",
	"order-x.xml",
	"despatch-advice.xml",
	"xrechnung.xml",
}

func pdfConfig() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// Extract locates the embedded invoice XML in a hybrid PDF and writes it
// to xmlOut.
func (e *Engine) Extract(ctx context.Context, pdfPath, xmlOut string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := pdfConfig()
	f, err := os.Open(pdfPath)
	if err != nil {
		return err
	}
	atts, err := api.Attachments(f, conf)
	f.Close()
	if err != nil {
		return invoice.Unprocessablef("cannot read PDF attachments: %v", err)
	}
	names := make([]string, 0, len(atts))
	for _, att := range atts {
		names = append(names, att.FileName)
	}

	target := pickPayload(names)
	if target == "" {
		return invoice.Unprocessablef("no invoice XML embedded in PDF")
	}

	outDir, err := os.MkdirTemp(filepath.Dir(xmlOut), "attachments-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractAttachmentsFile(pdfPath, outDir, []string{target}, conf); err != nil {
		return invoice.Unprocessablef("cannot extract '%s' from PDF: %v", target, err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, target))
	if err != nil {
		return fmt.Errorf("read extracted payload: %w", err)
	}
	return os.WriteFile(xmlOut, data, 0o600)
}

// pickPayload prefers the well-known payload names; any lone .xml
// attachment is accepted as fallback.
func pickPayload(names []string) string {
	for _, known := range knownPayloadNames {
		for _, n := range names {
			if n == known {
				return n
			}
		}
	}
	var xmlNames []string
	for _, n := range names {
		if strings.EqualFold(filepath.Ext(n), ".xml") {
			xmlNames = append(xmlNames, n)
		}
	}
	if len(xmlNames) == 1 {
		return xmlNames[0]
	}
	return ""
}

// A3Only rewrites a PDF into its archival variant without embedding any
// invoice payload. Existing attachments survive the rewrite.
func (e *Engine) A3Only(ctx context.Context, pdfPath, pdfOut string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := pdfConfig()
	tmp := pdfOut + ".opt"
	if err := api.OptimizeFile(pdfPath, tmp, conf); err != nil {
		return invoice.Unprocessablef("cannot process PDF: %v", err)
	}
	defer os.Remove(tmp)

	props := map[string]string{
		"PDFAPart":        "3",
		"PDFAConformance": "U",
	}
	if err := api.AddPropertiesFile(tmp, pdfOut, props, conf); err != nil {
		return fmt.Errorf("write archival properties: %w", err)
	}
	return nil
}

// Combine embeds the invoice XML, plus any caller attachments, into the
// PDF under the payload name the resolved configuration dictates.
func (e *Engine) Combine(ctx context.Context, pdfPath, xmlPath, pdfOut string, cfg *invoice.ConversionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := pdfConfig()
	if !cfg.IgnoreInputErrors {
		if err := api.ValidateFile(pdfPath, conf); err != nil {
			return invoice.Unprocessablef("input PDF failed validation: %v", err)
		}
	}

	stage, err := os.MkdirTemp(filepath.Dir(pdfOut), "embed-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	xmlData, err := os.ReadFile(xmlPath)
	if err != nil {
		return fmt.Errorf("read invoice XML: %w", err)
	}
	payload := filepath.Join(stage, payloadName(cfg))
	if err := os.WriteFile(payload, xmlData, 0o600); err != nil {
		return err
	}

	files := []string{payload}
	for _, att := range cfg.Attachments {
		p := filepath.Join(stage, att.Filename)
		if err := os.WriteFile(p, att.Data, 0o600); err != nil {
			return err
		}
		files = append(files, p)
	}

	tmp := pdfOut + ".emb"
	if err := api.AddAttachmentsFile(pdfPath, tmp, files, false, conf); err != nil {
		return invoice.Unprocessablef("cannot embed invoice into PDF: %v", err)
	}
	defer os.Remove(tmp)

	if err := api.AddPropertiesFile(tmp, pdfOut, conformanceProperties(cfg), conf); err != nil {
		return fmt.Errorf("write conformance properties: %w", err)
	}
	return nil
}

// producerName identifies the gateway in the metadata of every combined
// PDF.
const producerName = "invoicegw"

// exporter is the embedding variant a combine request runs under. Order
// and despatch documents declare their own document type; everything
// else is an invoice.
type exporter struct {
	kind    string
	docType string
}

// exporterFor selects the exporter variant once per request, keyed on
// the resolved standard.
func exporterFor(std invoice.Standard) exporter {
	switch std {
	case invoice.StandardOrderX:
		return exporter{kind: "order", docType: "ORDER"}
	case invoice.StandardDespatch:
		return exporter{kind: "despatch", docType: "DESPATCHADVICE"}
	default:
		return exporter{kind: "invoice", docType: "INVOICE"}
	}
}

// conformanceProperties builds the document properties written onto a
// combined PDF: conformance identity, payload name, producer/creator
// and the exporter version the resolver fixed.
func conformanceProperties(cfg *invoice.ConversionConfig) map[string]string {
	exp := exporterFor(cfg.Standard)
	return map[string]string{
		"Producer":         producerName,
		"Creator":          producerName,
		"ExporterVersion":  strconv.Itoa(cfg.ExporterVersion),
		"DocumentType":     exp.docType,
		"ConformanceLevel": cfg.Profile.Name,
		"ConformanceURN":   cfg.Profile.ID,
		"DocumentFileName": payloadName(cfg),
		"InvoiceStandard":  string(cfg.Standard),
	}
}
