package local

import (
	"context"
	"html/template"
	"os"

	"invoicegw/internal/invoice"
)

// labels are the localized captions of the invoice rendering.
var labels = map[invoice.Language]map[string]string{
	invoice.LanguageEN: {
		"title":    "Invoice",
		"number":   "Invoice number",
		"date":     "Issue date",
		"seller":   "Seller",
		"buyer":    "Buyer",
		"item":     "Item",
		"quantity": "Quantity",
		"total":    "Line total",
		"grand":    "Grand total",
		"due":      "Amount due",
	},
	invoice.LanguageDE: {
		"title":    "Rechnung",
		"number":   "Rechnungsnummer",
		"date":     "Rechnungsdatum",
		"seller":   "Verkäufer",
		"buyer":    "Käufer",
		"item":     "Position",
		"quantity": "Menge",
		"total":    "Gesamtpreis",
		"grand":    "Gesamtbetrag",
		"due":      "Fälliger Betrag",
	},
	invoice.LanguageFR: {
		"title":    "Facture",
		"number":   "Numéro de facture",
		"date":     "Date d'émission",
		"seller":   "Vendeur",
		"buyer":    "Acheteur",
		"item":     "Article",
		"quantity": "Quantité",
		"total":    "Total ligne",
		"grand":    "Montant total",
		"due":      "Montant dû",
	},
}

const invoiceHTML = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.L.title}} {{.Number}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #222; padding-bottom: .3em; }
table { border-collapse: collapse; width: 100%; margin-top: 1em; }
th, td { border: 1px solid #999; padding: .4em .6em; text-align: left; }
th { background: #eee; }
.totals { margin-top: 1em; text-align: right; }
.totals .grand { font-size: 1.2em; font-weight: bold; }
dl { display: grid; grid-template-columns: max-content auto; gap: .2em 1em; }
dt { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.L.title}} {{.Number}}</h1>
<dl>
<dt>{{.L.number}}</dt><dd>{{.Number}}</dd>
<dt>{{.L.date}}</dt><dd>{{.Date}}</dd>
<dt>{{.L.seller}}</dt><dd>{{.Seller}}</dd>
<dt>{{.L.buyer}}</dt><dd>{{.Buyer}}</dd>
</dl>
<table>
<tr><th>{{.L.item}}</th><th>{{.L.quantity}}</th><th>{{.L.total}}</th></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}} {{.Unit}}</td><td>{{.Total}} {{$.Currency}}</td></tr>
{{end}}</table>
<div class="totals">
<div class="grand">{{.L.grand}}: {{.GrandTotal}} {{.Currency}}</div>
<div>{{.L.due}}: {{.DuePayable}} {{.Currency}}</div>
</div>
</body>
</html>
`

var invoiceTemplate = template.Must(template.New("invoice").Parse(invoiceHTML))

type renderLine struct {
	Name     string
	Quantity string
	Unit     string
	Total    string
}

type renderModel struct {
	Lang       string
	L          map[string]string
	Number     string
	Date       string
	Seller     string
	Buyer      string
	Currency   string
	GrandTotal string
	DuePayable string
	Lines      []renderLine
}

func buildRenderModel(doc *ciiDocument, lang invoice.Language) renderModel {
	l, ok := labels[lang]
	if !ok {
		l = labels[invoice.LanguageEN]
		lang = invoice.LanguageEN
	}

	m := renderModel{
		Lang:       string(lang),
		L:          l,
		Number:     doc.header().ID,
		Date:       doc.issueDate(),
		Seller:     doc.seller(),
		Buyer:      doc.buyer(),
		Currency:   doc.currency(),
		GrandTotal: doc.grandTotal(),
		DuePayable: doc.duePayable(),
	}
	for _, line := range doc.lines() {
		m.Lines = append(m.Lines, renderLine{
			Name:     line.Product.Name,
			Quantity: line.Delivery.BilledQuantity.Value,
			Unit:     line.Delivery.BilledQuantity.Unit,
			Total:    line.Settlement.Summation.LineTotal,
		})
	}
	return m
}

// VisualizeHTML renders invoice XML as a standalone HTML page.
func (e *Engine) VisualizeHTML(ctx context.Context, xmlPath, htmlOut string, lang invoice.Language) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return err
	}
	doc, err := parseCII(data)
	if err != nil {
		return err
	}

	out, err := os.Create(htmlOut)
	if err != nil {
		return err
	}
	defer out.Close()

	return invoiceTemplate.Execute(out, buildRenderModel(doc, lang))
}

// VisualizePDF renders invoice XML to PDF by printing the HTML
// rendering through headless Chrome.
func (e *Engine) VisualizePDF(ctx context.Context, xmlPath, pdfOut string) error {
	htmlOut := pdfOut + ".html"
	if err := e.VisualizeHTML(ctx, xmlPath, htmlOut, invoice.LanguageEN); err != nil {
		return err
	}
	defer os.Remove(htmlOut)

	pdf, err := e.renderer.RenderFile(ctx, htmlOut, e.renderTimeout)
	if err != nil {
		return err
	}
	return os.WriteFile(pdfOut, pdf, 0o600)
}
