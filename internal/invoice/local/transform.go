package local

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"invoicegw/internal/invoice"
)

// Namespace URIs of the two CII generations.
const (
	nsRSM1 = "urn:ferd:CrossIndustryDocument:invoice:1p0"
	nsRAM1 = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:12"
	nsUDT1 = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:15"

	nsRSM2 = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	nsRAM2 = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsUDT2 = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
	nsQDT2 = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"
)

var upgradeNamespaces = map[string]string{
	nsRSM1: nsRSM2,
	nsRAM1: nsRAM2,
	nsUDT1: nsUDT2,
}

// Element renames between the generations. Line items carry their own
// set because several block names collide with header-level ones.
var upgradeRenames = map[string]string{
	"CrossIndustryDocument":                     "CrossIndustryInvoice",
	"SpecifiedExchangedDocumentContext":         "ExchangedDocumentContext",
	"HeaderExchangedDocument":                   "ExchangedDocument",
	"SpecifiedSupplyChainTradeTransaction":      "SupplyChainTradeTransaction",
	"ApplicableSupplyChainTradeAgreement":       "ApplicableHeaderTradeAgreement",
	"ApplicableSupplyChainTradeDelivery":        "ApplicableHeaderTradeDelivery",
	"ApplicableSupplyChainTradeSettlement":      "ApplicableHeaderTradeSettlement",
	"SpecifiedTradeSettlementMonetarySummation": "SpecifiedTradeSettlementHeaderMonetarySummation",
}

var upgradeLineRenames = map[string]string{
	"SpecifiedSupplyChainTradeAgreement":        "SpecifiedLineTradeAgreement",
	"SpecifiedSupplyChainTradeDelivery":         "SpecifiedLineTradeDelivery",
	"SpecifiedSupplyChainTradeSettlement":       "SpecifiedLineTradeSettlement",
	"SpecifiedTradeSettlementMonetarySummation": "SpecifiedTradeSettlementLineMonetarySummation",
}

const lineItemElement = "IncludedSupplyChainTradeLineItem"

func prefixFor(space string) string {
	switch space {
	case nsRSM2:
		return "rsm"
	case nsRAM2:
		return "ram"
	case nsUDT2:
		return "udt"
	case nsQDT2:
		return "qdt"
	default:
		return ""
	}
}

// Upgrade migrates a ZUGFeRD 1.0 invoice to the 2.x schema: namespaces
// move to the UN/CEFACT 100 series, the root and the renamed aggregate
// blocks get their new names. A document already on the new schema is
// passed through unchanged.
func (e *Engine) Upgrade(ctx context.Context, xmlPath, xmlOut string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return err
	}

	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return invoice.Unprocessablef("invoice XML is not well-formed: %v", err)
	}

	switch root.XMLName.Local {
	case rootCII:
		// Already on the current schema.
		return os.WriteFile(xmlOut, data, 0o600)
	case rootCIILegacy:
	default:
		return invoice.Unprocessablef("not a ZUGFeRD invoice, root element is '%s'", root.XMLName.Local)
	}

	upgraded, err := rewriteLegacy(data)
	if err != nil {
		return err
	}
	return os.WriteFile(xmlOut, upgraded, 0o600)
}

// rewriteLegacy re-emits the token stream with migrated names. Prefixes
// are normalized to rsm/ram/udt, declared once on the root.
func rewriteLegacy(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var b strings.Builder
	b.WriteString(xml.Header)

	depth := 0
	lineDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, invoice.Unprocessablef("invoice XML is not well-formed: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			inLine := lineDepth > 0
			name := migrateName(t.Name, inLine)
			if t.Name.Local == lineItemElement {
				lineDepth++
			}
			b.WriteByte('<')
			b.WriteString(qualify(name))
			if depth == 0 {
				fmt.Fprintf(&b, " xmlns:rsm=%q xmlns:ram=%q xmlns:udt=%q xmlns:qdt=%q", nsRSM2, nsRAM2, nsUDT2, nsQDT2)
			}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				fmt.Fprintf(&b, " %s=%q", attr.Name.Local, attr.Value)
			}
			b.WriteByte('>')
			depth++
		case xml.EndElement:
			depth--
			inLine := lineDepth > 0
			if t.Name.Local == lineItemElement {
				lineDepth--
				inLine = lineDepth > 0
			}
			name := migrateName(t.Name, inLine)
			b.WriteString("</")
			b.WriteString(qualify(name))
			b.WriteByte('>')
		case xml.CharData:
			xml.EscapeText(&b, t)
		case xml.Comment, xml.ProcInst, xml.Directive:
			// Dropped; the payload carries no meaning in them.
		}
	}

	return []byte(b.String()), nil
}

func migrateName(name xml.Name, inLine bool) xml.Name {
	space := name.Space
	if mapped, ok := upgradeNamespaces[space]; ok {
		space = mapped
	}
	local := name.Local
	if inLine {
		if renamed, ok := upgradeLineRenames[local]; ok {
			return xml.Name{Space: space, Local: renamed}
		}
	}
	if renamed, ok := upgradeRenames[local]; ok {
		local = renamed
	}
	return xml.Name{Space: space, Local: local}
}

func qualify(name xml.Name) string {
	if p := prefixFor(name.Space); p != "" {
		return p + ":" + name.Local
	}
	return name.Local
}

// ublInvoice is the minimal UBL 2.1 invoice document.
type ublInvoice struct {
	XMLName       xml.Name `xml:"Invoice"`
	Xmlns         string   `xml:"xmlns,attr"`
	XmlnsCBC      string   `xml:"xmlns:cbc,attr"`
	XmlnsCAC      string   `xml:"xmlns:cac,attr"`
	Customization string   `xml:"cbc:CustomizationID"`
	ID            string   `xml:"cbc:ID"`
	IssueDate     string   `xml:"cbc:IssueDate,omitempty"`
	TypeCode      string   `xml:"cbc:InvoiceTypeCode,omitempty"`
	CurrencyCode  string   `xml:"cbc:DocumentCurrencyCode,omitempty"`
	Supplier      ublParty `xml:"cac:AccountingSupplierParty>cac:Party"`
	Customer      ublParty `xml:"cac:AccountingCustomerParty>cac:Party"`
	MonetaryTotal ublTotal `xml:"cac:LegalMonetaryTotal"`
	Lines         []ublLine
}

type ublParty struct {
	Name string `xml:"cac:PartyName>cbc:Name,omitempty"`
}

type ublTotal struct {
	PayableAmount ublAmount `xml:"cbc:PayableAmount"`
}

type ublAmount struct {
	CurrencyID string `xml:"currencyID,attr,omitempty"`
	Value      string `xml:",chardata"`
}

type ublQuantity struct {
	UnitCode string `xml:"unitCode,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type ublLine struct {
	XMLName  xml.Name    `xml:"cac:InvoiceLine"`
	ID       string      `xml:"cbc:ID"`
	Quantity ublQuantity `xml:"cbc:InvoicedQuantity"`
	Amount   ublAmount   `xml:"cbc:LineExtensionAmount"`
	ItemName string      `xml:"cac:Item>cbc:Name,omitempty"`
}

// ToUBL converts a CII invoice into a UBL 2.1 invoice with the fields
// both schemas share.
func (e *Engine) ToUBL(ctx context.Context, xmlPath, xmlOut string) error {
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

	currency := doc.currency()
	typeCode := doc.header().TypeCode
	if typeCode == "" {
		typeCode = "380"
	}
	payable := doc.duePayable()
	if payable == "" {
		payable = doc.grandTotal()
	}

	out := ublInvoice{
		Xmlns:         "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2",
		XmlnsCBC:      "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2",
		XmlnsCAC:      "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2",
		Customization: "urn:cen.eu:en16931:2017",
		ID:            doc.header().ID,
		IssueDate:     doc.issueDate(),
		TypeCode:      typeCode,
		CurrencyCode:  currency,
		Supplier:      ublParty{Name: doc.seller()},
		Customer:      ublParty{Name: doc.buyer()},
		MonetaryTotal: ublTotal{PayableAmount: ublAmount{CurrencyID: currency, Value: payable}},
	}
	for i, line := range doc.lines() {
		out.Lines = append(out.Lines, ublLine{
			ID: fmt.Sprintf("%d", i+1),
			Quantity: ublQuantity{
				UnitCode: line.Delivery.BilledQuantity.Unit,
				Value:    line.Delivery.BilledQuantity.Value,
			},
			Amount: ublAmount{
				CurrencyID: currency,
				Value:      line.Settlement.Summation.LineTotal,
			},
			ItemName: line.Product.Name,
		})
	}

	encoded, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode UBL invoice: %w", err)
	}
	return os.WriteFile(xmlOut, append([]byte(xml.Header), encoded...), 0o600)
}
