package local

import (
	"encoding/xml"
	"strings"
	"time"

	"invoicegw/internal/invoice"
)

// ciiDocument is the subset of a UN/CEFACT Cross Industry Invoice the
// engine needs for validation, visualization and UBL conversion. Tags
// match on local names so both the 1.0 and 2.x namespaces parse.
type ciiDocument struct {
	XMLName  xml.Name
	Document ciiExchangedDocument `xml:"ExchangedDocument"`
	// ZUGFeRD 1.0 uses HeaderExchangedDocument for the same block.
	LegacyDocument ciiExchangedDocument `xml:"HeaderExchangedDocument"`
	Transaction    ciiTransaction       `xml:"SupplyChainTradeTransaction"`
	// And SpecifiedSupplyChainTradeTransaction in 1.0.
	LegacyTransaction ciiTransaction `xml:"SpecifiedSupplyChainTradeTransaction"`
}

type ciiExchangedDocument struct {
	ID            string `xml:"ID"`
	TypeCode      string `xml:"TypeCode"`
	IssueDateTime struct {
		DateTimeString struct {
			Value  string `xml:",chardata"`
			Format string `xml:"format,attr"`
		} `xml:"DateTimeString"`
	} `xml:"IssueDateTime"`
}

type ciiTransaction struct {
	Lines     []ciiLineItem `xml:"IncludedSupplyChainTradeLineItem"`
	Agreement struct {
		Seller ciiTradeParty `xml:"SellerTradeParty"`
		Buyer  ciiTradeParty `xml:"BuyerTradeParty"`
	} `xml:"ApplicableHeaderTradeAgreement"`
	// ZUGFeRD 1.0 block name.
	LegacyAgreement struct {
		Seller ciiTradeParty `xml:"SellerTradeParty"`
		Buyer  ciiTradeParty `xml:"BuyerTradeParty"`
	} `xml:"ApplicableSupplyChainTradeAgreement"`
	Settlement ciiSettlement `xml:"ApplicableHeaderTradeSettlement"`
	// ZUGFeRD 1.0 block name.
	LegacySettlement ciiSettlement `xml:"ApplicableSupplyChainTradeSettlement"`
}

type ciiTradeParty struct {
	Name string `xml:"Name"`
}

type ciiSettlement struct {
	CurrencyCode string `xml:"InvoiceCurrencyCode"`
	Summation    struct {
		LineTotal    string `xml:"LineTotalAmount"`
		TaxTotal     string `xml:"TaxTotalAmount"`
		GrandTotal   string `xml:"GrandTotalAmount"`
		DuePayable   string `xml:"DuePayableAmount"`
		TaxBasis     string `xml:"TaxBasisTotalAmount"`
		ChargeTotal  string `xml:"ChargeTotalAmount"`
		AllowanceSum string `xml:"AllowanceTotalAmount"`
	} `xml:"SpecifiedTradeSettlementHeaderMonetarySummation"`
	// ZUGFeRD 1.0 block name.
	LegacySummation struct {
		GrandTotal string `xml:"GrandTotalAmount"`
		DuePayable string `xml:"DuePayableAmount"`
	} `xml:"SpecifiedTradeSettlementMonetarySummation"`
}

type ciiLineItem struct {
	Product struct {
		Name string `xml:"Name"`
	} `xml:"SpecifiedTradeProduct"`
	Delivery struct {
		BilledQuantity struct {
			Value string `xml:",chardata"`
			Unit  string `xml:"unitCode,attr"`
		} `xml:"BilledQuantity"`
	} `xml:"SpecifiedLineTradeDelivery"`
	Settlement struct {
		Summation struct {
			LineTotal string `xml:"LineTotalAmount"`
		} `xml:"SpecifiedTradeSettlementLineMonetarySummation"`
	} `xml:"SpecifiedLineTradeSettlement"`
}

// Known CII root element local names by schema generation.
const (
	rootCII       = "CrossIndustryInvoice"
	rootCIILegacy = "CrossIndustryDocument"
	rootUBL       = "Invoice"
)

func parseCII(data []byte) (*ciiDocument, error) {
	var doc ciiDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, invoice.Unprocessablef("invoice XML is not well-formed: %v", err)
	}
	switch doc.XMLName.Local {
	case rootCII, rootCIILegacy:
	default:
		return nil, invoice.Unprocessablef("unsupported invoice root element '%s'", doc.XMLName.Local)
	}
	return &doc, nil
}

// header returns the exchanged-document block regardless of schema
// generation.
func (d *ciiDocument) header() ciiExchangedDocument {
	if d.Document.ID != "" || d.Document.TypeCode != "" {
		return d.Document
	}
	return d.LegacyDocument
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (d *ciiDocument) seller() string {
	return coalesce(
		d.Transaction.Agreement.Seller.Name,
		d.Transaction.LegacyAgreement.Seller.Name,
		d.LegacyTransaction.Agreement.Seller.Name,
		d.LegacyTransaction.LegacyAgreement.Seller.Name,
	)
}

func (d *ciiDocument) buyer() string {
	return coalesce(
		d.Transaction.Agreement.Buyer.Name,
		d.Transaction.LegacyAgreement.Buyer.Name,
		d.LegacyTransaction.Agreement.Buyer.Name,
		d.LegacyTransaction.LegacyAgreement.Buyer.Name,
	)
}

func (d *ciiDocument) currency() string {
	return coalesce(
		d.Transaction.Settlement.CurrencyCode,
		d.Transaction.LegacySettlement.CurrencyCode,
		d.LegacyTransaction.Settlement.CurrencyCode,
		d.LegacyTransaction.LegacySettlement.CurrencyCode,
	)
}

func (d *ciiDocument) grandTotal() string {
	return coalesce(
		d.Transaction.Settlement.Summation.GrandTotal,
		d.LegacyTransaction.LegacySettlement.LegacySummation.GrandTotal,
		d.LegacyTransaction.Settlement.Summation.GrandTotal,
	)
}

func (d *ciiDocument) duePayable() string {
	return coalesce(
		d.Transaction.Settlement.Summation.DuePayable,
		d.LegacyTransaction.LegacySettlement.LegacySummation.DuePayable,
		d.LegacyTransaction.Settlement.Summation.DuePayable,
	)
}

func (d *ciiDocument) lines() []ciiLineItem {
	if len(d.Transaction.Lines) > 0 {
		return d.Transaction.Lines
	}
	return d.LegacyTransaction.Lines
}

// issueDate converts the CII 102-format date (yyyyMMdd) to ISO. Other
// formats pass through untouched.
func (d *ciiDocument) issueDate() string {
	raw := strings.TrimSpace(d.header().IssueDateTime.DateTimeString.Value)
	if len(raw) == 8 {
		if t, err := time.Parse("20060102", raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}
