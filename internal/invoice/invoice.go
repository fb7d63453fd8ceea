package invoice

import (
	"context"
	"errors"
	"fmt"
)

// Package invoice contains the domain model for hybrid e-invoice conversion:
// formats, standards, the profile catalog, parameter resolution, and the
// engine contract the gateway dispatches to. No HTTP or filesystem concerns
// live here.

// Format is the caller-facing format selector.
type Format string

const (
	FormatFacturX  Format = "fx"
	FormatZUGFeRD  Format = "zf"
	FormatOrderX   Format = "ox"
	FormatDespatch Format = "da"
)

// Standard is the invoice schema family a format maps to.
type Standard string

const (
	StandardFacturX  Standard = "facturx"
	StandardZUGFeRD  Standard = "zugferd"
	StandardOrderX   Standard = "orderx"
	StandardDespatch Standard = "despatchadvice"
)

// Language selects the rendering language for visualizations.
type Language string

const (
	LanguageEN Language = "en"
	LanguageDE Language = "de"
	LanguageFR Language = "fr"
)

// Attachment is an extra file embedded into a combined hybrid PDF.
// Attachments are embedded in the order the caller supplied them.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// CombineRequest is the raw, caller-supplied input of a combine operation
// before resolution.
type CombineRequest struct {
	Format            string
	Version           int
	Profile           string
	IgnoreInputErrors bool
	Attachments       []Attachment
}

// ConversionConfig is a fully resolved, internally consistent conversion
// configuration. It is built once per request by Resolve and never mutated
// afterwards.
type ConversionConfig struct {
	Format            Format
	Standard          Standard
	Version           int
	ProfileCode       string
	Profile           Profile
	ExporterVersion   int
	IgnoreInputErrors bool
	Attachments       []Attachment
}

// ValidationResult is the outcome of a single validate call.
type ValidationResult struct {
	ReportXML string
	Valid     bool
	OptionsOK bool
}

// Engine is the fixed operation contract of the invoice-processing backend.
// Each method either produces its declared output file/bytes or returns a
// classified error; calls are blocking and must not be retried blindly.
type Engine interface {
	Validate(ctx context.Context, src []byte, filename string, noNotices bool, logAppend string) (*ValidationResult, error)
	Extract(ctx context.Context, pdfPath, xmlOut string) error
	A3Only(ctx context.Context, pdfPath, pdfOut string) error
	Combine(ctx context.Context, pdfPath, xmlPath, pdfOut string, cfg *ConversionConfig) error
	VisualizeHTML(ctx context.Context, xmlPath, htmlOut string, lang Language) error
	VisualizePDF(ctx context.Context, xmlPath, pdfOut string) error
	Upgrade(ctx context.Context, xmlPath, xmlOut string) error
	ToUBL(ctx context.Context, xmlPath, xmlOut string) error
}

// InputError marks malformed or inconsistent caller input
// (unknown format/profile/version, missing upload, bad encoding).
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

// Invalidf builds an InputError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err is classified as invalid caller input.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// StateError marks well-formed input whose underlying document lacks the
// required content (e.g. a PDF without embedded invoice XML).
type StateError struct {
	msg string
}

func (e *StateError) Error() string { return e.msg }

// Unprocessablef builds a StateError with a formatted message.
func Unprocessablef(format string, args ...any) error {
	return &StateError{msg: fmt.Sprintf(format, args...)}
}

// IsStateError reports whether err is classified as unprocessable state.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// ParseLanguage normalizes a language selector. Empty input defaults to
// English; anything outside en/de/fr is rejected.
func ParseLanguage(s string) (Language, error) {
	switch normalize(s) {
	case "", "en":
		return LanguageEN, nil
	case "de":
		return LanguageDE, nil
	case "fr":
		return LanguageFR, nil
	default:
		return "", Invalidf("language must be en, de, or fr")
	}
}
