package invoice

import "strings"

// formatStandard maps a normalized format code to its schema family.
var formatStandard = map[Format]Standard{
	FormatFacturX:  StandardFacturX,
	FormatZUGFeRD:  StandardZUGFeRD,
	FormatOrderX:   StandardOrderX,
	FormatDespatch: StandardDespatch,
}

// Profile code tables. Which table applies depends on format and version;
// the values are the catalog names the single-letter codes translate to.
var (
	despatchProfiles = map[string]string{
		"p": "PILOT",
	}
	legacyProfiles = map[string]string{ // Order-X, and ZUGFeRD 1
		"b": "BASIC",
		"c": "COMFORT",
		"t": "EXTENDED",
	}
	facturProfiles = map[string]string{ // Factur-X, and ZUGFeRD 2
		"m": "MINIMUM",
		"w": "BASICWL",
		"b": "BASIC",
		"c": "CIUS",
		"e": "EN16931",
		"t": "EXTENDED",
		"x": "XRECHNUNG",
	}
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve validates and normalizes a raw combine request into a canonical
// ConversionConfig. It never partially resolves: any inconsistency fails
// with an InputError and nothing else happens.
func Resolve(req CombineRequest) (*ConversionConfig, error) {
	format := Format(normalize(req.Format))
	if format == "" {
		format = FormatFacturX
	}
	standard, ok := formatStandard[format]
	if !ok {
		return nil, Invalidf("Unknown format '%s'", req.Format)
	}

	version := req.Version
	if version != 1 && version != 2 {
		return nil, Invalidf("version must be 1 or 2")
	}
	if format == FormatFacturX && version > 1 {
		return nil, Invalidf("Factur-X is only available in version 1")
	}

	code := normalize(req.Profile)
	if code == "" {
		code = defaultProfileCode(format, version)
	}

	profile, err := lookupProfile(format, standard, version, code)
	if err != nil {
		return nil, err
	}

	exporterVersion := version
	if format == FormatFacturX {
		// The Factur-X hybrid is always produced as a version-2 embedded
		// structure even though the request version is pinned to 1.
		exporterVersion = 2
	}

	return &ConversionConfig{
		Format:            format,
		Standard:          standard,
		Version:           version,
		ProfileCode:       code,
		Profile:           profile,
		ExporterVersion:   exporterVersion,
		IgnoreInputErrors: req.IgnoreInputErrors,
		Attachments:       normalizeAttachments(req.Attachments),
	}, nil
}

// defaultProfileCode derives the profile code used when the caller left the
// profile blank.
func defaultProfileCode(format Format, version int) string {
	switch {
	case format == FormatDespatch:
		return "p"
	case format == FormatOrderX, format == FormatZUGFeRD && version == 1:
		return "t"
	default:
		return "e"
	}
}

// lookupProfile translates a single-letter profile code into a catalog
// profile. Failures always carry the caller's profile code, never the
// internal profile name.
func lookupProfile(format Format, standard Standard, version int, code string) (Profile, error) {
	table := facturProfiles
	lookupVersion := version
	switch {
	case format == FormatDespatch:
		table = despatchProfiles
		lookupVersion = 1 // despatch advice is pinned to its pilot version
	case format == FormatOrderX, format == FormatZUGFeRD && version == 1:
		table = legacyProfiles
	}

	name, ok := table[code]
	if !ok {
		return Profile{}, Invalidf("Unknown profile '%s'", code)
	}
	p, err := ProfileByName(standard, name, lookupVersion)
	if err != nil {
		return Profile{}, Invalidf("Unknown profile '%s'", code)
	}
	return p, nil
}

// normalizeAttachments defaults missing MIME types while preserving order.
func normalizeAttachments(in []Attachment) []Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attachment, len(in))
	copy(out, in)
	for i := range out {
		if out[i].MimeType == "" {
			out[i].MimeType = "application/octet-stream"
		}
	}
	return out
}
