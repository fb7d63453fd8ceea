package invoice

// Profile is a named conformance level within a standard at a given
// specification version. ID carries the guideline identifier written into
// the exported document's metadata.
type Profile struct {
	Standard Standard
	Name     string
	Version  int
	ID       string
}

type profileKey struct {
	standard Standard
	name     string
	version  int
}

// catalog holds every (standard, profile, version) triple the engine
// supports. Lookups outside this table fail.
var catalog = map[profileKey]Profile{
	// ZUGFeRD 1
	{StandardZUGFeRD, "BASIC", 1}:    {StandardZUGFeRD, "BASIC", 1, "urn:ferd:CrossIndustryDocument:invoice:1p0:basic"},
	{StandardZUGFeRD, "COMFORT", 1}:  {StandardZUGFeRD, "COMFORT", 1, "urn:ferd:CrossIndustryDocument:invoice:1p0:comfort"},
	{StandardZUGFeRD, "EXTENDED", 1}: {StandardZUGFeRD, "EXTENDED", 1, "urn:ferd:CrossIndustryDocument:invoice:1p0:extended"},

	// ZUGFeRD 2
	{StandardZUGFeRD, "MINIMUM", 2}:   {StandardZUGFeRD, "MINIMUM", 2, "urn:factur-x.eu:1p0:minimum"},
	{StandardZUGFeRD, "BASICWL", 2}:   {StandardZUGFeRD, "BASICWL", 2, "urn:factur-x.eu:1p0:basicwl"},
	{StandardZUGFeRD, "BASIC", 2}:     {StandardZUGFeRD, "BASIC", 2, "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:basic"},
	{StandardZUGFeRD, "CIUS", 2}:      {StandardZUGFeRD, "CIUS", 2, "urn:cen.eu:en16931:2017#compliant#urn:zugferd.de:2p0:cius"},
	{StandardZUGFeRD, "EN16931", 2}:   {StandardZUGFeRD, "EN16931", 2, "urn:cen.eu:en16931:2017"},
	{StandardZUGFeRD, "EXTENDED", 2}:  {StandardZUGFeRD, "EXTENDED", 2, "urn:cen.eu:en16931:2017#conformant#urn:factur-x.eu:1p0:extended"},
	{StandardZUGFeRD, "XRECHNUNG", 2}: {StandardZUGFeRD, "XRECHNUNG", 2, "urn:cen.eu:en16931:2017#compliant#urn:xoev-de:kosit:standard:xrechnung_2.0"},

	// Factur-X (requested as version 1, exported as a version-2 structure)
	{StandardFacturX, "MINIMUM", 1}:   {StandardFacturX, "MINIMUM", 1, "urn:factur-x.eu:1p0:minimum"},
	{StandardFacturX, "BASICWL", 1}:   {StandardFacturX, "BASICWL", 1, "urn:factur-x.eu:1p0:basicwl"},
	{StandardFacturX, "BASIC", 1}:     {StandardFacturX, "BASIC", 1, "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:basic"},
	{StandardFacturX, "CIUS", 1}:      {StandardFacturX, "CIUS", 1, "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:cius"},
	{StandardFacturX, "EN16931", 1}:   {StandardFacturX, "EN16931", 1, "urn:cen.eu:en16931:2017"},
	{StandardFacturX, "EXTENDED", 1}:  {StandardFacturX, "EXTENDED", 1, "urn:cen.eu:en16931:2017#conformant#urn:factur-x.eu:1p0:extended"},
	{StandardFacturX, "XRECHNUNG", 1}: {StandardFacturX, "XRECHNUNG", 1, "urn:cen.eu:en16931:2017#compliant#urn:xoev-de:kosit:standard:xrechnung_2.0"},

	// Order-X
	{StandardOrderX, "BASIC", 1}:    {StandardOrderX, "BASIC", 1, "urn:order-x.eu:1p0:basic"},
	{StandardOrderX, "COMFORT", 1}:  {StandardOrderX, "COMFORT", 1, "urn:order-x.eu:1p0:comfort"},
	{StandardOrderX, "EXTENDED", 1}: {StandardOrderX, "EXTENDED", 1, "urn:order-x.eu:1p0:extended"},
	{StandardOrderX, "BASIC", 2}:    {StandardOrderX, "BASIC", 2, "urn:order-x.eu:1p0:basic"},
	{StandardOrderX, "COMFORT", 2}:  {StandardOrderX, "COMFORT", 2, "urn:order-x.eu:1p0:comfort"},
	{StandardOrderX, "EXTENDED", 2}: {StandardOrderX, "EXTENDED", 2, "urn:order-x.eu:1p0:extended"},

	// Despatch advice
	{StandardDespatch, "PILOT", 1}: {StandardDespatch, "PILOT", 1, "urn:despatch-advice:pilot"},
}

// ProfileByName looks a profile up in the catalog. The error does not name
// the internal profile; callers are expected to wrap it with the original
// caller-supplied code.
func ProfileByName(standard Standard, name string, version int) (Profile, error) {
	p, ok := catalog[profileKey{standard, name, version}]
	if !ok {
		return Profile{}, Invalidf("profile %s not supported for %s version %d", name, standard, version)
	}
	return p, nil
}
