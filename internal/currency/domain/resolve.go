package domain

// Source records which rule produced a resolved currency.
type Source string

const (
	SourceExplicit            Source = "explicit"
	SourceOrganizationDefault Source = "organization_default"
	SourceCoreDefault         Source = "core_default"
	SourceFirstAvailable      Source = "first_available"
)

type Resolution struct {
	Currency Currency `json:"currency"`
	Source   Source   `json:"source"`
	// UnmatchedCode is set when an explicit code was requested but no
	// currency with that code exists at either scope.
	UnmatchedCode string `json:"unmatched_code,omitempty"`
}

// Resolve picks the effective currency from an org's visible currency list
// (its own rows plus core rows). Precedence: explicit code in org scope, then
// core scope; org default; core default. A registry with rows but no default
// yields the first org row, else the first core row.
func Resolve(currencies []Currency, explicitCode string) (Resolution, error) {
	if len(currencies) == 0 {
		return Resolution{}, ErrNoCurrencyConfigured
	}

	code := NormalizeCode(explicitCode)
	var res Resolution
	if code != "" {
		if c, ok := find(currencies, ScopeOrganization, func(c Currency) bool { return c.Code == code }); ok {
			return Resolution{Currency: c, Source: SourceExplicit}, nil
		}
		if c, ok := find(currencies, ScopeCore, func(c Currency) bool { return c.Code == code }); ok {
			return Resolution{Currency: c, Source: SourceExplicit}, nil
		}
		res.UnmatchedCode = code
	}

	isDefault := func(c Currency) bool { return c.IsDefault }
	if c, ok := find(currencies, ScopeOrganization, isDefault); ok {
		res.Currency, res.Source = c, SourceOrganizationDefault
		return res, nil
	}
	if c, ok := find(currencies, ScopeCore, isDefault); ok {
		res.Currency, res.Source = c, SourceCoreDefault
		return res, nil
	}

	res.Source = SourceFirstAvailable
	if c, ok := find(currencies, ScopeOrganization, func(Currency) bool { return true }); ok {
		res.Currency = c
		return res, nil
	}
	res.Currency = currencies[0]
	return res, nil
}

func find(currencies []Currency, scope Scope, match func(Currency) bool) (Currency, bool) {
	for _, c := range currencies {
		if c.Scope == scope && match(c) {
			return c, true
		}
	}
	return Currency{}, false
}
