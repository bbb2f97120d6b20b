package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Scope string

const (
	ScopeCore         Scope = "core"
	ScopeOrganization Scope = "organization"
)

// CoreOrgID is the org_id carried by core currencies.
const CoreOrgID snowflake.ID = 0

// Currency is unique per (org_id, code). Core rows use CoreOrgID.
type Currency struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID         snowflake.ID `json:"org_id" gorm:"column:org_id;not null;uniqueIndex:ux_currencies_org_code,priority:1"`
	Code          string       `json:"code" gorm:"type:varchar(3);not null;uniqueIndex:ux_currencies_org_code,priority:2"`
	Name          string       `json:"name" gorm:"type:text;not null"`
	Symbol        string       `json:"symbol" gorm:"type:text;not null"`
	DecimalDigits int          `json:"decimal_digits" gorm:"column:decimal_digits;not null"`
	IsDefault     bool         `json:"is_default" gorm:"column:is_default;not null;default:false"`
	Scope         Scope        `json:"scope" gorm:"type:varchar(16);not null"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Currency) TableName() string { return "currencies" }

// zeroDecimalCodes have no minor unit.
var zeroDecimalCodes = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "ISK": {}, "JPY": {},
	"KMF": {}, "KRW": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DecimalDigitsFor returns 0 for zero-decimal currencies and 2 for all others.
func DecimalDigitsFor(code string) int {
	if _, ok := zeroDecimalCodes[NormalizeCode(code)]; ok {
		return 0
	}
	return 2
}

func ValidCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (c *Currency) Validate() error {
	if !ValidCode(c.Code) {
		return ErrInvalidCode
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}
	if c.DecimalDigits != DecimalDigitsFor(c.Code) {
		return ErrInvalidDecimalDigits
	}
	return nil
}
