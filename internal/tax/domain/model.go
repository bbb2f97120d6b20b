package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxRate is an org-scoped rate for a jurisdiction. Rate is a percentage:
// 7.25 means 7.25%. RegionCode is empty for a country-wide rate.
type TaxRate struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID    `json:"org_id" gorm:"column:org_id;not null;uniqueIndex:ux_tax_rates_jurisdiction,priority:1"`
	CountryCode string          `json:"country_code" gorm:"type:varchar(2);not null;uniqueIndex:ux_tax_rates_jurisdiction,priority:2"`
	RegionCode  string          `json:"region_code,omitempty" gorm:"type:varchar(16);not null;default:'';uniqueIndex:ux_tax_rates_jurisdiction,priority:3"`
	Name        string          `json:"name" gorm:"type:text;not null"`
	Rate        decimal.Decimal `json:"rate" gorm:"type:numeric(7,4);not null"`
	IsDefault   bool            `json:"is_default" gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
}

func (TaxRate) TableName() string { return "tax_rates" }

func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NormalizeRegion(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (t *TaxRate) Validate() error {
	if len(t.CountryCode) != 2 {
		return ErrInvalidCountryCode
	}
	for _, r := range t.CountryCode {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCountryCode
		}
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidName
	}
	if t.Rate.IsNegative() || t.Rate.GreaterThan(hundred) {
		return ErrInvalidTaxRate
	}
	return nil
}

// Compute returns subtotal × rate / 100, unrounded.
func (t TaxRate) Compute(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(t.Rate).Div(hundred)
}
