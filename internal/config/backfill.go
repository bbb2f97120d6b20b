package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CurrencySeed is one currency row inserted for an organization (or core) that has none.
type CurrencySeed struct {
	Code          string `mapstructure:"code"`
	Name          string `mapstructure:"name"`
	Symbol        string `mapstructure:"symbol"`
	DecimalDigits int    `mapstructure:"decimalDigits"`
	IsDefault     bool   `mapstructure:"isDefault"`
}

// TaxRateSeed is one jurisdiction-keyed tax rate inserted for an organization that has none.
// Rate is a percentage: 7.25 means 7.25%.
type TaxRateSeed struct {
	CountryCode string  `mapstructure:"countryCode"`
	RegionCode  string  `mapstructure:"regionCode"`
	Name        string  `mapstructure:"name"`
	Rate        float64 `mapstructure:"rate"`
	IsDefault   bool    `mapstructure:"isDefault"`
}

type BackfillConfig struct {
	Currencies []CurrencySeed `mapstructure:"currencies"`
	TaxRates   []TaxRateSeed  `mapstructure:"taxRates"`
}

func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{
		Currencies: []CurrencySeed{
			{Code: "USD", Name: "US Dollar", Symbol: "$", DecimalDigits: 2, IsDefault: true},
			{Code: "EUR", Name: "Euro", Symbol: "€", DecimalDigits: 2},
			{Code: "GBP", Name: "British Pound", Symbol: "£", DecimalDigits: 2},
			{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", DecimalDigits: 0},
		},
		TaxRates: []TaxRateSeed{
			{CountryCode: "US", Name: "Sales Tax", Rate: 7.25, IsDefault: true},
			{CountryCode: "CA", RegionCode: "ON", Name: "HST", Rate: 13},
			{CountryCode: "GB", Name: "VAT", Rate: 20},
			{CountryCode: "DE", Name: "MwSt", Rate: 19},
			{CountryCode: "JP", Name: "Consumption Tax", Rate: 10},
		},
	}
}

type BackfillConfigHolder struct {
	current atomic.Value // holds BackfillConfig
}

// NewStaticBackfillConfig returns a holder that never reloads.
func NewStaticBackfillConfig(cfg BackfillConfig) *BackfillConfigHolder {
	holder := &BackfillConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBackfillConfigHolder() (*BackfillConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("backfill")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/repairdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REPAIRDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return NewStaticBackfillConfig(DefaultBackfillConfig()), nil
	}

	var cfg BackfillConfig
	if err := v.UnmarshalKey("backfill", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateBackfillConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBackfillConfig(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BackfillConfig
		if err := v.UnmarshalKey("backfill", &updated); err != nil {
			log.Printf("[backfill-config] reload failed: %v", err)
			return
		}
		if err := ValidateBackfillConfig(updated); err != nil {
			log.Printf("[backfill-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[backfill-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BackfillConfigHolder) Get() BackfillConfig {
	return h.current.Load().(BackfillConfig)
}

// ValidateBackfillConfig checks that each default set has exactly one default row
// and no duplicate keys.
func ValidateBackfillConfig(cfg BackfillConfig) error {
	if len(cfg.Currencies) == 0 {
		return errors.New("backfill.currencies cannot be empty")
	}
	if len(cfg.TaxRates) == 0 {
		return errors.New("backfill.taxRates cannot be empty")
	}

	defaults := 0
	codes := make(map[string]struct{}, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if len(code) != 3 {
			return fmt.Errorf("backfill.currencies: invalid code %q", c.Code)
		}
		if c.DecimalDigits != 0 && c.DecimalDigits != 2 {
			return fmt.Errorf("backfill.currencies: %s decimalDigits must be 0 or 2", code)
		}
		if _, dup := codes[code]; dup {
			return fmt.Errorf("backfill.currencies: duplicate code %s", code)
		}
		codes[code] = struct{}{}
		if c.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return fmt.Errorf("backfill.currencies: expected exactly one default, got %d", defaults)
	}

	defaults = 0
	jurisdictions := make(map[string]struct{}, len(cfg.TaxRates))
	for _, t := range cfg.TaxRates {
		key := strings.ToUpper(strings.TrimSpace(t.CountryCode)) + "/" + strings.ToUpper(strings.TrimSpace(t.RegionCode))
		if len(strings.TrimSpace(t.CountryCode)) != 2 {
			return fmt.Errorf("backfill.taxRates: invalid country %q", t.CountryCode)
		}
		if t.Rate < 0 || t.Rate > 100 {
			return fmt.Errorf("backfill.taxRates: %s rate out of range", key)
		}
		if _, dup := jurisdictions[key]; dup {
			return fmt.Errorf("backfill.taxRates: duplicate jurisdiction %s", key)
		}
		jurisdictions[key] = struct{}{}
		if t.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return fmt.Errorf("backfill.taxRates: expected exactly one default, got %d", defaults)
	}
	return nil
}
