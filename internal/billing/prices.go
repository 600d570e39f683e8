package billing

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alnah/go-scribe/internal/settings"
)

// PriceTable maps a model tier to its price in credits per started minute.
type PriceTable map[settings.Model]int64

// DefaultPriceTable doubles the price with each tier.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		settings.ModelTiny:   1,
		settings.ModelBase:   2,
		settings.ModelSmall:  4,
		settings.ModelMedium: 8,
		settings.ModelLarge:  16,
	}
}

// priceFile is the YAML layout of a price table file:
//
//	prices:
//	  tiny: 1
//	  large: 20
type priceFile struct {
	Prices map[string]int64 `yaml:"prices"`
}

// LoadPriceTable reads a YAML price file. Tiers absent from the file keep
// their default price.
func LoadPriceTable(path string) (PriceTable, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied config value
	if err != nil {
		return nil, fmt.Errorf("read price table: %w", err)
	}
	return ParsePriceTable(data)
}

// ParsePriceTable decodes YAML price data over the default table.
func ParsePriceTable(data []byte) (PriceTable, error) {
	var pf priceFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse price table: %w", err)
	}

	table := DefaultPriceTable()
	for name, price := range pf.Prices {
		tier, err := settings.ParseModel(name)
		if err != nil {
			return nil, fmt.Errorf("price table: %w", err)
		}
		if price < 0 {
			return nil, fmt.Errorf("price table: %w: %s costs %d", ErrInvalidAmount, tier, price)
		}
		table[tier] = price
	}
	return table, nil
}

// PerMinute returns the price of one started minute on tier.
func (p PriceTable) PerMinute(tier settings.Model) (int64, error) {
	price, ok := p[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, string(tier))
	}
	return price, nil
}

// Cost is ceil(seconds/60) * price(tier): a started minute is a paid minute.
func (p PriceTable) Cost(seconds float64, tier settings.Model) (int64, error) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w: duration %v", ErrInvalidAmount, seconds)
	}
	price, err := p.PerMinute(tier)
	if err != nil {
		return 0, err
	}
	return int64(math.Ceil(seconds/60)) * price, nil
}
