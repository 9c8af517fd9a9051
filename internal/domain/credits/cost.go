package credits

import "fmt"

// Feature is the closed set of ledger tags. Chargeable features have a fixed
// credit price; PAYMENT and MANUAL only annotate credit-side entries.
type Feature string

const (
	FeatureOrder           Feature = "ORDER"
	FeatureTextProcessing  Feature = "TEXT_PROCESSING"
	FeatureImageProcessing Feature = "IMAGE_PROCESSING"
	FeaturePayment         Feature = "PAYMENT"
	FeatureManual          Feature = "MANUAL"
)

// ParseFeature maps an external name onto the closed set.
func ParseFeature(s string) (Feature, error) {
	switch Feature(s) {
	case FeatureOrder, FeatureTextProcessing, FeatureImageProcessing, FeaturePayment, FeatureManual:
		return Feature(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, s)
}

func defaultCost(f Feature) int64 {
	switch f {
	case FeatureOrder:
		return 1
	case FeatureTextProcessing:
		return 1
	case FeatureImageProcessing:
		return 2
	}
	return 0
}

// CostTable prices the chargeable features. Construction validates every
// override, so a misconfigured or unknown feature name stops the process at
// startup instead of silently charging zero at request time.
type CostTable struct {
	costs map[Feature]int64
}

// NewCostTable builds the table from defaults plus optional overrides keyed
// by feature name.
func NewCostTable(overrides map[string]int) (*CostTable, error) {
	costs := map[Feature]int64{
		FeatureOrder:           defaultCost(FeatureOrder),
		FeatureTextProcessing:  defaultCost(FeatureTextProcessing),
		FeatureImageProcessing: defaultCost(FeatureImageProcessing),
	}

	for name, cost := range overrides {
		feature, err := ParseFeature(name)
		if err != nil {
			return nil, err
		}
		if _, chargeable := costs[feature]; !chargeable {
			return nil, fmt.Errorf("feature %s is not chargeable", feature)
		}
		if cost <= 0 {
			return nil, fmt.Errorf("cost for %s must be positive, got %d", feature, cost)
		}
		costs[feature] = int64(cost)
	}

	return &CostTable{costs: costs}, nil
}

// Cost returns the credit price of a chargeable feature.
func (t *CostTable) Cost(f Feature) (int64, error) {
	cost, ok := t.costs[f]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not chargeable", ErrUnknownFeature, f)
	}
	return cost, nil
}
