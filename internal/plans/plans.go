// Package plans defines the static plan catalog. Plans are code-defined and
// referenced by name; they are not persisted.
package plans

import "github.com/wallet-finder/internal/types"

// Features describes what a plan allows: scan speed, chain coverage and
// whether the raw private key scanner is available.
type Features struct {
	Name              types.Plan      `json:"name"`
	Speed             int             `json:"speed"` // scans per second
	Chains            []types.ChainID `json:"chains"`
	PrivateKeyScanner bool            `json:"hasPrivateKeyScanner"`
	Description       string          `json:"description"`
	Price             string          `json:"price"`
	CoinCost          int64           `json:"coinCost"` // in-app coin price for upgrades
}

var catalog = []Features{
	{
		Name:              types.PlanBasic,
		Speed:             1,
		Chains:            []types.ChainID{types.ChainETH},
		PrivateKeyScanner: false,
		Description:       "Perfect for beginners. Includes Ethereum scanning.",
		Price:             "FREE",
		CoinCost:          0,
	},
	{
		Name:              types.PlanPro,
		Speed:             10,
		Chains:            []types.ChainID{types.ChainETH, types.ChainBNB, types.ChainMATIC},
		PrivateKeyScanner: true,
		Description:       "For serious users. Multiple chains and private key scanning.",
		Price:             "$29.99/month",
		CoinCost:          300,
	},
	{
		Name:              types.PlanAdvanced,
		Speed:             100,
		Chains:            []types.ChainID{types.ChainETH, types.ChainBNB, types.ChainMATIC, types.ChainAVAX},
		PrivateKeyScanner: true,
		Description:       "Professional grade with higher speeds and more chains.",
		Price:             "$99.99/month",
		CoinCost:          1000,
	},
	{
		Name:              types.PlanPremium,
		Speed:             1000,
		Chains:            types.AllChains,
		PrivateKeyScanner: true,
		Description:       "Ultimate package with maximum speed and all chains.",
		Price:             "$299.99/month",
		CoinCost:          3000,
	},
}

// Catalog returns all plans in ascending tier order
func Catalog() []Features {
	out := make([]Features, len(catalog))
	copy(out, catalog)
	return out
}

// ByName looks up a plan's features
func ByName(name types.Plan) (Features, bool) {
	for _, f := range catalog {
		if f.Name == name {
			return f, true
		}
	}
	return Features{}, false
}

// Allows reports whether the plan covers the given chain
func (f Features) Allows(chain types.ChainID) bool {
	for _, c := range f.Chains {
		if c == chain {
			return true
		}
	}
	return false
}
