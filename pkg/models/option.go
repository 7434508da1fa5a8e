package models

// ContractType distinguishes calls from puts.
type ContractType string

const (
	ContractCall ContractType = "call"
	ContractPut  ContractType = "put"
)

// ValidContractType reports whether s is "call" or "put".
func ValidContractType(s string) bool {
	return ContractType(s) == ContractCall || ContractType(s) == ContractPut
}

// OptionContract describes one listed option contract.
type OptionContract struct {
	Ticker         string       `json:"ticker"` // e.g. O:SPY240119C00400000
	Underlying     string       `json:"underlying"`
	StrikePrice    float64      `json:"strike_price"`
	ExpirationDate string       `json:"expiration_date"` // YYYY-MM-DD
	ContractType   ContractType `json:"contract_type"`
	SharesPer      float64      `json:"shares_per_contract,omitempty"`
}

// Greeks holds the option sensitivities reported by a snapshot.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// OptionQuote is the latest bid/ask for a contract.
type OptionQuote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// OptionTrade is the latest trade for a contract.
type OptionTrade struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size,omitempty"`
}

// OptionSnapshot is the full market state of one contract.
type OptionSnapshot struct {
	Contract          OptionContract `json:"contract"`
	Greeks            *Greeks        `json:"greeks,omitempty"`
	ImpliedVolatility float64        `json:"implied_volatility,omitempty"`
	OpenInterest      float64        `json:"open_interest,omitempty"`
	LastQuote         *OptionQuote   `json:"last_quote,omitempty"`
	LastTrade         *OptionTrade   `json:"last_trade,omitempty"`
}

// MidPrice returns the contract's price, preferring the bid/ask midpoint
// and falling back to the last trade when quotes are missing or zero.
// Returns 0 when no price is available.
func (s *OptionSnapshot) MidPrice() float64 {
	if q := s.LastQuote; q != nil && q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	if t := s.LastTrade; t != nil && t.Price > 0 {
		return t.Price
	}
	return 0
}
