package cost

import (
	"fmt"
	"math"
)

const (
	pguPerBpgu = 1_000_000_000

	bpguRoundDigits = 6
	costRoundDigits = 4
)

// bisection depths offered next to the full batch scenario
var bisectionDepths = []int{5, 7, 10, 11}

// ModelConfig represents the configuration of the proving cost model.
type ModelConfig struct {
	// CompressedBaseFee is the fixed fee of a compressed proof, in prove units.
	CompressedBaseFee float64 `mapstructure:"CompressedBaseFee"`
	// CompressedPguPrice is the price per bPGU of a compressed proof.
	CompressedPguPrice float64 `mapstructure:"CompressedPguPrice"`
	// PlonkFee is the fixed fee of the final PLONK wrap.
	PlonkFee float64 `mapstructure:"PlonkFee"`
}

// ProofCost is the cost of proving one (possibly bisected) batch slice.
type ProofCost struct {
	Bpgu       float64 `json:"bpgu"`
	Compressed float64 `json:"compressed"`
	Plonk      float64 `json:"plonk"`
	TotalProve float64 `json:"total_prove"`
}

// Scenario is a proving cost projection at a given bisection depth.
type Scenario struct {
	Label      string  `json:"label"`
	Depth      int     `json:"depth"`
	Bpgu       float64 `json:"bpgu"`
	Compressed float64 `json:"compressed"`
	Plonk      float64 `json:"plonk"`
	TotalProve float64 `json:"total_prove"`
	USD        float64 `json:"usd"`
}

// Model is the full cost model response: the parameters it was computed with
// plus the scenario table.
type Model struct {
	ProvePriceUSD      float64    `json:"prove_price_usd"`
	CompressedBaseFee  float64    `json:"compressed_base_fee"`
	CompressedPguPrice float64    `json:"compressed_pgu_price"`
	PlonkFee           float64    `json:"plonk_fee"`
	TotalPgu           uint64     `json:"total_pgu"`
	Scenarios          []Scenario `json:"scenarios"`
}

// ProofCostAt computes the proving cost of totalPgu at the given bisection
// depth. Each bisection level halves the proof gas of a slice:
//
//	compressed = baseFee + bPGU * pguPrice
//	total      = compressed + plonkFee
func ProofCostAt(totalPgu uint64, bisectionDepth int, cfg ModelConfig) ProofCost {
	bpgu := float64(totalPgu) / pguPerBpgu
	if bisectionDepth > 0 {
		bpgu /= math.Pow(2, float64(bisectionDepth))
	}
	compressed := cfg.CompressedBaseFee + bpgu*cfg.CompressedPguPrice
	return ProofCost{
		Bpgu:       roundTo(bpgu, bpguRoundDigits),
		Compressed: roundTo(compressed, costRoundDigits),
		Plonk:      cfg.PlonkFee,
		TotalProve: roundTo(compressed+cfg.PlonkFee, costRoundDigits),
	}
}

// Scenarios computes the cost projection table: the full batch plus the
// standard bisection depths.
func Scenarios(totalPgu uint64, provePriceUSD float64, cfg ModelConfig) []Scenario {
	depths := append([]int{0}, bisectionDepths...)
	scenarios := make([]Scenario, 0, len(depths))
	for _, depth := range depths {
		c := ProofCostAt(totalPgu, depth, cfg)
		label := "Full Batch"
		if depth > 0 {
			label = fmt.Sprintf("Bisect d=%d", depth)
		}
		scenarios = append(scenarios, Scenario{
			Label:      label,
			Depth:      depth,
			Bpgu:       c.Bpgu,
			Compressed: c.Compressed,
			Plonk:      c.Plonk,
			TotalProve: c.TotalProve,
			USD:        roundTo(c.TotalProve*provePriceUSD, costRoundDigits),
		})
	}
	return scenarios
}

// GetModel bundles the scenario table with the parameters used to compute it.
func GetModel(totalPgu uint64, provePriceUSD float64, cfg ModelConfig) Model {
	return Model{
		ProvePriceUSD:      provePriceUSD,
		CompressedBaseFee:  cfg.CompressedBaseFee,
		CompressedPguPrice: cfg.CompressedPguPrice,
		PlonkFee:           cfg.PlonkFee,
		TotalPgu:           totalPgu,
		Scenarios:          Scenarios(totalPgu, provePriceUSD, cfg),
	}
}

func roundTo(v float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(v*factor) / factor
}
