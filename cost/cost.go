// Package cost estimates proving cost for a block range. The raw numbers come
// from the external op-succinct cost-estimator CLI; the closed form cost
// model turns the total proof gas into USD scenarios for several bisection
// depths.
package cost

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNoEstimate is returned when the estimator output carries no usable
// metrics table.
var ErrNoEstimate = errors.New("no estimate found in cost-estimator output")

// CycleShare is one slice of the total cycle breakdown.
type CycleShare struct {
	Cycles uint64  `json:"cycles"`
	Pct    float64 `json:"pct"`
}

// Breakdown splits the total cycles over the proving phases.
type Breakdown struct {
	BlobVerification CycleShare `json:"blobVerification"`
	Derivation       CycleShare `json:"derivation"`
	Execution        CycleShare `json:"execution"`
	OracleVerify     CycleShare `json:"oracleVerify"`
}

// PerBlock carries per block averages of the estimate.
type PerBlock struct {
	AvgCycles uint64 `json:"avgCycles"`
	AvgGas    uint64 `json:"avgGas"`
}

// Estimate is the parsed result of a cost-estimator run. It is also the
// Complete payload of the estimation event stream.
type Estimate struct {
	BlockRange      [2]uint64 `json:"blockRange"`
	NumBlocks       uint64    `json:"numBlocks"`
	NumTransactions uint64    `json:"numTransactions"`
	TotalCycles     uint64    `json:"totalCycles"`
	TotalPgu        uint64    `json:"totalPgu"`
	EthGasUsed      uint64    `json:"ethGasUsed"`
	Breakdown       Breakdown `json:"breakdown"`
	PerBlock        PerBlock  `json:"perBlock"`
}

// metric names as printed by the cost-estimator stdout table
var metricKeys = map[string]string{
	"Batch Start":              "batch_start",
	"Batch End":                "batch_end",
	"Total Instruction Count":  "total_cycles",
	"Total SP1 Gas":            "total_pgu",
	"Number of Blocks":         "num_blocks",
	"Number of Transactions":   "num_txs",
	"Ethereum Gas Used":        "eth_gas",
	"Oracle Verify Cycles":     "oracle_cycles",
	"Derivation Cycles":        "derivation_cycles",
	"Block Execution Cycles":   "execution_cycles",
	"Blob Verification Cycles": "blob_cycles",
	"Cycles per Block":         "cycles_per_block",
	"Cycles per Transaction":   "cycles_per_tx",
}

// ParseEstimatorOutput extracts the metrics table from the raw stdout of a
// cost-estimator run. The table rows look like:
//
//	| Total Instruction Count        |               567,566,494 |
//
// Unknown rows are skipped. An output without a Total SP1 Gas value yields
// ErrNoEstimate.
func ParseEstimatorOutput(output string) (*Estimate, error) {
	values := map[string]uint64{}
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "|") ||
			strings.Contains(line, "---") ||
			strings.Contains(line, "Metric") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		metric := strings.TrimSpace(parts[1])
		key, ok := metricKeys[metric]
		if !ok {
			continue
		}
		raw := strings.ReplaceAll(strings.TrimSpace(parts[2]), ",", "")
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		values[key] = value
	}

	if values["total_pgu"] == 0 {
		return nil, ErrNoEstimate
	}

	totalCycles := values["total_cycles"]
	pct := func(v uint64) float64 {
		if totalCycles == 0 {
			return 0
		}
		return round1(float64(v) / float64(totalCycles) * 100)
	}

	numBlocks := values["num_blocks"]
	avgGasDivisor := numBlocks
	if avgGasDivisor == 0 {
		avgGasDivisor = 1
	}

	return &Estimate{
		BlockRange:      [2]uint64{values["batch_start"], values["batch_end"]},
		NumBlocks:       numBlocks,
		NumTransactions: values["num_txs"],
		TotalCycles:     totalCycles,
		TotalPgu:        values["total_pgu"],
		EthGasUsed:      values["eth_gas"],
		Breakdown: Breakdown{
			BlobVerification: CycleShare{Cycles: values["blob_cycles"], Pct: pct(values["blob_cycles"])},
			Derivation:       CycleShare{Cycles: values["derivation_cycles"], Pct: pct(values["derivation_cycles"])},
			Execution:        CycleShare{Cycles: values["execution_cycles"], Pct: pct(values["execution_cycles"])},
			OracleVerify:     CycleShare{Cycles: values["oracle_cycles"], Pct: pct(values["oracle_cycles"])},
		},
		PerBlock: PerBlock{
			AvgCycles: values["cycles_per_block"],
			AvgGas:    values["eth_gas"] / avgGasDivisor,
		},
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
