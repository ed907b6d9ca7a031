package cost

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testModelCfg = ModelConfig{
	CompressedBaseFee:  0.1,
	CompressedPguPrice: 1.0,
	PlonkFee:           0.15,
}

func TestProofCostFullBatch(t *testing.T) {
	// 2.5e9 PGU = 2.5 bPGU
	c := ProofCostAt(2_500_000_000, 0, testModelCfg)
	require.Equal(t, 2.5, c.Bpgu)
	require.Equal(t, 2.6, c.Compressed)
	require.Equal(t, 0.15, c.Plonk)
	require.Equal(t, 2.75, c.TotalProve)
}

func TestProofCostHalvesPerDepth(t *testing.T) {
	full := ProofCostAt(2_500_000_000, 0, testModelCfg)
	for depth := 1; depth <= 11; depth++ {
		c := ProofCostAt(2_500_000_000, depth, testModelCfg)
		require.InDelta(t, full.Bpgu/float64(uint64(1)<<depth), c.Bpgu, 1e-6,
			"depth %d", depth)
		// the fixed fees do not shrink with bisection
		require.Equal(t, testModelCfg.PlonkFee, c.Plonk)
		require.GreaterOrEqual(t, c.Compressed, testModelCfg.CompressedBaseFee)
	}
}

func TestScenarios(t *testing.T) {
	scenarios := Scenarios(2_500_000_000, 0.34, testModelCfg)
	require.Len(t, scenarios, 5)

	require.Equal(t, "Full Batch", scenarios[0].Label)
	require.Equal(t, 0, scenarios[0].Depth)
	require.Equal(t, "Bisect d=5", scenarios[1].Label)
	require.Equal(t, "Bisect d=7", scenarios[2].Label)
	require.Equal(t, "Bisect d=10", scenarios[3].Label)
	require.Equal(t, "Bisect d=11", scenarios[4].Label)

	// deeper bisection never costs more
	for i := 1; i < len(scenarios); i++ {
		require.LessOrEqual(t, scenarios[i].TotalProve, scenarios[i-1].TotalProve)
	}

	require.Equal(t, 0.935, scenarios[0].USD) // 2.75 * 0.34
}

func TestGetModelEchoesParameters(t *testing.T) {
	model := GetModel(2_500_000_000, 0.5, testModelCfg)
	require.Equal(t, 0.5, model.ProvePriceUSD)
	require.Equal(t, testModelCfg.CompressedBaseFee, model.CompressedBaseFee)
	require.Equal(t, testModelCfg.CompressedPguPrice, model.CompressedPguPrice)
	require.Equal(t, testModelCfg.PlonkFee, model.PlonkFee)
	require.Equal(t, uint64(2_500_000_000), model.TotalPgu)
	require.Len(t, model.Scenarios, 5)
}
