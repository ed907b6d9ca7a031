package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rollupops/disputedash/cost"
	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/log"
	"github.com/rollupops/disputedash/tree"
	"github.com/rollupops/disputedash/txsender"
)

type stubL2 struct {
	block   uint64
	safe    uint64
	blockOK bool
	safeOK  bool
}

func (s *stubL2) CurrentBlock(context.Context) (uint64, error) {
	if !s.blockOK {
		return 0, errors.New("connection refused")
	}
	return s.block, nil
}

func (s *stubL2) SafeBlock(context.Context) (uint64, error) {
	if !s.safeOK {
		return 0, errors.New("connection refused")
	}
	return s.safe, nil
}

// stubStreamer replays a canned event sequence for every operation.
type stubStreamer struct {
	path   string
	events []events.Event
}

func (s *stubStreamer) replay() <-chan events.Event {
	ch := make(chan events.Event, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch
}

func (s *stubStreamer) BuildTree(context.Context, uint64, uint64) <-chan events.Event {
	return s.replay()
}

func (s *stubStreamer) OutputPath() string { return s.path }

func (s *stubStreamer) SendBatch(context.Context, int) <-chan events.Event {
	return s.replay()
}

func (s *stubStreamer) Run(context.Context, uint64, uint64) <-chan events.Event {
	return s.replay()
}

func newTestDashboard(l2 *stubL2, stub *stubStreamer) (*DashboardEndpoints, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	d := NewDashboardEndpoints(
		log.WithFields("module", "rpc-test"),
		time.Second,
		l2,
		"http://localhost:9545",
		stub,
		stub,
		stub,
		cost.ModelConfig{CompressedBaseFee: 0.1, CompressedPguPrice: 1.0, PlonkFee: 0.15},
	)
	engine := gin.New()
	d.RegisterRoutes(engine, "testdata")
	return d, engine
}

func doGET(t *testing.T, engine *gin.Engine, path string) map[string]interface{} {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// closeNotifyRecorder adds the http.CloseNotifier method gin's Stream
// requires, which httptest.ResponseRecorder does not implement.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool { return c.closed }

func doPOST(t *testing.T, engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(&closeNotifyRecorder{rec, make(chan bool, 1)}, req)
	return rec
}

func TestStatusConnected(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{block: 42, blockOK: true}, &stubStreamer{})

	body := doGET(t, engine, "/api/status")
	require.Equal(t, float64(42), body["l2_block"])
	require.Equal(t, true, body["connected"])
	require.Equal(t, false, body["tree_loaded"])
	require.Nil(t, body["tree_block_range"])
}

func TestStatusDisconnected(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{})

	body := doGET(t, engine, "/api/status")
	require.Nil(t, body["l2_block"])
	require.Equal(t, false, body["connected"])
}

func TestConfigView(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{path: "/tmp/tree.json"})

	body := doGET(t, engine, "/api/config")
	require.Equal(t, "http://localhost:9545", body["l2_rpc"])
	require.Equal(t, "/tmp/tree.json", body["tree_output_path"])
	model, ok := body["cost_model"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, 0.1, model["compressed_base_fee"])
}

func TestSafeBlock(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{safe: 40, safeOK: true}, &stubStreamer{})
	body := doGET(t, engine, "/api/safe-block")
	require.Equal(t, float64(40), body["safe_block"])
}

func TestSafeBlockUnavailable(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{})
	body := doGET(t, engine, "/api/safe-block")
	require.Nil(t, body["safe_block"])
}

func TestTreeNotLoaded(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{path: "/nonexistent/tree.json"})

	body := doGET(t, engine, "/api/tree")
	require.Equal(t, "No tree loaded", body["error"])
	require.Nil(t, body["tree"])

	body = doGET(t, engine, "/api/tree/raw")
	require.Equal(t, "No tree loaded", body["error"])
}

func TestTreeEndpoints(t *testing.T) {
	path := t.TempDir() + "/tree.json"
	leafA := common.HexToHash("0xaa")
	leafB := common.HexToHash("0xbb")
	envelope := &tree.Envelope{
		BlockStart:     100,
		BlockEnd:       101,
		Depth:          1,
		NumBlocks:      2,
		NumLeaves:      2,
		RootCommitment: common.HexToHash("0x01"),
		Blocks: []tree.BlockInfo{
			{Number: 100, StateRoot: leafA},
			{Number: 101, StateRoot: leafB},
		},
		CommitmentsBFS: []common.Hash{common.HexToHash("0x01"), leafA, leafB},
	}
	require.NoError(t, tree.SaveEnvelope(path, envelope))

	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{path: path})

	raw := doGET(t, engine, "/api/tree/raw")
	require.Equal(t, float64(100), raw["blockStart"])
	require.Equal(t, float64(101), raw["blockEnd"])

	hierarchical := doGET(t, engine, "/api/tree")
	metadata, ok := hierarchical["metadata"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), metadata["depth"])
	require.NotNil(t, hierarchical["tree"])
}

func TestBuildTreeStreamUpdatesState(t *testing.T) {
	stub := &stubStreamer{events: []events.Event{
		events.NewProgress(events.ProgressData{Step: "started"}),
		events.NewComplete(tree.BuildSummary{Depth: 2}),
	}}
	_, engine := newTestDashboard(&stubL2{}, stub)

	rec := doPOST(t, engine, "/api/build-tree", `{"block_start":100,"block_end":103}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "event:progress")
	require.Contains(t, rec.Body.String(), "event:complete")

	body := doGET(t, engine, "/api/status")
	require.Equal(t, true, body["tree_loaded"])
	require.Equal(t, []interface{}{float64(100), float64(103)}, body["tree_block_range"])
}

func TestSendTxsStreamRecordsBlockRange(t *testing.T) {
	stub := &stubStreamer{events: []events.Event{
		events.NewComplete(txsender.Summary{BlockStart: 10, BlockEnd: 13, TxCount: 3}),
	}}
	_, engine := newTestDashboard(&stubL2{}, stub)

	rec := doPOST(t, engine, "/api/send-txs", `{"count":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := doGET(t, engine, "/api/last-block-range")
	require.Equal(t, []interface{}{float64(10), float64(13)}, body["block_range"])
}

func TestSendTxsRejectsBadBody(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{})
	rec := doPOST(t, engine, "/api/send-txs", `{"count":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCostFlow(t *testing.T) {
	estimate := &cost.Estimate{TotalPgu: 2_500_000_000, NumBlocks: 20}
	stub := &stubStreamer{events: []events.Event{
		events.NewComplete(estimate),
	}}
	_, engine := newTestDashboard(&stubL2{}, stub)

	// before any run both cost endpoints report missing data
	body := doGET(t, engine, "/api/cost-data")
	require.Equal(t, "No cost data available", body["error"])
	body = doGET(t, engine, "/api/cost-model")
	require.Contains(t, body["error"], "No cost data")

	rec := doPOST(t, engine, "/api/estimate-cost", `{"block_start":100,"block_end":119}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "event:complete")

	body = doGET(t, engine, "/api/cost-data")
	require.Equal(t, float64(2_500_000_000), body["totalPgu"])

	body = doGET(t, engine, "/api/cost-model")
	require.Equal(t, 0.34, body["prove_price_usd"])
	scenarios, ok := body["scenarios"].([]interface{})
	require.True(t, ok)
	require.Len(t, scenarios, 5)

	body = doGET(t, engine, "/api/cost-model?prove_price_usd=1.5")
	require.Equal(t, 1.5, body["prove_price_usd"])
}

func TestLastBlockRangeEmpty(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{})
	body := doGET(t, engine, "/api/last-block-range")
	require.Nil(t, body["block_range"])
}

func TestIndexFallback(t *testing.T) {
	_, engine := newTestDashboard(&stubL2{}, &stubStreamer{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Dashboard")
}
