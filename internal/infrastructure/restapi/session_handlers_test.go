package restapi

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vest_orchestrator/internal/app/port/porttest"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type stubRefresher struct {
	calls    int
	snapshot entity.Snapshot
	view     *entity.HiddenSlotView
	err      error
}

func (s *stubRefresher) Resync(_ context.Context, sess *session.Session) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	sess.State.StoreSnapshot(s.snapshot)
	if s.view != nil {
		sess.State.StoreHiddenSlots(*s.view)
	}
	return nil
}

type stubSlots struct{}

func (stubSlots) TierFees(_ context.Context, _ *session.Session, tier int) (entity.FeeBreakdown, error) {
	return entity.FeeBreakdown{Total: big.NewInt(int64(tier)), TotalFormatted: "tier"}, nil
}

type stubOrchestrator struct {
	outcome  entity.TxOutcome
	side     entity.Side
	referral uint64
	child    string
}

func (s *stubOrchestrator) ApproveEntry(context.Context, *session.Session) entity.TxOutcome {
	return s.outcome
}

func (s *stubOrchestrator) ApproveHiddenSlot(_ context.Context, _ *session.Session, side entity.Side) entity.TxOutcome {
	s.side = side
	return s.outcome
}

func (s *stubOrchestrator) Join(_ context.Context, _ *session.Session, referral uint64, side entity.Side) entity.TxOutcome {
	s.referral, s.side = referral, side
	return s.outcome
}

func (s *stubOrchestrator) CreateHiddenSlot(_ context.Context, _ *session.Session, child string, side entity.Side) entity.TxOutcome {
	s.child, s.side = child, side
	return s.outcome
}

type testServer struct {
	router       *gin.Engine
	refresher    *stubRefresher
	orchestrator *stubOrchestrator
	sess         *session.Session
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	desc := entity.NetworkDescriptor{ChainID: 1337, Name: "Ganache", MembershipContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}
	sess := session.NewSession(desc, account, porttest.NewFakeChain(1337), nil, nil, nil)
	ts := &testServer{
		refresher:    &stubRefresher{},
		orchestrator: &stubOrchestrator{},
		sess:         sess,
	}
	h := NewSessionHandler(sess, ts.refresher, stubSlots{}, ts.orchestrator, logger.NewNop())
	ts.router = SetupRouter(h, prometheus.NewRegistry(), nil)
	return ts
}

func (ts *testServer) do(method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var resp APIResponse
	_ = jsoniter.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer()

	rec, _ := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec, _ = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetNetwork(t *testing.T) {
	ts := newTestServer()

	rec, resp := ts.do(http.MethodGet, "/api/v1/network", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"account":"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`)
	assert.Equal(t, "Network resolved.", resp.StatusMessage)
}

func TestGetSnapshot_SyncsOnceWhenEmpty(t *testing.T) {
	ts := newTestServer()
	ts.refresher.snapshot = entity.Snapshot{Stats: entity.GlobalStats{TotalMembers: 40}, Degraded: []entity.DegradedField{entity.DegradedLiquidity}}

	rec, resp := ts.do(http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp.StatusMessage, "totalLiquidity")

	_, _ = ts.do(http.MethodGet, "/api/v1/snapshot", "")
	assert.Equal(t, 1, ts.refresher.calls)
}

func TestPostSync_Failure(t *testing.T) {
	ts := newTestServer()
	ts.refresher.err = entity.RemoteError(errors.New("connection refused"))

	rec, resp := ts.do(http.MethodPost, "/api/v1/sync", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, entity.KindRemoteCallFailed, resp.Error.Kind)
	assert.Equal(t, "connection refused", resp.Error.Message)
}

func TestGetHiddenSlots(t *testing.T) {
	ts := newTestServer()

	rec, resp := ts.do(http.MethodGet, "/api/v1/hidden-slots", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, entity.KindNotRegistered, resp.Error.Kind)

	ts = newTestServer()
	ts.refresher.snapshot = entity.Snapshot{Member: &entity.MembershipRecord{Registered: true, TreeIndex: 5}}
	ts.refresher.view = &entity.HiddenSlotView{MemberIndex: 5}
	rec, _ = ts.do(http.MethodGet, "/api/v1/hidden-slots", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memberIndex":5`)
}

func TestGetTierFees(t *testing.T) {
	ts := newTestServer()

	rec, _ := ts.do(http.MethodGet, "/api/v1/hidden-slots/fees?tier=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	rec, _ = ts.do(http.MethodGet, "/api/v1/hidden-slots/fees?tier=9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostJoin(t *testing.T) {
	ts := newTestServer()
	ts.orchestrator.outcome = entity.TxOutcome{Kind: entity.TxKindJoin, Success: true, Status: 1, TxHash: "0xabc"}

	rec, resp := ts.do(http.MethodPost, "/api/v1/join", `{"referralIndex":3,"side":"right"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(3), ts.orchestrator.referral)
	assert.Equal(t, entity.SideRight, ts.orchestrator.side)
	assert.Equal(t, "Transaction confirmed.", resp.StatusMessage)
}

func TestPostJoin_BadRequests(t *testing.T) {
	ts := newTestServer()
	for _, body := range []string{`{"side":"left"}`, `{"referralIndex":3,"side":"up"}`, `not json`} {
		rec, _ := ts.do(http.MethodPost, "/api/v1/join", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestPostHiddenSlot_GateFailureStatus(t *testing.T) {
	ts := newTestServer()
	ts.orchestrator.outcome = entity.TxOutcome{Kind: entity.TxKindCreateHiddenSlot, ErrorKind: entity.KindSideCapacityExceeded, Error: "maximum hidden wallets reached for the Left side"}

	rec, resp := ts.do(http.MethodPost, "/api/v1/hidden-slots", `{"child":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","side":"left"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Transaction not submitted.", resp.StatusMessage)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", ts.orchestrator.child)
}

func TestPostApprovals(t *testing.T) {
	ts := newTestServer()
	ts.orchestrator.outcome = entity.TxOutcome{Kind: entity.TxKindApprove, Success: true, Skipped: true}

	rec, resp := ts.do(http.MethodPost, "/api/v1/approvals/entry", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Allowance already sufficient, nothing submitted.", resp.StatusMessage)

	ts.orchestrator.outcome = entity.TxOutcome{Kind: entity.TxKindApprove, TxHash: "0xdead", Status: 0}
	rec, resp = ts.do(http.MethodPost, "/api/v1/approvals/hidden-slot", `{"side":"Right"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Transaction mined but reverted.", resp.StatusMessage)
	assert.Equal(t, entity.SideRight, ts.orchestrator.side)
}
