package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandisetu/mandisetu-backend/api/middleware"
	"github.com/mandisetu/mandisetu-backend/internal/groupbuys"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	pkgerrors "github.com/mandisetu/mandisetu-backend/pkg/errors"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
)

type testGroupBuysService struct {
	joinFn            func(ctx context.Context, input groupbuys.JoinInput) (*groupbuys.JoinResult, error)
	acceptFn          func(ctx context.Context, input groupbuys.AcceptInput) (*groupbuys.GroupBuyDTO, error)
	updateStatusFn    func(ctx context.Context, input groupbuys.UpdateStatusInput) (*groupbuys.GroupBuyDTO, error)
	listOpenFn        func(ctx context.Context, hubID *uuid.UUID, limit int, cursor string) (*groupbuys.ListResult, error)
	listForSupplierFn func(ctx context.Context, supplierID uuid.UUID, status *enums.GroupBuyStatus, limit int, cursor string) (*groupbuys.ListResult, error)
}

func (s *testGroupBuysService) Join(ctx context.Context, input groupbuys.JoinInput) (*groupbuys.JoinResult, error) {
	if s.joinFn != nil {
		return s.joinFn(ctx, input)
	}
	return nil, nil
}

func (s *testGroupBuysService) Accept(ctx context.Context, input groupbuys.AcceptInput) (*groupbuys.GroupBuyDTO, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, input)
	}
	return nil, nil
}

func (s *testGroupBuysService) UpdateStatus(ctx context.Context, input groupbuys.UpdateStatusInput) (*groupbuys.GroupBuyDTO, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, input)
	}
	return nil, nil
}

func (s *testGroupBuysService) ListOpen(ctx context.Context, hubID *uuid.UUID, limit int, cursor string) (*groupbuys.ListResult, error) {
	if s.listOpenFn != nil {
		return s.listOpenFn(ctx, hubID, limit, cursor)
	}
	return &groupbuys.ListResult{}, nil
}

func (s *testGroupBuysService) ListForSupplier(ctx context.Context, supplierID uuid.UUID, status *enums.GroupBuyStatus, limit int, cursor string) (*groupbuys.ListResult, error) {
	if s.listForSupplierFn != nil {
		return s.listForSupplierFn(ctx, supplierID, status, limit, cursor)
	}
	return &groupbuys.ListResult{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestJoinGroupBuySuccess(t *testing.T) {
	userID := uuid.New()
	groupBuyID := uuid.New()
	var captured groupbuys.JoinInput
	svc := &testGroupBuysService{
		joinFn: func(ctx context.Context, input groupbuys.JoinInput) (*groupbuys.JoinResult, error) {
			captured = input
			return &groupbuys.JoinResult{
				OrderID:    uuid.New(),
				GroupBuyID: input.GroupBuyID,
				Quantity:   input.Quantity,
				Total:      input.Quantity.Mul(decimal.NewFromInt(20)),
				Message:    "Successfully joined the deal!",
			}, nil
		},
	}

	body := strings.NewReader(`{"quantity": 5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/group-buys/"+groupBuyID.String()+"/join", body)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = addRouteParam(req, "groupBuyId", groupBuyID.String())

	resp := httptest.NewRecorder()
	JoinGroupBuy(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.UserID != userID || captured.GroupBuyID != groupBuyID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if !captured.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected quantity %s", captured.Quantity)
	}

	var envelope struct {
		Data groupbuys.JoinResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Message != "Successfully joined the deal!" {
		t.Fatalf("unexpected message %q", envelope.Data.Message)
	}
}

func TestJoinGroupBuyRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/group-buys/"+uuid.NewString()+"/join", strings.NewReader(`{"quantity": 5}`))
	req = addRouteParam(req, "groupBuyId", uuid.NewString())

	resp := httptest.NewRecorder()
	JoinGroupBuy(&testGroupBuysService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestJoinGroupBuyRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/group-buys/"+uuid.NewString()+"/join", strings.NewReader(`{"quantity": 5, "bogus": true}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "groupBuyId", uuid.NewString())

	resp := httptest.NewRecorder()
	JoinGroupBuy(&testGroupBuysService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestJoinGroupBuyMapsStateConflict(t *testing.T) {
	svc := &testGroupBuysService{
		joinFn: func(ctx context.Context, input groupbuys.JoinInput) (*groupbuys.JoinResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deal is no longer open")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/group-buys/"+uuid.NewString()+"/join", strings.NewReader(`{"quantity": 5}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "groupBuyId", uuid.NewString())

	resp := httptest.NewRecorder()
	JoinGroupBuy(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAcceptGroupBuyPassesSupplier(t *testing.T) {
	supplierID := uuid.New()
	groupBuyID := uuid.New()
	svc := &testGroupBuysService{
		acceptFn: func(ctx context.Context, input groupbuys.AcceptInput) (*groupbuys.GroupBuyDTO, error) {
			if input.SupplierID != supplierID || input.GroupBuyID != groupBuyID {
				t.Fatalf("unexpected input %+v", input)
			}
			return &groupbuys.GroupBuyDTO{ID: groupBuyID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/group-buys/"+groupBuyID.String()+"/accept", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), supplierID.String()))
	req = addRouteParam(req, "groupBuyId", groupBuyID.String())

	resp := httptest.NewRecorder()
	AcceptGroupBuy(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateGroupBuyStatusRejectsUnknownValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/group-buys/"+uuid.NewString()+"/status", strings.NewReader(`{"status": "bogus"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "groupBuyId", uuid.NewString())

	resp := httptest.NewRecorder()
	UpdateGroupBuyStatus(&testGroupBuysService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListGroupBuysParsesHubFilter(t *testing.T) {
	hubID := uuid.New()
	var captured *uuid.UUID
	svc := &testGroupBuysService{
		listOpenFn: func(ctx context.Context, hub *uuid.UUID, limit int, cursor string) (*groupbuys.ListResult, error) {
			captured = hub
			return &groupbuys.ListResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/group-buys?hubId="+hubID.String(), nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	ListGroupBuys(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if captured == nil || *captured != hubID {
		t.Fatalf("expected hub filter %s, got %v", hubID, captured)
	}
}

func TestListSupplierGroupBuysParsesStatusFilter(t *testing.T) {
	var captured *enums.GroupBuyStatus
	svc := &testGroupBuysService{
		listForSupplierFn: func(ctx context.Context, supplierID uuid.UUID, status *enums.GroupBuyStatus, limit int, cursor string) (*groupbuys.ListResult, error) {
			captured = status
			return &groupbuys.ListResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/group-buys/supplier?status=processing", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	ListSupplierGroupBuys(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if captured == nil || *captured != enums.GroupBuyStatusProcessing {
		t.Fatalf("expected processing filter, got %v", captured)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/group-buys/supplier?status=bogus", nil)
	bad = bad.WithContext(middleware.WithUserID(bad.Context(), uuid.NewString()))
	resp = httptest.NewRecorder()
	ListSupplierGroupBuys(svc, testLogger())(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status filter, got %d", resp.Code)
	}
}
