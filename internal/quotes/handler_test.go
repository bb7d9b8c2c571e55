package quotes

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassline-erp/glassline-erp/internal/shared"
	_ "github.com/glassline-erp/glassline-erp/testing"
)

func newTestHandler(repo Repository) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, newTestService(repo, nil), nil)
}

func authedRequest(method, target string, form url.Values) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	sess := &shared.Session{ID: "test-session"}
	sess.SetUser(7)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func withQuoteID(req *http.Request, id int64) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", strconv.FormatInt(id, 10))
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func sampleCreateForm() url.Values {
	return url.Values{
		"quote_date":             {"2026-08-29"},
		"customer_name":          {"Sample Customer"},
		"customer_phone":         {"9000000000"},
		"quote_type":             {"B2C"},
		"payment_terms":          {"50% advance"},
		"items[0][particular]":   {"Toughened 12mm"},
		"items[0][is_group]":     {"true"},
		"items[0][item_number]":  {"1"},
		"items[0][cutout_price]": {"300"},
		"items[1][particular]":   {"Shopfront panel"},
		"items[1][parent_id]":    {"group-1"},
		"items[1][actual_width]": {"1000"},
		"items[1][actual_height]": {"1000"},
		"items[1][unit]":         {"MM"},
		"items[1][quantity]":     {"2"},
		"items[1][rate_sqper]":   {"800"},
		"items[1][cutout]":       {"1"},
	}
}

func TestHandlerCreateQuoteFromForm(t *testing.T) {
	repo := newMockRepository()
	h := newTestHandler(repo)

	res := httptest.NewRecorder()
	h.Create(res, authedRequest(http.MethodPost, "/quotes", sampleCreateForm()))

	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var quote Quote
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &quote))
	assert.Equal(t, "QUO-1001", quote.QuoteNumber)
	assert.Equal(t, QuoteStatusDraft, quote.Status)
	assert.Equal(t, int64(7), quote.CreatedBy)
	assert.InDelta(t, 1997.44, quote.Subtotal, 1e-6)
	assert.InDelta(t, 2357.0, quote.Total, 1e-6)
	require.Len(t, quote.Items, 2)
}

func TestHandlerCreateRejectsMalformedItemNumber(t *testing.T) {
	form := sampleCreateForm()
	form.Set("items[1][rate_sqper]", "not-a-number")
	h := newTestHandler(newMockRepository())

	res := httptest.NewRecorder()
	h.Create(res, authedRequest(http.MethodPost, "/quotes", form))

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandlerCreateRequiresQuoteDate(t *testing.T) {
	form := sampleCreateForm()
	form.Del("quote_date")
	h := newTestHandler(newMockRepository())

	res := httptest.NewRecorder()
	h.Create(res, authedRequest(http.MethodPost, "/quotes", form))

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandlerCreateRejectsUnknownQuoteType(t *testing.T) {
	form := sampleCreateForm()
	form.Set("quote_type", "WHOLESALE")
	h := newTestHandler(newMockRepository())

	res := httptest.NewRecorder()
	h.Create(res, authedRequest(http.MethodPost, "/quotes", form))

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandlerCreateRejectsUnparseableDeliveryDate(t *testing.T) {
	form := sampleCreateForm()
	form.Set("expected_delivery", "next tuesday")
	h := newTestHandler(newMockRepository())

	res := httptest.NewRecorder()
	h.Create(res, authedRequest(http.MethodPost, "/quotes", form))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "expected_delivery")
}

func TestHandlerUpdateRejectsUnparseableDeliveryDate(t *testing.T) {
	repo := newMockRepository()
	h := newTestHandler(repo)

	create := httptest.NewRecorder()
	h.Create(create, authedRequest(http.MethodPost, "/quotes", sampleCreateForm()))
	require.Equal(t, http.StatusCreated, create.Code)
	var quote Quote
	require.NoError(t, json.Unmarshal(create.Body.Bytes(), &quote))

	res := httptest.NewRecorder()
	form := url.Values{"expected_delivery": {"2026-13-40"}}
	h.Update(res, withQuoteID(authedRequest(http.MethodPost, "/quotes/1/edit", form), quote.ID))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "expected_delivery")
}

func TestHandlerShowNotFound(t *testing.T) {
	h := newTestHandler(newMockRepository())

	res := httptest.NewRecorder()
	h.Show(res, withQuoteID(authedRequest(http.MethodGet, "/quotes/99", nil), 99))

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))
}

func withQuoteNumber(req *http.Request, number string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("number", number)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlerShowByNumber(t *testing.T) {
	repo := newMockRepository()
	h := newTestHandler(repo)

	create := httptest.NewRecorder()
	h.Create(create, authedRequest(http.MethodPost, "/quotes", sampleCreateForm()))
	require.Equal(t, http.StatusCreated, create.Code)

	res := httptest.NewRecorder()
	h.ShowByNumber(res, withQuoteNumber(authedRequest(http.MethodGet, "/quotes/number/QUO-1001", nil), "QUO-1001"))

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var quote Quote
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &quote))
	assert.Equal(t, "QUO-1001", quote.QuoteNumber)
	assert.Len(t, quote.Items, 2)

	missing := httptest.NewRecorder()
	h.ShowByNumber(missing, withQuoteNumber(authedRequest(http.MethodGet, "/quotes/number/QUO-9999", nil), "QUO-9999"))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestHandlerUpdateStatusConflict(t *testing.T) {
	repo := newMockRepository()
	h := newTestHandler(repo)

	create := httptest.NewRecorder()
	h.Create(create, authedRequest(http.MethodPost, "/quotes", sampleCreateForm()))
	require.Equal(t, http.StatusCreated, create.Code)
	var quote Quote
	require.NoError(t, json.Unmarshal(create.Body.Bytes(), &quote))

	res := httptest.NewRecorder()
	form := url.Values{"status": {"ACCEPTED"}}
	h.UpdateStatus(res, withQuoteID(authedRequest(http.MethodPost, "/quotes/1/status", form), quote.ID))

	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestHandlerDuplicate(t *testing.T) {
	repo := newMockRepository()
	h := newTestHandler(repo)

	create := httptest.NewRecorder()
	h.Create(create, authedRequest(http.MethodPost, "/quotes", sampleCreateForm()))
	require.Equal(t, http.StatusCreated, create.Code)
	var quote Quote
	require.NoError(t, json.Unmarshal(create.Body.Bytes(), &quote))

	res := httptest.NewRecorder()
	h.Duplicate(res, withQuoteID(authedRequest(http.MethodPost, "/quotes/1/duplicate", nil), quote.ID))

	require.Equal(t, http.StatusCreated, res.Code)
	var dup Quote
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &dup))
	assert.Equal(t, "QUO-1002", dup.QuoteNumber)
	assert.Len(t, dup.Items, 2)
}

func TestHandlerListFiltersByStatus(t *testing.T) {
	repo := newMockRepository()
	h := newTestHandler(repo)

	create := httptest.NewRecorder()
	h.Create(create, authedRequest(http.MethodPost, "/quotes", sampleCreateForm()))
	require.Equal(t, http.StatusCreated, create.Code)

	res := httptest.NewRecorder()
	h.List(res, authedRequest(http.MethodGet, "/quotes?status=DRAFT", nil))

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		Quotes []Quote `json:"quotes"`
		Total  int     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.Total)

	empty := httptest.NewRecorder()
	h.List(empty, authedRequest(http.MethodGet, "/quotes?status=EXPIRED", nil))
	require.Equal(t, http.StatusOK, empty.Code)
	require.NoError(t, json.Unmarshal(empty.Body.Bytes(), &payload))
	assert.Equal(t, 0, payload.Total)
}

func TestHandlerListRejectsBogusStatus(t *testing.T) {
	h := newTestHandler(newMockRepository())

	res := httptest.NewRecorder()
	h.List(res, authedRequest(http.MethodGet, "/quotes?status=BOGUS", nil))

	assert.Equal(t, http.StatusBadRequest, res.Code)
}
