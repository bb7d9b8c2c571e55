package quotes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/glassline-erp/glassline-erp/internal/observability"
	"github.com/glassline-erp/glassline-erp/internal/platform/httpx"
	"github.com/glassline-erp/glassline-erp/internal/shared"
)

// Handler exposes quote operations over HTTP. Responses are JSON; the
// request side speaks the form wire format of the quote editor.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListQuotesRequest{Limit: 50}

	if v := r.URL.Query().Get("status"); v != "" {
		status := QuoteStatus(v)
		req.Status = &status
	}
	if v := r.URL.Query().Get("type"); v != "" {
		qt := QuoteType(v)
		req.QuoteType = &qt
	}
	req.DateFrom = parseDateParam(r.URL.Query().Get("date_from"))
	req.DateTo = parseDateParam(r.URL.Query().Get("date_to"))
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}

	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": items, "total": total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}

	quote, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// ShowByNumber resolves a quote by its document number, the identifier
// customers actually quote back on the phone.
func (h *Handler) ShowByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing quote number")
		return
	}

	quote, err := h.service.GetByNumber(r.Context(), number)
	if err != nil {
		h.respondServiceError(w, "get quote by number", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form payload")
		return
	}

	req, err := h.parseCreateForm(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	quote, err := h.service.Create(r.Context(), req, currentUserID(r))
	if err != nil {
		h.respondServiceError(w, "create quote", err)
		return
	}

	if h.metrics != nil {
		h.metrics.QuoteCreated(string(quote.QuoteType))
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form payload")
		return
	}

	req, err := h.parseUpdateForm(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	quote, err := h.service.Update(r.Context(), id, req, currentUserID(r))
	if err != nil {
		h.respondServiceError(w, "update quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// ReplaceItems rebuilds the entire item tree of an existing quote from a
// fresh submission.
func (h *Handler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form payload")
		return
	}

	records, err := ParseItemForm(r.PostForm)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	quote, err := h.service.ReplaceItems(r.Context(), id, records, currentUserID(r))
	if err != nil {
		h.respondServiceError(w, "replace quote items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}

	quote, err := h.service.Duplicate(r.Context(), id, currentUserID(r))
	if err != nil {
		h.respondServiceError(w, "duplicate quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form payload")
		return
	}

	status := QuoteStatus(r.PostFormValue("status"))
	quote, err := h.service.UpdateStatus(r.Context(), id, status, currentUserID(r))
	if err != nil {
		h.respondServiceError(w, "update quote status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}

	if err := h.service.Delete(r.Context(), id, currentUserID(r)); err != nil {
		h.respondServiceError(w, "delete quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseCreateForm(r *http.Request) (CreateQuoteRequest, error) {
	var req CreateQuoteRequest

	quoteDate, err := parseRequiredDate("quote_date", r.PostFormValue("quote_date"))
	if err != nil {
		return req, err
	}
	req.QuoteDate = quoteDate
	req.ExpectedDelivery, err = parseOptionalDate("expected_delivery", r.PostFormValue("expected_delivery"))
	if err != nil {
		return req, err
	}

	req.CustomerName = r.PostFormValue("customer_name")
	req.CustomerPhone = r.PostFormValue("customer_phone")
	req.CustomerEmail = r.PostFormValue("customer_email")
	req.BillingAddress = r.PostFormValue("billing_address")
	req.ShippingAddress = r.PostFormValue("shipping_address")
	req.SelfPickup = parseFormBool(r.PostFormValue("self_pickup"))
	req.PaymentTerms = r.PostFormValue("payment_terms")

	req.QuoteType = QuoteTypeB2C
	if v := r.PostFormValue("quote_type"); v != "" {
		req.QuoteType = QuoteType(v)
	}

	req.GSTPercentage = 18
	if v := r.PostFormValue("gst_percentage"); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("field gst_percentage: invalid number %q", v)
		}
		req.GSTPercentage = pct
	}

	charges, err := parseChargeFields(r)
	if err != nil {
		return req, err
	}
	req.Charges = charges

	items, err := ParseItemForm(r.PostForm)
	if err != nil {
		return req, err
	}
	req.Items = items
	return req, nil
}

func (h *Handler) parseUpdateForm(r *http.Request) (UpdateQuoteRequest, error) {
	var req UpdateQuoteRequest

	if v := r.PostFormValue("quote_date"); v != "" {
		t, err := parseRequiredDate("quote_date", v)
		if err != nil {
			return req, err
		}
		req.QuoteDate = &t
	}
	delivery, err := parseOptionalDate("expected_delivery", r.PostFormValue("expected_delivery"))
	if err != nil {
		return req, err
	}
	req.ExpectedDelivery = delivery

	for field, dst := range map[string]**string{
		"customer_name":    &req.CustomerName,
		"customer_phone":   &req.CustomerPhone,
		"customer_email":   &req.CustomerEmail,
		"billing_address":  &req.BillingAddress,
		"shipping_address": &req.ShippingAddress,
		"payment_terms":    &req.PaymentTerms,
	} {
		if _, ok := r.PostForm[field]; ok {
			v := r.PostFormValue(field)
			*dst = &v
		}
	}

	if _, ok := r.PostForm["self_pickup"]; ok {
		v := parseFormBool(r.PostFormValue("self_pickup"))
		req.SelfPickup = &v
	}
	if v := r.PostFormValue("gst_percentage"); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("field gst_percentage: invalid number %q", v)
		}
		req.GSTPercentage = &pct
	}

	if hasChargeFields(r) {
		charges, err := parseChargeFields(r)
		if err != nil {
			return req, err
		}
		req.Charges = &charges
	}

	if hasItemFields(r) {
		items, err := ParseItemForm(r.PostForm)
		if err != nil {
			return req, err
		}
		req.Items = &items
	}
	return req, nil
}

var chargeFormFields = []string{
	"delivery_charges", "installation_charges", "freight_charges", "transport_charges",
	"cutout_charges", "holes_charges", "shape_cutting_charges", "jumbo_size_charges",
	"template_charges", "handling_charges", "polish_charges", "document_charges", "frosted_charges",
}

func parseChargeFields(r *http.Request) (Charges, error) {
	var c Charges
	targets := map[string]*float64{
		"delivery_charges":      &c.Delivery,
		"installation_charges":  &c.Installation,
		"freight_charges":       &c.Freight,
		"transport_charges":     &c.Transport,
		"cutout_charges":        &c.Cutout,
		"holes_charges":         &c.Holes,
		"shape_cutting_charges": &c.ShapeCutting,
		"jumbo_size_charges":    &c.JumboSize,
		"template_charges":      &c.Template,
		"handling_charges":      &c.Handling,
		"polish_charges":        &c.Polish,
		"document_charges":      &c.Document,
		"frosted_charges":       &c.Frosted,
	}
	for field, dst := range targets {
		v := r.PostFormValue(field)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("field %s: invalid number %q", field, v)
		}
		*dst = f
	}
	return c, nil
}

func hasChargeFields(r *http.Request) bool {
	for _, field := range chargeFormFields {
		if _, ok := r.PostForm[field]; ok {
			return true
		}
	}
	return false
}

func hasItemFields(r *http.Request) bool {
	for key := range r.PostForm {
		if itemFieldPattern.MatchString(key) {
			return true
		}
	}
	return false
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isNotFound(err):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "quote not found")
	case isInvalidStatus(err):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "could not save quote")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isInvalidStatus(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

func quoteIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func currentUserID(r *http.Request) int64 {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return 0
}

// parseDateParam is lenient and only used for list filters, where a bad
// value simply narrows nothing.
func parseDateParam(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// parseOptionalDate is for document payload fields: absent is fine,
// present-but-unparseable fails the submit.
func parseOptionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid date %q", field, s)
	}
	return &t, nil
}

func parseRequiredDate(field, s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: invalid date %q", field, s)
	}
	return t, nil
}
