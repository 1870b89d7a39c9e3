package http

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	mongoadapter "github.com/ticketvault/ticketvault/internal/adapters/mongo"
	"github.com/ticketvault/ticketvault/internal/config"
	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/idempotency"
	"github.com/ticketvault/ticketvault/internal/ledger"
	"github.com/ticketvault/ticketvault/internal/observability"
)

type Handlers struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	idemp  *idempotency.Idempotency
	audit  *mongoadapter.AuditLogger
	logger observability.Logger
}

// NewHandlers wires the ledger behind the HTTP surface. idemp and audit may be
// nil when redis/mongo are not configured.
func NewHandlers(cfg *config.Config, lg *ledger.Ledger, idemp *idempotency.Idempotency, audit *mongoadapter.AuditLogger, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		ledger: lg,
		idemp:  idemp,
		audit:  audit,
		logger: logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) []byte {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.Code(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrBlacklisted):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCapacity), errors.Is(err, domain.ErrInvalidDate):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientPayment), errors.Is(err, domain.ErrTokenTransferFailed):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrEventAlreadyStarted), errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrEventNotEnded), errors.Is(err, domain.ErrNoFunds),
		errors.Is(err, domain.ErrTicketsAlreadySold):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSerializationFailure):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": code})
}

func (h *Handlers) auditLog(r *http.Request, action string, caller domain.Address, data map[string]interface{}) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Log(r.Context(), action, caller, data); err != nil {
		h.logger.WithField("action", action).Warn("audit write failed")
	}
}

func eventIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}

	var req struct {
		Name     string    `json:"name"`
		StartsAt time.Time `json:"starts_at"`
		PriceUSD uint64    `json:"price_usd"`
		Capacity uint64    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.ledger.CreateEvent(r.Context(), caller, req.Name, req.StartsAt, req.PriceUSD, req.Capacity)
	if err != nil {
		writeError(w, err)
		return
	}

	h.auditLog(r, "event.created", caller, map[string]interface{}{"event_id": id, "name": req.Name})
	writeJSON(w, http.StatusCreated, map[string]uint64{"event_id": id})
}

func (h *Handlers) EditEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}
	id, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		StartsAt time.Time `json:"starts_at"`
		PriceUSD uint64    `json:"price_usd"`
		Capacity uint64    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ledger.EditEvent(r.Context(), caller, id, req.StartsAt, req.PriceUSD, req.Capacity); err != nil {
		writeError(w, err)
		return
	}

	h.auditLog(r, "event.updated", caller, map[string]interface{}{"event_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	view, err := h.ledger.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) GetAttendees(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	attendees, err := h.ledger.GetAttendees(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if attendees == nil {
		attendees = []domain.Address{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendees": attendees})
}

// replayIdempotent serves a cached response for the request's key, if any.
// Returns true when the request was already handled.
func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request) bool {
	if h.idemp == nil {
		return false
	}
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return true
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return true
	}
	return false
}

func (h *Handlers) rememberIdempotent(r *http.Request, status int, body []byte) {
	if h.idemp == nil {
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: body}); err != nil {
		h.logger.Warn("idempotency write failed")
	}
}

func (h *Handlers) BuyWithNative(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}
	id, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if h.replayIdempotent(w, r) {
		return
	}

	var req struct {
		AmountWei string `json:"amount_wei"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sent, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok {
		http.Error(w, "invalid amount_wei", http.StatusBadRequest)
		return
	}

	receipt, err := h.ledger.BuyWithNative(r.Context(), caller, id, sent)
	if err != nil {
		observability.PurchasesRejectedTotal.WithLabelValues(domain.Code(err)).Inc()
		writeError(w, err)
		return
	}
	observability.TicketsSoldTotal.WithLabelValues("native").Inc()

	h.auditLog(r, "ticket.purchased", caller, map[string]interface{}{
		"event_id":  id,
		"payment":   "native",
		"price_wei": receipt.PriceWei.String(),
	})
	body := writeJSON(w, http.StatusCreated, map[string]string{
		"event_id":   strconv.FormatUint(id, 10),
		"price_wei":  receipt.PriceWei.String(),
		"refund_wei": receipt.RefundWei.String(),
	})
	h.rememberIdempotent(r, http.StatusCreated, body)
}

func (h *Handlers) BuyWithToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}
	id, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if h.replayIdempotent(w, r) {
		return
	}

	receipt, err := h.ledger.BuyWithToken(r.Context(), caller, id)
	if err != nil {
		observability.PurchasesRejectedTotal.WithLabelValues(domain.Code(err)).Inc()
		writeError(w, err)
		return
	}
	observability.TicketsSoldTotal.WithLabelValues("token").Inc()

	h.auditLog(r, "ticket.purchased", caller, map[string]interface{}{
		"event_id":  id,
		"payment":   "token",
		"price_wei": receipt.PriceWei.String(),
	})
	body := writeJSON(w, http.StatusCreated, map[string]string{
		"event_id":  strconv.FormatUint(id, 10),
		"price_wei": receipt.PriceWei.String(),
	})
	h.rememberIdempotent(r, http.StatusCreated, body)
}

func (h *Handlers) WithdrawEventFunds(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}
	id, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	amount, err := h.ledger.WithdrawEventFunds(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.FundsWithdrawnTotal.Inc()

	h.auditLog(r, "funds.withdrawn", caller, map[string]interface{}{"event_id": id, "amount_wei": amount.String()})
	writeJSON(w, http.StatusOK, map[string]string{"amount_wei": amount.String()})
}

func (h *Handlers) WithdrawAdminFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}

	amount, err := h.ledger.WithdrawAdminFee(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.AdminFeeWithdrawnTotal.Inc()

	h.auditLog(r, "admin_fee.withdrawn", caller, map[string]interface{}{"amount_wei": amount.String()})
	writeJSON(w, http.StatusOK, map[string]string{"amount_wei": amount.String()})
}

func (h *Handlers) AddWhitelistedCreator(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}

	var req struct {
		Address domain.Address `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	if err := h.ledger.AddWhitelistedCreator(r.Context(), caller, req.Address); err != nil {
		writeError(w, err)
		return
	}

	h.auditLog(r, "creator.whitelisted", caller, map[string]interface{}{"address": req.Address})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdateBlacklist(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "MissingCaller"})
		return
	}

	var req struct {
		Address     domain.Address `json:"address"`
		Blacklisted bool           `json:"blacklisted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	if err := h.ledger.UpdateBlacklist(r.Context(), caller, req.Address, req.Blacklisted); err != nil {
		writeError(w, err)
		return
	}

	h.auditLog(r, "blacklist.updated", caller, map[string]interface{}{
		"address":     req.Address,
		"blacklisted": req.Blacklisted,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Rate(w http.ResponseWriter, r *http.Request) {
	conv := h.ledger.Converter()
	writeJSON(w, http.StatusOK, map[string]uint64{
		"eth_to_usd_rate":   conv.RateUSD(),
		"admin_fee_percent": conv.FeePercent(),
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
