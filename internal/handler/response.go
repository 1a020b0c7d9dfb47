package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickserve/kiosk/internal/domain/settlement"
)

// Error codes carried in the failure envelope.
const (
	codeValidation  = "VALIDATION_ERROR"
	codeNotFound    = "ORDER_NOT_FOUND"
	codeItemUnknown = "ITEM_NOT_FOUND"
	codePreflight   = "PREFLIGHT_FAILED"
	codeAmbiguous   = "AMBIGUOUS_PAYMENT_OUTCOME"
	codeState       = "INVALID_ORDER_STATE"
	codeInternal    = "INTERNAL_ERROR"
)

// writeSuccess writes the success envelope, letting fields append payload
// members to the open object.
func writeSuccess(w http.ResponseWriter, status int, fields func(e *jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	if fields != nil {
		fields(&e)
	}
	e.ObjEnd()
	writeBody(w, status, e.Bytes())
}

// writeFailure writes the failure envelope.
func writeFailure(w http.ResponseWriter, status int, code, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("errorCode")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeBody(w, status, e.Bytes())
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeSettlementError maps the settlement error taxonomy onto HTTP
// responses. Ambiguous payment outcomes get their own code so the kiosk can
// route to the "contact staff" screen rather than the generic failure one.
func writeSettlementError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *settlement.ValidationError
		pErr *settlement.PreflightError
		aErr *settlement.AmbiguousOutcomeError
		tErr *settlement.InvalidTransitionError
	)
	switch {
	case errors.As(err, &vErr):
		writeFailure(w, http.StatusBadRequest, codeValidation, vErr.Error())
	case errors.Is(err, settlement.ErrOrderNotFound):
		writeFailure(w, http.StatusNotFound, codeNotFound, "order not found")
	case errors.As(err, &aErr):
		writeFailure(w, http.StatusConflict, codeAmbiguous,
			"payment may have succeeded but could not be confirmed; please contact staff")
	case errors.As(err, &tErr):
		writeFailure(w, http.StatusConflict, codeState, tErr.Error())
	case errors.As(err, &pErr):
		zctx.From(r.Context()).Error("Preflight step failed", zap.Error(err))
		writeFailure(w, http.StatusBadGateway, codePreflight, pErr.Error())
	default:
		zctx.From(r.Context()).Error("Unhandled settlement error", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
