package httpapi

import (
	"net/http"
	"time"

	"github.com/applywizz/portal/internal/checkout"
	"github.com/applywizz/portal/internal/httputil"
)

func (h *handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	hash, err := h.Checkout.SendOTP(r.Context(), req.Email)
	h.Metrics.RecordOTP("send", err)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"sent": true, "hash": hash})
}

func (h *handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
		Hash  string `json:"hash"`
	}
	if !decode(w, r, &req) {
		return
	}

	token, exp, err := h.Checkout.VerifyOTP(r.Context(), req.Email, req.Code, req.Hash)
	h.Metrics.RecordOTP("verify", err)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"verified":   true,
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		checkout.Form
		VerificationToken string `json:"verification_token"`
	}
	if !decode(w, r, &req) {
		return
	}

	intent, err := h.Checkout.CreateIntent(r.Context(), req.Form, req.VerificationToken)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, intent)
}
