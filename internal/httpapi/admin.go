package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/applywizz/portal/internal/auth"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/httputil"
	"github.com/applywizz/portal/internal/middleware"
)

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Admin.Login(r.Context(), req.Email, req.Password)
	h.Metrics.RecordAdminLogin(err)
	if err != nil {
		if svcerrors.IsCode(err, svcerrors.CodeUnauthorized) {
			h.log.LogSecurityEvent(r.Context(), "admin_login_failed", map[string]interface{}{
				"email": req.Email,
				"ip":    middleware.ClientIP(r),
			})
		}
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r)
	if err == nil {
		if err := h.Sessions.Revoke(r.Context(), token); err != nil {
			h.log.WithContext(r.Context()).WithError(err).Warn("revoke session on logout")
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	user, err := h.Admin.Admin(r.Context(), sess.AdminID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"admin":      user,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *handler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Admin.Overview(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ov)
}

func (h *handler) paymentSettings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Admin.PaymentSettings(r.Context()))
}

func (h *handler) updatePaymentSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentSettings
	if !decode(w, r, &req) {
		return
	}
	before := h.Admin.PaymentSettings(r.Context())
	settings, err := h.Admin.UpdatePaymentSettings(r.Context(), req.Method, req.Account)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if settings != before {
		h.Metrics.RecordGatewaySwitch()
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (h *handler) gateways(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Admin.Gateways(r.Context()))
}

func (h *handler) pricing(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Admin.Pricing(r.Context()))
}

func (h *handler) updatePricing(w http.ResponseWriter, r *http.Request) {
	var req domain.Pricing
	if !decode(w, r, &req) {
		return
	}
	prices, err := h.Admin.UpdatePricing(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prices)
}

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Status:  q.Get("status"),
		Method:  q.Get("method"),
		Account: q.Get("account"),
		Search:  q.Get("search"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, r, svcerrors.BadRequest("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	cursor, err := domain.DecodeCursor(q.Get("cursor"))
	if err != nil {
		httputil.WriteError(w, r, svcerrors.BadRequest("invalid cursor"))
		return
	}
	filter.Cursor = cursor

	page, err := h.Admin.Transactions(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) transactionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Admin.TransactionStats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *handler) transaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Admin.Transaction(r.Context(), mux.Vars(r)["jbId"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tx)
}

func (h *handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.ListAdmins(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, err := h.Admin.CreateAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if err := h.Admin.DeleteAdmin(r.Context(), sess.AdminID, mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) updateAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.Admin.UpdateAdminPassword(r.Context(), mux.Vars(r)["id"], req.Password); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setAdminActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Active == nil {
		httputil.WriteError(w, r, svcerrors.Validation(svcerrors.FieldErrors{"active": "active is required"}))
		return
	}
	sess, _ := auth.FromContext(r.Context())
	user, err := h.Admin.SetAdminActive(r.Context(), sess.AdminID, mux.Vars(r)["id"], *req.Active)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *handler) storageCheck(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		httputil.WriteError(w, r, svcerrors.Config("object storage is not configured"))
		return
	}
	if err := h.Storage.Check(r.Context()); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"bucket": h.StorageTarget,
	})
}
