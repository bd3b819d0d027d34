package api

import (
	"net/http"

	"ms-lounge/internal/customer"
	"ms-lounge/internal/models"
)

func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) error {
	var req customer.NewUser
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	u, err := h.Customers.AddUser(r.Context(), req)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusCreated, "user registered", u)
	return nil
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.Customers.ListUsers(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", users)
	return nil
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	u, err := h.Customers.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", u)
	return nil
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	if err := h.Customers.DeactivateUser(r.Context(), id); err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "user deactivated", nil)
	return nil
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	statement, err := h.Customers.Statement(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", statement)
	return nil
}

// RecordTransaction books an earn or spend of a positive amount.
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		Amount      int64                  `json:"amount"`
		Kind        models.TransactionKind `json:"kind"`
		Description string                 `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	balance, err := h.Customers.RecordTransaction(r.Context(), id, req.Amount, req.Kind, req.Description)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "bonus recorded", map[string]int64{"balance": balance})
	return nil
}

func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.Customers.RecordPurchase(r.Context(), id, req.Amount); err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "purchase recorded", nil)
	return nil
}

func (h *Handler) AwardReferral(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	award, err := h.Customers.AwardReferralBonus(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", award)
	return nil
}

func (h *Handler) Referrals(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	stats, err := h.Customers.ReferrerStats(r.Context(), id)
	if err != nil {
		return err
	}
	users, err := h.Customers.ReferredUsers(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", map[string]any{
		"link":  h.Customers.ReferralLink(id),
		"stats": stats,
		"users": users,
	})
	return nil
}

// ReferralQR serves the referral link as a PNG.
func (h *Handler) ReferralQR(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	png, err := h.Customers.ReferralQR(r.Context(), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(png)
	return err
}

func (h *Handler) CreateBonusRequest(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	br, err := h.Customers.CreateBonusRequest(r.Context(), id, req.Amount)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusCreated, "bonus request created", br)
	return nil
}

func (h *Handler) PendingBonusRequests(w http.ResponseWriter, r *http.Request) error {
	reqs, err := h.Customers.ListPendingRequests(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", reqs)
	return nil
}

func (h *Handler) ResolveBonusRequest(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status models.BonusRequestStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	br, err := h.Customers.SetBonusRequestStatus(r.Context(), id, req.Status)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "bonus request "+string(br.Status), br)
	return nil
}
