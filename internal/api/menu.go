package api

import (
	"net/http"

	"ms-lounge/internal/models"
)

type menuItemRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
}

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) error {
	var (
		items []models.MenuItem
		err   error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		items, err = h.Menu.ListByCategory(r.Context(), category)
	} else {
		items, err = h.Menu.ListAll(r.Context())
	}
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", items)
	return nil
}

func (h *Handler) MenuCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := h.Menu.Categories(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", categories)
	return nil
}

func (h *Handler) InactiveMenu(w http.ResponseWriter, r *http.Request) error {
	items, err := h.Menu.ListInactive(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", items)
	return nil
}

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	item, err := h.Menu.Get(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", item)
	return nil
}

func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) error {
	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	item, err := h.Menu.Add(r.Context(), req.Name, req.Price, req.Category)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusCreated, "menu item added", item)
	return nil
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	item, err := h.Menu.Update(r.Context(), id, req.Name, req.Price, req.Category)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "menu item updated", item)
	return nil
}

func (h *Handler) DeactivateMenuItem(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	if err := h.Menu.Deactivate(r.Context(), id); err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "menu item deactivated", nil)
	return nil
}

func (h *Handler) RestoreMenuItem(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	if err := h.Menu.Restore(r.Context(), id); err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "menu item restored", nil)
	return nil
}
