package handler

import (
	"net/http"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
)

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) error {
	u, err := h.svc.Users.Profile(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUser(u))
	return nil
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name   *string `json:"name"`
		Mobile *string `json:"mobile"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	u, err := h.svc.Users.UpdateProfile(r.Context(), claimsFrom(r.Context()).UserID, user.ProfileUpdate{
		Name:   req.Name,
		Mobile: req.Mobile,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUser(u))
	return nil
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	err := h.svc.Users.ChangePassword(r.Context(), claimsFrom(r.Context()).UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
	return nil
}

func (h *Handler) subscribe(on bool) endpoint {
	msg := "Unsubscribed from the newsletter"
	if on {
		msg = "Subscribed to the newsletter"
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		if err := h.svc.Users.SetSubscription(r.Context(), claimsFrom(r.Context()).UserID, on); err != nil {
			return err
		}
		writeMessage(w, http.StatusOK, msg)
		return nil
	}
}

type addressRequest struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"addressLine1"`
	Line2      string `json:"addressLine2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

func (a addressRequest) input() address.Input {
	return address.Input{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
	}
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) error {
	list, err := h.svc.Addresses.List(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toAddress))
	return nil
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) error {
	var req addressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	a, err := h.svc.Addresses.Create(r.Context(), claimsFrom(r.Context()).UserID, req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toAddress(a))
	return nil
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req addressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	a, err := h.svc.Addresses.Update(r.Context(), claimsFrom(r.Context()).UserID, id, req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toAddress(a))
	return nil
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Addresses.SetDefault(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Default address updated")
	return nil
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Addresses.Delete(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Address deleted")
	return nil
}
