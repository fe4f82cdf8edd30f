package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Dan9191/bank-cards/internal/middleware"
	"github.com/Dan9191/bank-cards/internal/service"
)

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// IssueCard issues a new card to a user
func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	card, err := h.admin.Issue(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, card)
}

// ListCards pages through every card
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cards, err := h.admin.GetAll(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cards)
}

// ListUserCards pages through the cards of one user
func (h *Handler) ListUserCards(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cards, err := h.admin.GetUserCards(r.Context(), id, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cards)
}

// ExportCards downloads the XML card register
func (h *Handler) ExportCards(w http.ResponseWriter, r *http.Request) {
	doc, err := h.admin.ExportRegister(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="card-register.xml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// ConfirmBlock blocks a card after its owner requested it
func (h *Handler) ConfirmBlock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.admin.ConfirmBlock(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ActivateCard returns a card to ACTIVE
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.admin.Activate(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// DeleteCard removes a card
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	message, err := h.admin.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: message})
}

// ListUsers pages through every user
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	users, err := h.users.List(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

// GetUser returns one user
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// GetUserByPhone looks a user up by phone number
func (h *Handler) GetUserByPhone(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByPhone(r.Context(), mux.Vars(r)["phone"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// UpdateUser edits a user's profile
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req profileRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.Update(r.Context(), id, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	message, err := h.users.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: message})
}
