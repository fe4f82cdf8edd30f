package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-cards/internal/apperr"
	"github.com/Dan9191/bank-cards/internal/middleware"
	"github.com/Dan9191/bank-cards/internal/models"
)

type fundsRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	From   *int64           `json:"from"`
	To     *int64           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
}

type blockRequest struct {
	Reason string `json:"reason"`
}

// SearchCards lists the caller's cards
func (h *Handler) SearchCards(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter, err := cardFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cards, err := h.cards.Search(r.Context(), p.UserID, filter, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cards)
}

func cardFilter(r *http.Request) (models.CardFilter, error) {
	var filter models.CardFilter
	q := r.URL.Query()
	if raw := q.Get("card_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperr.New(apperr.KindInvalidInput, "query parameter card_id must be an integer")
		}
		filter.CardID = &id
	}
	if raw := q.Get("last4"); raw != "" {
		filter.Last4 = &raw
	}
	if raw := q.Get("status"); raw != "" {
		status := models.ParseCardStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, apperr.New(apperr.KindInvalidInput, "unknown card status "+raw)
		}
		filter.Status = &status
	}
	return filter, nil
}

// ShowBalance returns the balance of one of the caller's cards
func (h *Handler) ShowBalance(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	balance, err := h.cards.ShowBalance(r.Context(), id, p.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, balance)
}

// Deposit credits a card
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.cards.Deposit)
}

// Withdraw debits a card
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.cards.Withdraw)
}

type fundsOperation func(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error)

func (h *Handler) moveFunds(w http.ResponseWriter, r *http.Request, op fundsOperation) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req fundsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validAmount(req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}

	receipt, err := op(r.Context(), id, p.UserID, *req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, receipt)
}

// Transfer moves money between two of the caller's cards
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req transferRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.From == nil || req.To == nil {
		h.fail(w, r, apperr.New(apperr.KindInvalidInput, "from and to card ids are required"))
		return
	}
	if err := validAmount(req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}

	receipt, err := h.cards.Transfer(r.Context(), *req.From, *req.To, p.UserID, *req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, receipt)
}

// RequestBlock asks an administrator to block one of the caller's cards
func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req blockRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		h.fail(w, r, apperr.New(apperr.KindInvalidInput, "reason must not be blank"))
		return
	}

	result, err := h.cards.RequestBlock(r.Context(), p.UserID, id, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}
