package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-cards/internal/apperr"
	"github.com/Dan9191/bank-cards/internal/middleware"
	"github.com/Dan9191/bank-cards/internal/models"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = apperr.New(apperr.KindInvalidInput, "request body is not valid JSON")

type messageResponse struct {
	Message string `json:"message"`
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRejected, apperr.KindInvalidStatus, apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Errors without a kind are logged and hidden
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.log.WithField("path", r.URL.Path).WithError(err).Error("Request failed")
	}
	middleware.WriteError(w, statusOf(kind), apperr.MessageOf(err))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "invalid id")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("query parameter %s must be a non-negative integer", name))
	}
	return v, nil
}

func pageRequest(r *http.Request) (models.PageRequest, error) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		return models.PageRequest{}, err
	}
	if page > models.MaxPage {
		return models.PageRequest{}, apperr.New(apperr.KindInvalidInput,
			fmt.Sprintf("query parameter page must not exceed %d", models.MaxPage))
	}
	size, err := queryInt(r, "size", models.DefaultPageSize)
	if err != nil {
		return models.PageRequest{}, err
	}
	if size > models.MaxPageSize {
		return models.PageRequest{}, apperr.New(apperr.KindInvalidInput,
			fmt.Sprintf("query parameter size must not exceed %d", models.MaxPageSize))
	}
	return models.PageRequest{Page: page, Size: size}.Normalize(), nil
}

// validAmount checks a money amount at the API boundary
func validAmount(amount *decimal.Decimal) error {
	if amount == nil {
		return models.ErrNonPositiveAmount
	}
	return models.CheckAmount(*amount)
}

func principal(r *http.Request) (*models.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return nil, errors.New("no principal on authenticated route")
	}
	return p, nil
}
