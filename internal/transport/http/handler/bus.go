package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/pkg/validate"
)

const maxEventBody = 64 << 10

type publisher interface {
	Publish(ctx context.Context, payload domain.Payload) (domain.DomainEvent, error)
}

// BusHandler accepts domain events from other backend services.
type BusHandler struct {
	bus publisher
}

func NewBusHandler(bus publisher) *BusHandler { return &BusHandler{bus: bus} }

// Publish handles POST /v1/bus/{kind}. The body is the kind's JSON payload.
func (h *BusHandler) Publish(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "event body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload, err := domain.DecodePayload(domain.EventKind(chi.URLParam(r, "kind")), raw)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	evt, err := h.bus.Publish(r.Context(), payload)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, PublishedEnvelope{ID: evt.ID, Kind: evt.Kind})
}
