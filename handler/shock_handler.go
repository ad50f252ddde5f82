package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"credit-circuit/banking"
	"credit-circuit/model"
)

// ShockQueue accepts parameter shocks for the banks.
type ShockQueue interface {
	// MergeShock applies merge to the parameters of the next period and
	// queues the result, as one step. It returns the queued parameters.
	MergeShock(merge func(banking.Params) banking.Params) (banking.Params, error)
}

// ShockHandler holds dependencies for parameter shocks.
type ShockHandler struct {
	queue  ShockQueue
	logger *slog.Logger
}

// NewShockHandler creates a new ShockHandler.
func NewShockHandler(queue ShockQueue, logger *slog.Logger) *ShockHandler {
	return &ShockHandler{queue: queue, logger: logger}
}

// CreateShockHandler schedules a change of bank parameters. Fields left out
// of the body keep their current value.
//
// Method: POST
// Path: /shocks
// Success: 202 Accepted, with the parameters that will apply
// Error: 400 Bad Request (for invalid JSON, an empty shock or out-of-range parameters)
// Error: 500 Internal Server Error
func (h *ShockHandler) CreateShockHandler(w http.ResponseWriter, r *http.Request) {
	var req model.ShockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Empty() {
		http.Error(w, "Shock changes no parameter", http.StatusBadRequest)
		return
	}

	p, err := h.queue.MergeShock(func(p banking.Params) banking.Params {
		return applyShock(p, req)
	})
	if err != nil {
		if errors.Is(err, banking.ErrBadParams) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("queueing shock failed", "error", err)
		http.Error(w, "Failed to queue shock", http.StatusInternalServerError)
		return
	}
	h.logger.Info("parameter shock queued", "normal_rate", p.NormalRate.String(), "penalty_rate", p.PenaltyRate.String())
	writeJSON(w, h.logger, http.StatusAccepted, paramsView(p))
}

func applyShock(p banking.Params, req model.ShockRequest) banking.Params {
	if req.NormalRate != nil {
		p.NormalRate = *req.NormalRate
	}
	if req.PenaltyRate != nil {
		p.PenaltyRate = *req.PenaltyRate
	}
	if req.CapitalRatio != nil {
		p.CapitalRatio = *req.CapitalRatio
	}
	if req.PropensityToDistribute != nil {
		p.PropensityToDistribute = *req.PropensityToDistribute
	}
	if req.ExtendedTerm != nil {
		p.ExtendedTerm = *req.ExtendedTerm
	}
	if req.Patience != nil {
		p.Patience = *req.Patience
	}
	if req.ShortTermHorizon != nil {
		p.ShortTermHorizon = *req.ShortTermHorizon
	}
	return p
}

func paramsView(p banking.Params) model.ShockRequest {
	return model.ShockRequest{
		NormalRate:             &p.NormalRate,
		PenaltyRate:            &p.PenaltyRate,
		CapitalRatio:           &p.CapitalRatio,
		PropensityToDistribute: &p.PropensityToDistribute,
		ExtendedTerm:           &p.ExtendedTerm,
		Patience:               &p.Patience,
		ShortTermHorizon:       &p.ShortTermHorizon,
	}
}
