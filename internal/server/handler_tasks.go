package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/me/durq/internal/region"
	"github.com/me/durq/pkg/task"
)

// handleAddTask decodes a task envelope from the request body and
// enqueues it.
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var env task.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		respondError(w, reqID, http.StatusBadRequest, "bad_request", "invalid task envelope: "+err.Error())
		return
	}

	t, err := s.codec.DecodeEnvelope(&env)
	if err != nil {
		respondError(w, reqID, http.StatusUnprocessableEntity, "unknown_task", err.Error())
		return
	}

	if err := s.scheduler.AddTask(r.Context(), t); err != nil {
		if errors.Is(err, region.ErrRegionFull) {
			respondError(w, reqID, http.StatusInsufficientStorage, "queue_full", err.Error())
			return
		}
		respondError(w, reqID, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	depth, _ := s.queue.Len(r.Context())
	respondCreated(w, reqID, map[string]any{
		"queued": true,
		"depth":  depth,
	})
}

// handleRun triggers one drain pass over the queue.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if err := s.scheduler.Run(r.Context()); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	depth, _ := s.queue.Len(r.Context())
	respondOK(w, reqID, map[string]any{
		"drained": true,
		"depth":   depth,
	})
}

// handleQueue lists the live queue contents as envelopes.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	envs, err := s.queue.List(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	total, err := s.queue.Total(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	respondOK(w, reqID, map[string]any{
		"live":  envs,
		"depth": len(envs),
		"total": total,
	})
}
