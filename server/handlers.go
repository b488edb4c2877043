package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/match"
	"github.com/poiesic/sigmatch/storage"
)

// handleMatch serves POST /match.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidInput, "request body is not valid JSON")
		return
	}

	topN := match.DefaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}

	results, err := s.matcher.Match(r.Context(), match.Request{
		Description: req.StartupDescription,
		TopN:        topN,
		Filter:      req.filter(),
	})
	if err != nil {
		s.writeMatchError(w, err)
		return
	}

	resp := matchResponse{Matches: make([]matchPayload, len(results))}
	for i, result := range results {
		resp.Matches[i] = matchPayload{
			Signal:    toSignalPayload(result.Signal),
			Score:     result.Score,
			Reasoning: result.Reasoning,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeMatchError maps the error taxonomy onto HTTP statuses and stable codes.
func (s *Server) writeMatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, codeInvalidInput, "startup_description must be non-empty")
	case errors.Is(err, core.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
	case errors.Is(err, core.ErrUnavailable):
		s.logger.Error("match dependency failure", "err", err)
		s.writeError(w, http.StatusServiceUnavailable, codeMatchUnavailable, "matching is temporarily unavailable")
	default:
		s.logger.Error("match failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// handleIngest serves POST /signals. Records fail individually; a bad record
// never aborts the batch.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidInput, "request body is not valid JSON")
		return
	}

	resp := ingestResponse{
		Accepted: []string{},
		Rejected: []rejectedRecord{},
	}

	signals := make([]*core.Signal, 0, len(req.Signals))
	for _, in := range req.Signals {
		signal, err := in.toSignal()
		if err != nil {
			resp.Rejected = append(resp.Rejected, rejectedRecord{Id: in.Id, Error: err.Error()})
			continue
		}
		signals = append(signals, signal)
	}

	result, err := s.pipeline.IngestBatch(r.Context(), signals)
	if err != nil {
		s.logger.Error("batch ingestion failed", "err", err)
		s.writeError(w, http.StatusServiceUnavailable, codeMatchUnavailable, "ingestion is temporarily unavailable")
		return
	}

	for _, id := range result.Accepted {
		resp.Accepted = append(resp.Accepted, string(id))
	}
	for _, rejected := range result.Rejected {
		resp.Rejected = append(resp.Rejected, rejectedRecord{Id: string(rejected.Id), Error: rejected.Err.Error()})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleDelete serves DELETE /signals/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := core.ID(r.PathValue("id"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "signal id is required")
		return
	}

	if err := s.pipeline.Remove(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, codeNotFound, "signal not found")
			return
		}
		s.logger.Error("delete failed", "signal_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth serves GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"signals": s.idx.Len(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encoding failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
