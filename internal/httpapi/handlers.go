package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/control"
	"github.com/dokzlo13/gammad/internal/display"
)

const maxBodySize = 4 << 10

// Status is the /status response.
type Status struct {
	Brightness      control.BrightnessState  `json:"brightness"`
	Temperature     control.TemperatureState `json:"temperature"`
	Sampler         control.SamplerStatus    `json:"sampler"`
	AutoBrightness  bool                     `json:"auto_brightness"`
	AutoTemperature bool                     `json:"auto_temperature"`
	Schedule        string                   `json:"schedule"`
}

// stepRequest sets a step directly or, for temperature, through kelvin.
type stepRequest struct {
	Step   *int `json:"step"`
	Kelvin *int `json:"kelvin"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.deps.Config.Get()
	status := Status{
		Brightness:      s.deps.Brightness.Snapshot(),
		Temperature:     s.deps.Temperature.Snapshot(),
		AutoBrightness:  cfg.Brightness.Auto,
		AutoTemperature: cfg.Temperature.Auto,
		Schedule:        cfg.Temperature.Start + "-" + cfg.Temperature.End,
	}
	if s.deps.Sampler != nil {
		status.Sampler = s.deps.Sampler.Status()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, errors.New("transition history disabled"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, 1000)
	}

	entries, err := s.deps.History.Recent(r.URL.Query().Get("controller"), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read transition history")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	s.deps.Temperature.Recheck()
	log.Info().Str("remote", r.RemoteAddr).Msg("Schedule recheck requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	req, err := decodeStep(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Step == nil {
		writeError(w, http.StatusBadRequest, errors.New("step is required"))
		return
	}
	if s.deps.Config.Get().Brightness.Auto {
		writeError(w, http.StatusConflict, errors.New("adaptive brightness is enabled"))
		return
	}

	step := display.Clamp(*req.Step, 0, display.MaxBrightnessStep)
	s.deps.Brightness.SetTarget(step)
	writeJSON(w, http.StatusOK, s.deps.Brightness.Snapshot())
}

func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	req, err := decodeStep(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var step int
	switch {
	case req.Step != nil:
		step = *req.Step
	case req.Kelvin != nil:
		step = display.KelvinToStep(*req.Kelvin)
	default:
		writeError(w, http.StatusBadRequest, errors.New("step or kelvin is required"))
		return
	}

	if !s.deps.Temperature.SetStep(step) {
		writeError(w, http.StatusConflict, errors.New("scheduled temperature is enabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Temperature.Snapshot())
}

func decodeStep(w http.ResponseWriter, r *http.Request) (stepRequest, error) {
	var req stepRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
