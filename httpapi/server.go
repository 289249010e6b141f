package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/logwrap"
	"net/http"
	"strconv"
)

type DeviceSource interface {
	Device(string) (*cda.Device, bool)
	Devices() []*cda.Device
	RemoveDevice(context.Context, string) error
	LocalDebug(string) (cda.LocalDebug, error)
}

// Server exposes the resolved accessories for inspection and control.
type Server struct {
	devices  DeviceSource
	gatherer prometheus.Gatherer
	logger   logwrap.Logger
}

func NewServer(devices DeviceSource, gatherer prometheus.Gatherer, logger logwrap.Logger) *Server {
	return &Server{devices: devices, gatherer: gatherer, logger: logger}
}

type serviceView struct {
	Index           int      `json:"index"`
	Type            string   `json:"type"`
	ComponentID     string   `json:"componentId"`
	Capabilities    []string `json:"capabilities"`
	Characteristics []string `json:"characteristics"`
}

type accessoryView struct {
	ID           string        `json:"id"`
	AccessoryID  string        `json:"accessoryId"`
	Label        string        `json:"label"`
	Name         string        `json:"name"`
	Manufacturer string        `json:"manufacturer"`
	Online       bool          `json:"online"`
	Services     []serviceView `json:"services"`
}

type characteristicValue struct {
	Value any `json:"value"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/accessories", s.handleAccessories)
	r.Get("/accessories/{id}", s.handleAccessory)
	r.Delete("/accessories/{id}", s.handleRemoveAccessory)
	r.Get("/accessories/{id}/debug", s.handleDebug)
	r.Get("/accessories/{id}/services/{index}/characteristics/{name}", s.handleGetCharacteristic)
	r.Put("/accessories/{id}/services/{index}/characteristics/{name}", s.handleSetCharacteristic)
}

// Handler serves the accessory API alongside health and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.RegisterRoutes(r)

	return r
}

func view(d *cda.Device) accessoryView {
	v := accessoryView{
		ID:           d.ID,
		AccessoryID:  d.AccessoryID().String(),
		Label:        d.Label,
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Online:       d.Gateway.IsOnline(),
		Services:     []serviceView{},
	}

	for i, svc := range d.Services {
		v.Services = append(v.Services, serviceView{
			Index:           i,
			Type:            svc.Type(),
			ComponentID:     svc.ComponentID(),
			Capabilities:    svc.Capabilities(),
			Characteristics: svc.Characteristics(),
		})
	}

	return v
}

func (s *Server) handleAccessories(w http.ResponseWriter, _ *http.Request) {
	views := []accessoryView{}

	for _, d := range s.devices.Devices() {
		views = append(views, view(d))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAccessory(w http.ResponseWriter, r *http.Request) {
	d, found := s.devices.Device(chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "accessory not found")
		return
	}

	writeJSON(w, http.StatusOK, view(d))
}

func (s *Server) handleRemoveAccessory(w http.ResponseWriter, r *http.Request) {
	if err := s.devices.RemoveDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, cda.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "accessory not found")
			return
		}

		s.logger.LogError(r.Context(), "Accessory removal failed.", logwrap.Err(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	debug, err := s.devices.LocalDebug(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "accessory not found")
		return
	}

	writeJSON(w, http.StatusOK, debug)
}

func (s *Server) lookupService(w http.ResponseWriter, r *http.Request) (service.Service, bool) {
	d, found := s.devices.Device(chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "accessory not found")
		return nil, false
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(d.Services) {
		writeError(w, http.StatusNotFound, "service not found")
		return nil, false
	}

	return d.Services[index], true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownCharacteristic):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrReadOnly):
		writeError(w, http.StatusMethodNotAllowed, err.Error())
	case errors.Is(err, service.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCommunicationFailure):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.LogError(r.Context(), "Characteristic request failed.", logwrap.Err(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleGetCharacteristic(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookupService(w, r)
	if !ok {
		return
	}

	v, err := svc.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, characteristicValue{Value: v})
}

func (s *Server) handleSetCharacteristic(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookupService(w, r)
	if !ok {
		return
	}

	var body characteristicValue
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := svc.Set(r.Context(), chi.URLParam(r, "name"), body.Value); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
