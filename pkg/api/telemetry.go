package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/passssat/fleet-registry/pkg/registry"
)

// mountVesselFeeds adds the per-vessel operational listings under
// /vessels/{id}.
func (s *Server) mountVesselFeeds(r chi.Router) {
	svc := s.svc
	r.Get("/locations", limitedListHandler(svc.ListLocations))
	r.Get("/ais", limitedListHandler(svc.ListAisData))
	r.Get("/route", childListHandler(svc.ListRoutePoints))
	r.Get("/maintenance", childListHandler(svc.ListMaintenanceRecords))
	r.Get("/parameters", childListHandler(svc.ListVesselParameters))
	r.Get("/alerts", func(w http.ResponseWriter, r *http.Request) {
		unresolved := r.URL.Query().Get("unresolved") == "true"
		childListHandler(func(ctx context.Context, id uint) ([]registry.Alert, error) {
			return svc.ListAlerts(ctx, id, unresolved)
		})(w, r)
	})
}

func (s *Server) mountTelemetry(r chi.Router) {
	svc := s.svc

	record(r, "/locations", svc.CreateLocation, svc.GetLocation, svc.DeleteLocation)
	r.Get("/locations/{id}/weather", childListHandler(svc.ListWeatherData))
	record(r, "/ais", svc.CreateAisData, svc.GetAisData, svc.DeleteAisData)
	record(r, "/route-points", svc.CreateRoutePoint, svc.GetRoutePoint, svc.DeleteRoutePoint)
	record(r, "/sensor-readings", svc.CreateSensorReading, svc.GetSensorReading, svc.DeleteSensorReading)
	record(r, "/maintenance-records", svc.CreateMaintenanceRecord, svc.GetMaintenanceRecord, svc.DeleteMaintenanceRecord)
	record(r, "/weather", svc.CreateWeatherData, svc.GetWeatherData, svc.DeleteWeatherData)
	record(r, "/vessel-parameters", svc.CreateVesselParameter, svc.GetVesselParameter, svc.DeleteVesselParameter)
	record(r, "/alerts", svc.CreateAlert, svc.GetAlert, svc.DeleteAlert)
	r.Post("/alerts/{id}/acknowledge", s.acknowledgeAlert)
	r.Post("/alerts/{id}/resolve", s.resolveAlert)
}

// record mounts create, get and delete for an append-only record type.
func record[T any](
	r chi.Router,
	path string,
	create func(context.Context, *T) (*T, error),
	get func(context.Context, uint) (*T, error),
	del func(context.Context, uint) error,
) {
	r.Post(path, createHandler(create))
	r.Get(path+"/{id}", getHandler(get))
	r.Delete(path+"/{id}", deleteHandler(del))
}

type acknowledgeRequest struct {
	OperatorID uint `json:"operatorId"`
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req acknowledgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OperatorID == 0 {
		writeError(w, http.StatusBadRequest, "operatorId is required")
		return
	}
	a, err := s.svc.AcknowledgeAlert(r.Context(), id, req.OperatorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// resolveAlert accepts an empty body.
func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	a, err := s.svc.ResolveAlert(r.Context(), id, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
