package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/passssat/fleet-registry/pkg/registry"
)

func (s *Server) mountCore(r chi.Router) {
	svc := s.svc

	r.Route("/operators", func(r chi.Router) {
		r.Get("/", listHandler(svc.ListOperators))
		r.Post("/", createHandler(svc.CreateOperator))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetOperator))
			r.Patch("/", updateHandler(svc.UpdateOperator))
			r.Delete("/", deleteHandler(svc.DeleteOperator))
			r.Get("/fleets", childListHandler(svc.ListFleets))
			r.Get("/vessels", childListHandler(func(ctx context.Context, id uint) ([]registry.Vessel, error) {
				if _, err := svc.GetOperator(ctx, id); err != nil {
					return nil, err
				}
				return svc.ListVessels(ctx, registry.VesselQuery{OperatorID: id})
			}))
		})
	})

	r.Route("/fleets", func(r chi.Router) {
		r.Get("/", s.listFleets)
		r.Post("/", createHandler(svc.CreateFleet))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetFleet))
			r.Patch("/", updateHandler(svc.UpdateFleet))
			r.Delete("/", deleteHandler(svc.DeleteFleet))
			r.Get("/vessels", childListHandler(func(ctx context.Context, id uint) ([]registry.Vessel, error) {
				if _, err := svc.GetFleet(ctx, id); err != nil {
					return nil, err
				}
				return svc.ListVessels(ctx, registry.VesselQuery{FleetID: id})
			}))
		})
	})

	r.Route("/manufacturers", func(r chi.Router) {
		r.With(s.cached).Get("/", listHandler(svc.ListManufacturers))
		r.Post("/", createHandler(svc.CreateManufacturer))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetManufacturer))
			r.Patch("/", updateHandler(svc.UpdateManufacturer))
			r.Delete("/", deleteHandler(svc.DeleteManufacturer))
		})
	})

	r.Route("/vessel-types", func(r chi.Router) {
		r.With(s.cached).Get("/", listHandler(svc.ListVesselTypes))
		r.Post("/", createHandler(svc.CreateVesselType))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetVesselType))
			r.Patch("/", updateHandler(svc.UpdateVesselType))
			r.Delete("/", deleteHandler(svc.DeleteVesselType))
			r.Route("/requirements", func(r chi.Router) {
				r.Get("/", childListHandler(svc.ListRequirements))
				r.Post("/", s.addRequirement)
				r.Patch("/{classId}", s.updateRequirement)
				r.Delete("/{classId}", s.removeRequirement)
			})
		})
	})

	r.Route("/sensor-classes", func(r chi.Router) {
		r.With(s.cached).Get("/", listHandler(svc.ListSensorClasses))
		r.Post("/", createHandler(svc.CreateSensorClass))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetSensorClass))
			r.Patch("/", updateHandler(svc.UpdateSensorClass))
			r.Delete("/", deleteHandler(svc.DeleteSensorClass))
		})
	})

	r.Route("/sensor-types", func(r chi.Router) {
		r.With(s.cached).Get("/", s.listSensorTypes)
		r.Post("/", createHandler(svc.CreateSensorType))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetSensorType))
			r.Patch("/", updateHandler(svc.UpdateSensorType))
			r.Delete("/", deleteHandler(svc.DeleteSensorType))
		})
	})

	r.Route("/vessels", func(r chi.Router) {
		r.Get("/", s.listVessels)
		r.Post("/", createHandler(svc.CreateVessel))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetVessel))
			r.Patch("/", updateHandler(svc.UpdateVessel))
			r.Delete("/", deleteHandler(svc.DeleteVessel))
			r.Get("/sensor-status", getHandler(svc.GetSensorConfigurationStatus))
			r.Get("/missing-sensors", childListHandler(svc.GetMissingSensors))
			r.Get("/sensors", s.listVesselSensors)
			s.mountVesselFeeds(r)
		})
	})

	r.Route("/sensors", func(r chi.Router) {
		r.Get("/", s.listSensors)
		r.Post("/", createHandler(svc.CreateSensor))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(svc.GetSensor))
			r.Patch("/", updateHandler(svc.UpdateSensor))
			r.Delete("/", deleteHandler(svc.DeleteSensor))
			r.Get("/readings", limitedListHandler(svc.ListSensorReadings))
		})
	})
}

// listFleets handles GET /fleets?operatorId=.
func (s *Server) listFleets(w http.ResponseWriter, r *http.Request) {
	operatorID, err := queryID(r, "operatorId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fleets, err := s.svc.ListFleets(r.Context(), operatorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeList(w, fleets)
}

// listSensorTypes handles GET /sensor-types?sensorClassId=.
func (s *Server) listSensorTypes(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r, "sensorClassId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	types, err := s.svc.ListSensorTypes(r.Context(), classID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeList(w, types)
}

// listVessels handles GET /vessels?fleetId=&operatorId=&filter=.
func (s *Server) listVessels(w http.ResponseWriter, r *http.Request) {
	fleetID, err := queryID(r, "fleetId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	operatorID, err := queryID(r, "operatorId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vessels, err := s.svc.ListVessels(r.Context(), registry.VesselQuery{
		FleetID:    fleetID,
		OperatorID: operatorID,
		Filter:     r.URL.Query().Get("filter"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeList(w, vessels)
}

// listSensors handles GET /sensors?vesselId=&filter=.
func (s *Server) listSensors(w http.ResponseWriter, r *http.Request) {
	vesselID, err := queryID(r, "vesselId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sensors, err := s.svc.ListSensors(r.Context(), vesselID, r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeList(w, sensors)
}

func (s *Server) listVesselSensors(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sensors, err := s.svc.ListSensors(r.Context(), id, r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeList(w, sensors)
}

func (s *Server) addRequirement(w http.ResponseWriter, r *http.Request) {
	typeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in registry.RequirementInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.svc.AddRequirement(r.Context(), typeID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) updateRequirement(w http.ResponseWriter, r *http.Request) {
	typeID, classID, ok := requirementKey(w, r)
	if !ok {
		return
	}
	var p registry.RequirementPatch
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.svc.UpdateRequirement(r.Context(), typeID, classID, p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// removeRequirement answers 204 when a row was deleted and 404 when there
// was none.
func (s *Server) removeRequirement(w http.ResponseWriter, r *http.Request) {
	typeID, classID, ok := requirementKey(w, r)
	if !ok {
		return
	}
	removed, err := s.svc.RemoveRequirement(r.Context(), typeID, classID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "sensor requirement not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requirementKey(w http.ResponseWriter, r *http.Request) (uint, uint, bool) {
	typeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	classID, err := idParam(r, "classId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return typeID, classID, true
}
