package registry

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operational records are plain storage scoped to a vessel (or a sensor for
// readings). They are checked for referential existence and value ranges
// only; none of them takes part in the fleet or sensor class rules.

func createRecord[T any](s *Service, ctx context.Context, kind string, rec *T, check func(tx *gorm.DB) error) (*T, error) {
	err := s.write(ctx, kind, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(rec); err != nil {
			return err
		}
		if err := check(tx); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func getRecord[T any](s *Service, ctx context.Context, kind string, id uint) (*T, error) {
	var rec *T
	err := s.read(ctx, "get "+kind, func(db *gorm.DB) error {
		var err error
		rec, err = load[T](db, kind, id)
		return err
	})
	return rec, err
}

// listForParent lists rows whose column equals parentID, newest first.
func listForParent[T any](s *Service, ctx context.Context, kind, column, parentKind string, parentModel any, parentID uint, order string, limit int) ([]T, error) {
	var out []T
	err := s.read(ctx, "list "+kind, func(db *gorm.DB) error {
		if err := mustExist(db, parentModel, parentKind, parentID); err != nil {
			return err
		}
		q := db.Where(column+" = ?", parentID).Order(order)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&out).Error
	})
	return out, err
}

func deleteRecord[T any](s *Service, ctx context.Context, kind string, id uint) error {
	return s.write(ctx, kind, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[T](tx, kind, id)
	})
}

func vesselExists(id uint) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		return mustExist(tx, &Vessel{}, KindVessel, id)
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// CreateLocation records a position fix.
func (s *Service) CreateLocation(ctx context.Context, l *Location) (*Location, error) {
	l.ID = 0
	stamp(&l.Timestamp)
	return createRecord(s, ctx, KindLocation, l, vesselExists(l.VesselID))
}

// GetLocation returns a location by id.
func (s *Service) GetLocation(ctx context.Context, id uint) (*Location, error) {
	return getRecord[Location](s, ctx, KindLocation, id)
}

// ListLocations returns a vessel's position fixes, newest first.
func (s *Service) ListLocations(ctx context.Context, vesselID uint, limit int) ([]Location, error) {
	return listForParent[Location](s, ctx, KindLocation, "vessel_id", KindVessel, &Vessel{}, vesselID, "timestamp DESC, id DESC", limit)
}

// DeleteLocation removes a location and the weather observed there.
func (s *Service) DeleteLocation(ctx context.Context, id uint) error {
	return deleteRecord[Location](s, ctx, KindLocation, id)
}

// CreateAisData stores an AIS report.
func (s *Service) CreateAisData(ctx context.Context, a *AisData) (*AisData, error) {
	a.ID = 0
	stamp(&a.Timestamp)
	return createRecord(s, ctx, KindAisData, a, vesselExists(a.VesselID))
}

// GetAisData returns an AIS report by id.
func (s *Service) GetAisData(ctx context.Context, id uint) (*AisData, error) {
	return getRecord[AisData](s, ctx, KindAisData, id)
}

// ListAisData returns a vessel's AIS reports, newest first.
func (s *Service) ListAisData(ctx context.Context, vesselID uint, limit int) ([]AisData, error) {
	return listForParent[AisData](s, ctx, KindAisData, "vessel_id", KindVessel, &Vessel{}, vesselID, "timestamp DESC, id DESC", limit)
}

// DeleteAisData removes an AIS report.
func (s *Service) DeleteAisData(ctx context.Context, id uint) error {
	return deleteRecord[AisData](s, ctx, KindAisData, id)
}

// CreateRoutePoint adds a waypoint. Sequence numbers are unique per vessel.
func (s *Service) CreateRoutePoint(ctx context.Context, rp *RoutePoint) (*RoutePoint, error) {
	rp.ID = 0
	if rp.Status == "" {
		rp.Status = RoutePointPlanned
	}
	return createRecord(s, ctx, KindRoutePoint, rp, func(tx *gorm.DB) error {
		if err := mustExist(tx, &Vessel{}, KindVessel, rp.VesselID); err != nil {
			return err
		}
		n, err := countWhere(tx, &RoutePoint{}, "vessel_id = ? AND sequence_number = ?", rp.VesselID, rp.SequenceNumber)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid(RuleUniqueIdentifier, "vessel %d already has route point %d", rp.VesselID, rp.SequenceNumber)
		}
		return nil
	})
}

// GetRoutePoint returns a waypoint by id.
func (s *Service) GetRoutePoint(ctx context.Context, id uint) (*RoutePoint, error) {
	return getRecord[RoutePoint](s, ctx, KindRoutePoint, id)
}

// ListRoutePoints returns a vessel's route in sequence order.
func (s *Service) ListRoutePoints(ctx context.Context, vesselID uint) ([]RoutePoint, error) {
	return listForParent[RoutePoint](s, ctx, KindRoutePoint, "vessel_id", KindVessel, &Vessel{}, vesselID, "sequence_number ASC", 0)
}

// DeleteRoutePoint removes a waypoint.
func (s *Service) DeleteRoutePoint(ctx context.Context, id uint) error {
	return deleteRecord[RoutePoint](s, ctx, KindRoutePoint, id)
}

// CreateSensorReading stores a measurement for an existing sensor.
func (s *Service) CreateSensorReading(ctx context.Context, r *SensorReading) (*SensorReading, error) {
	r.ID = 0
	if r.Status == "" {
		r.Status = ReadingNormal
	}
	stamp(&r.Timestamp)
	return createRecord(s, ctx, KindSensorReading, r, func(tx *gorm.DB) error {
		return mustExist(tx, &Sensor{}, KindSensor, r.SensorID)
	})
}

// GetSensorReading returns a reading by id.
func (s *Service) GetSensorReading(ctx context.Context, id uint) (*SensorReading, error) {
	return getRecord[SensorReading](s, ctx, KindSensorReading, id)
}

// ListSensorReadings returns a sensor's readings, newest first.
func (s *Service) ListSensorReadings(ctx context.Context, sensorID uint, limit int) ([]SensorReading, error) {
	return listForParent[SensorReading](s, ctx, KindSensorReading, "sensor_id", KindSensor, &Sensor{}, sensorID, "timestamp DESC, id DESC", limit)
}

// DeleteSensorReading removes a reading.
func (s *Service) DeleteSensorReading(ctx context.Context, id uint) error {
	return deleteRecord[SensorReading](s, ctx, KindSensorReading, id)
}

// CreateMaintenanceRecord stores a maintenance job.
func (s *Service) CreateMaintenanceRecord(ctx context.Context, m *MaintenanceRecord) (*MaintenanceRecord, error) {
	m.ID = 0
	if m.Status == "" {
		m.Status = MaintenancePlanned
	}
	stamp(&m.StartDate)
	return createRecord(s, ctx, KindMaintenanceRecord, m, func(tx *gorm.DB) error {
		if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
			return invalid(RulePayload, "maintenance end date precedes its start date")
		}
		return mustExist(tx, &Vessel{}, KindVessel, m.VesselID)
	})
}

// GetMaintenanceRecord returns a maintenance job by id.
func (s *Service) GetMaintenanceRecord(ctx context.Context, id uint) (*MaintenanceRecord, error) {
	return getRecord[MaintenanceRecord](s, ctx, KindMaintenanceRecord, id)
}

// ListMaintenanceRecords returns a vessel's maintenance history, latest start
// first.
func (s *Service) ListMaintenanceRecords(ctx context.Context, vesselID uint) ([]MaintenanceRecord, error) {
	return listForParent[MaintenanceRecord](s, ctx, KindMaintenanceRecord, "vessel_id", KindVessel, &Vessel{}, vesselID, "start_date DESC, id DESC", 0)
}

// DeleteMaintenanceRecord removes a maintenance job.
func (s *Service) DeleteMaintenanceRecord(ctx context.Context, id uint) error {
	return deleteRecord[MaintenanceRecord](s, ctx, KindMaintenanceRecord, id)
}

// CreateAlert raises an alert. A referenced sensor must be installed on the
// alert's vessel.
func (s *Service) CreateAlert(ctx context.Context, a *Alert) (*Alert, error) {
	a.ID = 0
	stamp(&a.Timestamp)
	return createRecord(s, ctx, KindAlert, a, func(tx *gorm.DB) error {
		if err := mustExist(tx, &Vessel{}, KindVessel, a.VesselID); err != nil {
			return err
		}
		if a.SensorID != nil {
			sn, err := load[Sensor](tx, KindSensor, *a.SensorID)
			if err != nil {
				return err
			}
			if sn.VesselID != a.VesselID {
				return invalid(RuleOwnership, "sensor %d is installed on vessel %d, not vessel %d", sn.ID, sn.VesselID, a.VesselID)
			}
		}
		if a.AcknowledgedBy != nil {
			return mustExist(tx, &Operator{}, KindOperator, *a.AcknowledgedBy)
		}
		return nil
	})
}

// GetAlert returns an alert by id.
func (s *Service) GetAlert(ctx context.Context, id uint) (*Alert, error) {
	return getRecord[Alert](s, ctx, KindAlert, id)
}

// ListAlerts returns a vessel's alerts, newest first. unresolvedOnly hides
// resolved alerts.
func (s *Service) ListAlerts(ctx context.Context, vesselID uint, unresolvedOnly bool) ([]Alert, error) {
	var out []Alert
	err := s.read(ctx, "list alerts", func(db *gorm.DB) error {
		if err := mustExist(db, &Vessel{}, KindVessel, vesselID); err != nil {
			return err
		}
		q := db.Where("vessel_id = ?", vesselID).Order("timestamp DESC, id DESC")
		if unresolvedOnly {
			q = q.Where("resolved = ?", false)
		}
		return q.Find(&out).Error
	})
	return out, err
}

// AcknowledgeAlert marks an alert as seen by an operator.
func (s *Service) AcknowledgeAlert(ctx context.Context, id, operatorID uint) (*Alert, error) {
	var a *Alert
	err := s.write(ctx, KindAlert, "acknowledge", func(tx *gorm.DB) error {
		var err error
		if a, err = loadLocked[Alert](tx, KindAlert, id); err != nil {
			return err
		}
		if err := mustExist(tx, &Operator{}, KindOperator, operatorID); err != nil {
			return err
		}
		now := time.Now().UTC()
		a.Acknowledged = true
		a.AcknowledgedBy = &operatorID
		a.AcknowledgedAt = &now
		return tx.Omit(clause.Associations).Save(a).Error
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveAlert closes an alert with optional notes.
func (s *Service) ResolveAlert(ctx context.Context, id uint, notes string) (*Alert, error) {
	var a *Alert
	err := s.write(ctx, KindAlert, "resolve", func(tx *gorm.DB) error {
		var err error
		if a, err = loadLocked[Alert](tx, KindAlert, id); err != nil {
			return err
		}
		now := time.Now().UTC()
		a.Resolved = true
		a.ResolvedAt = &now
		if notes != "" {
			a.Notes = notes
		}
		return tx.Omit(clause.Associations).Save(a).Error
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAlert removes an alert.
func (s *Service) DeleteAlert(ctx context.Context, id uint) error {
	return deleteRecord[Alert](s, ctx, KindAlert, id)
}

// CreateWeatherData stores an observation tied to exactly one of a recorded
// location or a free position.
func (s *Service) CreateWeatherData(ctx context.Context, w *WeatherData) (*WeatherData, error) {
	w.ID = 0
	stamp(&w.Timestamp)
	if w.Position != nil && *w.Position == "" {
		w.Position = nil
	}
	return createRecord(s, ctx, KindWeatherData, w, func(tx *gorm.DB) error {
		if (w.LocationID == nil) == (w.Position == nil) {
			return invalid(RulePayload, "weather data needs exactly one of locationId or position")
		}
		if w.LocationID != nil {
			return mustExist(tx, &Location{}, KindLocation, *w.LocationID)
		}
		return nil
	})
}

// GetWeatherData returns an observation by id.
func (s *Service) GetWeatherData(ctx context.Context, id uint) (*WeatherData, error) {
	return getRecord[WeatherData](s, ctx, KindWeatherData, id)
}

// ListWeatherData returns the observations recorded at a location.
func (s *Service) ListWeatherData(ctx context.Context, locationID uint) ([]WeatherData, error) {
	return listForParent[WeatherData](s, ctx, KindWeatherData, "location_id", KindLocation, &Location{}, locationID, "timestamp DESC, id DESC", 0)
}

// DeleteWeatherData removes an observation.
func (s *Service) DeleteWeatherData(ctx context.Context, id uint) error {
	return deleteRecord[WeatherData](s, ctx, KindWeatherData, id)
}

// CreateVesselParameter stores a key/value reading for a vessel.
func (s *Service) CreateVesselParameter(ctx context.Context, p *VesselParameter) (*VesselParameter, error) {
	p.ID = 0
	stamp(&p.Timestamp)
	return createRecord(s, ctx, KindVesselParameter, p, vesselExists(p.VesselID))
}

// GetVesselParameter returns a parameter by id.
func (s *Service) GetVesselParameter(ctx context.Context, id uint) (*VesselParameter, error) {
	return getRecord[VesselParameter](s, ctx, KindVesselParameter, id)
}

// ListVesselParameters returns a vessel's parameters, newest first.
func (s *Service) ListVesselParameters(ctx context.Context, vesselID uint) ([]VesselParameter, error) {
	return listForParent[VesselParameter](s, ctx, KindVesselParameter, "vessel_id", KindVessel, &Vessel{}, vesselID, "timestamp DESC, id DESC", 0)
}

// DeleteVesselParameter removes a parameter.
func (s *Service) DeleteVesselParameter(ctx context.Context, id uint) error {
	return deleteRecord[VesselParameter](s, ctx, KindVesselParameter, id)
}
