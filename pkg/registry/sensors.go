package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/passssat/fleet-registry/pkg/filter"
)

var sensorFilterColumns = filter.Columns{
	"name":             "sensors.name",
	"sensor_type_id":   "sensors.sensor_type_id",
	"vessel_id":        "sensors.vessel_id",
	"serial_number":    "sensors.serial_number",
	"measurement_unit": "sensors.measurement_unit",
	"location_on_boat": "sensors.location_on_boat",
}

// CreateSensor installs a sensor on a vessel. The sensor type's class must
// be listed for the vessel's type.
func (s *Service) CreateSensor(ctx context.Context, sn *Sensor) (*Sensor, error) {
	sn.ID = 0
	err := s.write(ctx, KindSensor, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(sn); err != nil {
			return err
		}
		if err := checkSensorCompatible(tx, sn.SensorTypeID, sn.VesselID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(sn).Error
	})
	if err != nil {
		return nil, err
	}
	return sn, nil
}

// GetSensor returns a sensor by id.
func (s *Service) GetSensor(ctx context.Context, id uint) (*Sensor, error) {
	var sn *Sensor
	err := s.read(ctx, "get sensor", func(db *gorm.DB) error {
		var err error
		sn, err = load[Sensor](db, KindSensor, id)
		return err
	})
	return sn, err
}

// ListSensors returns the sensors of one vessel, or of every vessel when
// vesselID is zero, narrowed by an optional filter expression.
func (s *Service) ListSensors(ctx context.Context, vesselID uint, query string) ([]Sensor, error) {
	expr, err := filter.Parse(query)
	if err != nil {
		return nil, invalid(RulePayload, "%v", err)
	}
	var out []Sensor
	err = s.read(ctx, "list sensors", func(db *gorm.DB) error {
		stmt := db.Model(&Sensor{}).Order("sensors.name ASC, sensors.id ASC")
		if vesselID != 0 {
			if err := mustExist(db, &Vessel{}, KindVessel, vesselID); err != nil {
				return err
			}
			stmt = stmt.Where("sensors.vessel_id = ?", vesselID)
		}
		stmt, err := expr.Apply(stmt, sensorFilterColumns)
		if err != nil {
			return invalid(RulePayload, "%v", err)
		}
		return stmt.Find(&out).Error
	})
	return out, err
}

// UpdateSensor applies a partial update. Compatibility is re-checked
// whenever the sensor type or the vessel changes.
func (s *Service) UpdateSensor(ctx context.Context, id uint, p SensorPatch) (*Sensor, error) {
	var sn *Sensor
	err := s.write(ctx, KindSensor, "update", func(tx *gorm.DB) error {
		var err error
		if sn, err = loadLocked[Sensor](tx, KindSensor, id); err != nil {
			return err
		}
		p.apply(sn)
		if err := s.checkPayload(sn); err != nil {
			return err
		}
		if p.SensorTypeID != nil || p.VesselID != nil {
			if err := checkSensorCompatible(tx, sn.SensorTypeID, sn.VesselID); err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(sn).Error
	})
	if err != nil {
		return nil, err
	}
	return sn, nil
}

// DeleteSensor removes a sensor. Its readings go with it and alerts that
// pointed at it keep their vessel but lose the sensor reference.
func (s *Service) DeleteSensor(ctx context.Context, id uint) error {
	return s.write(ctx, KindSensor, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[Sensor](tx, KindSensor, id)
	})
}
