package registry

import (
	"fmt"

	"gorm.io/gorm"
)

// dependent is one relationship that can block a delete.
type dependent struct {
	kind   string
	model  any
	column string
}

// blockers lists, per entity kind, the references that must be gone before
// the entity can be deleted. Cascading and nullifying references are absent.
var blockers = map[string][]dependent{
	KindManufacturer: {
		{KindVesselType, &VesselType{}, "manufacturer_id"},
		{KindSensorType, &SensorType{}, "manufacturer_id"},
	},
	KindOperator: {
		{KindFleet, &Fleet{}, "operator_id"},
		{KindVessel, &Vessel{}, "operator_id"},
	},
	KindFleet: {
		{KindVessel, &Vessel{}, "fleet_id"},
	},
	KindVesselType: {
		{KindVessel, &Vessel{}, "vessel_type_id"},
	},
	KindSensorClass: {
		{KindSensorType, &SensorType{}, "sensor_class_id"},
		{KindRequirement, &SensorRequirement{}, "sensor_class_id"},
	},
	KindSensorType: {
		{KindSensor, &Sensor{}, "sensor_type_id"},
	},
}

// guardDelete counts every blocking reference to (kind, id) and returns a
// DependencyError when any exist.
func guardDelete(tx *gorm.DB, kind string, id uint) error {
	counts := map[string]int64{}
	for _, d := range blockers[kind] {
		n, err := countWhere(tx, d.model, d.column+" = ?", id)
		if err != nil {
			return fmt.Errorf("count %s references to %s %d: %w", d.kind, kind, id, err)
		}
		if n > 0 {
			counts[d.kind] = n
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return &DependencyError{Kind: kind, ID: id, Blockers: counts}
}

// deleteGuarded locks the row, runs the guard and deletes it. Store-level
// cascades handle the remaining dependents.
func deleteGuarded[T any](tx *gorm.DB, kind string, id uint) error {
	if _, err := loadLocked[T](tx, kind, id); err != nil {
		return err
	}
	if err := guardDelete(tx, kind, id); err != nil {
		return err
	}
	var zero T
	res := tx.Where("id = ?", id).Delete(&zero)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(kind, id)
	}
	return nil
}
