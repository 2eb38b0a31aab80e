package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func checkSensorTypeRefs(tx *gorm.DB, t *SensorType) error {
	if err := mustExist(tx, &SensorClass{}, KindSensorClass, t.SensorClassID); err != nil {
		return err
	}
	if t.ManufacturerID != nil {
		return mustExist(tx, &Manufacturer{}, KindManufacturer, *t.ManufacturerID)
	}
	return nil
}

// CreateSensorType inserts a sensor type of an existing class.
func (s *Service) CreateSensorType(ctx context.Context, t *SensorType) (*SensorType, error) {
	t.ID = 0
	err := s.write(ctx, KindSensorType, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(t); err != nil {
			return err
		}
		if err := checkSensorTypeRefs(tx, t); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetSensorType returns a sensor type by id.
func (s *Service) GetSensorType(ctx context.Context, id uint) (*SensorType, error) {
	var t *SensorType
	err := s.read(ctx, "get sensor type", func(db *gorm.DB) error {
		var err error
		t, err = load[SensorType](db, KindSensorType, id)
		return err
	})
	return t, err
}

// ListSensorTypes returns sensor types ordered by name, optionally limited
// to one class.
func (s *Service) ListSensorTypes(ctx context.Context, sensorClassID uint) ([]SensorType, error) {
	var out []SensorType
	err := s.read(ctx, "list sensor types", func(db *gorm.DB) error {
		q := db.Order("name ASC, id ASC")
		if sensorClassID != 0 {
			q = q.Where("sensor_class_id = ?", sensorClassID)
		}
		return q.Find(&out).Error
	})
	return out, err
}

// UpdateSensorType applies a partial update. Moving the type to another
// class is refused if an installed sensor of this type would become
// incompatible with its vessel.
func (s *Service) UpdateSensorType(ctx context.Context, id uint, p SensorTypePatch) (*SensorType, error) {
	var t *SensorType
	err := s.write(ctx, KindSensorType, "update", func(tx *gorm.DB) error {
		var err error
		if t, err = loadLocked[SensorType](tx, KindSensorType, id); err != nil {
			return err
		}
		previousClass := t.SensorClassID
		p.apply(t)
		if err := s.checkPayload(t); err != nil {
			return err
		}
		if err := checkSensorTypeRefs(tx, t); err != nil {
			return err
		}
		if t.SensorClassID != previousClass {
			if err := checkSensorTypeReclass(tx, t.ID, t.SensorClassID); err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteSensorType removes a sensor type with no installed sensors.
func (s *Service) DeleteSensorType(ctx context.Context, id uint) error {
	return s.write(ctx, KindSensorType, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[SensorType](tx, KindSensorType, id)
	})
}
