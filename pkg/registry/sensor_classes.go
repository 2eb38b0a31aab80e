package registry

import (
	"context"

	"gorm.io/gorm"
)

// CreateSensorClass inserts a sensor class with a unique name.
func (s *Service) CreateSensorClass(ctx context.Context, c *SensorClass) (*SensorClass, error) {
	c.ID = 0
	err := s.write(ctx, KindSensorClass, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(c); err != nil {
			return err
		}
		if err := checkSensorClassName(tx, c.Name, 0); err != nil {
			return err
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetSensorClass returns a sensor class by id.
func (s *Service) GetSensorClass(ctx context.Context, id uint) (*SensorClass, error) {
	var c *SensorClass
	err := s.read(ctx, "get sensor class", func(db *gorm.DB) error {
		var err error
		c, err = load[SensorClass](db, KindSensorClass, id)
		return err
	})
	return c, err
}

// ListSensorClasses returns every sensor class ordered by name.
func (s *Service) ListSensorClasses(ctx context.Context) ([]SensorClass, error) {
	var out []SensorClass
	err := s.read(ctx, "list sensor classes", func(db *gorm.DB) error {
		return db.Order("name ASC").Find(&out).Error
	})
	return out, err
}

// UpdateSensorClass applies a partial update.
func (s *Service) UpdateSensorClass(ctx context.Context, id uint, p SensorClassPatch) (*SensorClass, error) {
	var c *SensorClass
	err := s.write(ctx, KindSensorClass, "update", func(tx *gorm.DB) error {
		var err error
		if c, err = loadLocked[SensorClass](tx, KindSensorClass, id); err != nil {
			return err
		}
		p.apply(c)
		if err := s.checkPayload(c); err != nil {
			return err
		}
		if p.Name != nil {
			if err := checkSensorClassName(tx, c.Name, c.ID); err != nil {
				return err
			}
		}
		return tx.Save(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteSensorClass removes a sensor class that no sensor type and no
// vessel type requirement refers to.
func (s *Service) DeleteSensorClass(ctx context.Context, id uint) error {
	return s.write(ctx, KindSensorClass, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[SensorClass](tx, KindSensorClass, id)
	})
}
