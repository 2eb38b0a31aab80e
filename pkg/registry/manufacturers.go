package registry

import (
	"context"

	"gorm.io/gorm"
)

// CreateManufacturer inserts a manufacturer.
func (s *Service) CreateManufacturer(ctx context.Context, m *Manufacturer) (*Manufacturer, error) {
	m.ID = 0
	err := s.write(ctx, KindManufacturer, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(m); err != nil {
			return err
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetManufacturer returns a manufacturer by id.
func (s *Service) GetManufacturer(ctx context.Context, id uint) (*Manufacturer, error) {
	var m *Manufacturer
	err := s.read(ctx, "get manufacturer", func(db *gorm.DB) error {
		var err error
		m, err = load[Manufacturer](db, KindManufacturer, id)
		return err
	})
	return m, err
}

// ListManufacturers returns every manufacturer ordered by name.
func (s *Service) ListManufacturers(ctx context.Context) ([]Manufacturer, error) {
	var out []Manufacturer
	err := s.read(ctx, "list manufacturers", func(db *gorm.DB) error {
		return db.Order("name ASC, id ASC").Find(&out).Error
	})
	return out, err
}

// UpdateManufacturer applies a partial update.
func (s *Service) UpdateManufacturer(ctx context.Context, id uint, p ManufacturerPatch) (*Manufacturer, error) {
	var m *Manufacturer
	err := s.write(ctx, KindManufacturer, "update", func(tx *gorm.DB) error {
		var err error
		if m, err = loadLocked[Manufacturer](tx, KindManufacturer, id); err != nil {
			return err
		}
		p.apply(m)
		if err := s.checkPayload(m); err != nil {
			return err
		}
		return tx.Save(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteManufacturer removes a manufacturer no vessel type or sensor type
// refers to.
func (s *Service) DeleteManufacturer(ctx context.Context, id uint) error {
	return s.write(ctx, KindManufacturer, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[Manufacturer](tx, KindManufacturer, id)
	})
}
