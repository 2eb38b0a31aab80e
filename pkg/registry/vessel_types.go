package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateVesselType inserts a vessel type. Requirements are added separately
// through AddRequirement.
func (s *Service) CreateVesselType(ctx context.Context, t *VesselType) (*VesselType, error) {
	t.ID = 0
	err := s.write(ctx, KindVesselType, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(t); err != nil {
			return err
		}
		if err := mustExist(tx, &Manufacturer{}, KindManufacturer, t.ManufacturerID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetVesselType returns a vessel type by id.
func (s *Service) GetVesselType(ctx context.Context, id uint) (*VesselType, error) {
	var t *VesselType
	err := s.read(ctx, "get vessel type", func(db *gorm.DB) error {
		var err error
		t, err = load[VesselType](db, KindVesselType, id)
		return err
	})
	return t, err
}

// ListVesselTypes returns every vessel type ordered by name.
func (s *Service) ListVesselTypes(ctx context.Context) ([]VesselType, error) {
	var out []VesselType
	err := s.read(ctx, "list vessel types", func(db *gorm.DB) error {
		return db.Order("name ASC, id ASC").Find(&out).Error
	})
	return out, err
}

// UpdateVesselType applies a partial update.
func (s *Service) UpdateVesselType(ctx context.Context, id uint, p VesselTypePatch) (*VesselType, error) {
	var t *VesselType
	err := s.write(ctx, KindVesselType, "update", func(tx *gorm.DB) error {
		var err error
		if t, err = loadLocked[VesselType](tx, KindVesselType, id); err != nil {
			return err
		}
		p.apply(t)
		if err := s.checkPayload(t); err != nil {
			return err
		}
		if p.ManufacturerID != nil {
			if err := mustExist(tx, &Manufacturer{}, KindManufacturer, t.ManufacturerID); err != nil {
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

// DeleteVesselType removes a vessel type no vessel uses. Its registry rows
// are removed by the store.
func (s *Service) DeleteVesselType(ctx context.Context, id uint) error {
	return s.write(ctx, KindVesselType, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[VesselType](tx, KindVesselType, id)
	})
}
