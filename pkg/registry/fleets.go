package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FleetSummary is a fleet with the number of vessels assigned to it.
type FleetSummary struct {
	Fleet
	VesselCount int64 `json:"vesselCount"`
}

// CreateFleet inserts a fleet owned by an existing operator.
func (s *Service) CreateFleet(ctx context.Context, f *Fleet) (*Fleet, error) {
	f.ID = 0
	err := s.write(ctx, KindFleet, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(f); err != nil {
			return err
		}
		if err := mustExist(tx, &Operator{}, KindOperator, f.OperatorID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(f).Error
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetFleet returns a fleet by id.
func (s *Service) GetFleet(ctx context.Context, id uint) (*Fleet, error) {
	var f *Fleet
	err := s.read(ctx, "get fleet", func(db *gorm.DB) error {
		var err error
		f, err = load[Fleet](db, KindFleet, id)
		return err
	})
	return f, err
}

// ListFleets returns every fleet with its vessel count. A non-zero
// operatorID restricts the result to that operator's fleets.
func (s *Service) ListFleets(ctx context.Context, operatorID uint) ([]FleetSummary, error) {
	var out []FleetSummary
	err := s.read(ctx, "list fleets", func(db *gorm.DB) error {
		q := db.Table("fleets").
			Select("fleets.*, COUNT(vessels.id) AS vessel_count").
			Joins("LEFT JOIN vessels ON vessels.fleet_id = fleets.id").
			Group("fleets.id").
			Order("fleets.name ASC, fleets.id ASC")
		if operatorID != 0 {
			q = q.Where("fleets.operator_id = ?", operatorID)
		}
		return q.Scan(&out).Error
	})
	return out, err
}

// UpdateFleet applies a partial update. A new operator is propagated to
// every vessel in the fleet within the same transaction.
func (s *Service) UpdateFleet(ctx context.Context, id uint, p FleetPatch) (*Fleet, error) {
	var f *Fleet
	err := s.write(ctx, KindFleet, "update", func(tx *gorm.DB) error {
		var err error
		if f, err = loadLocked[Fleet](tx, KindFleet, id); err != nil {
			return err
		}
		previous := f.OperatorID
		p.apply(f)
		if err := s.checkPayload(f); err != nil {
			return err
		}
		if f.OperatorID != previous {
			if err := mustExist(tx, &Operator{}, KindOperator, f.OperatorID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(f).Error; err != nil {
			return err
		}
		if f.OperatorID == previous {
			return nil
		}
		res := tx.Model(&Vessel{}).
			Where("fleet_id = ?", f.ID).
			Update("operator_id", f.OperatorID)
		if res.Error != nil {
			return res.Error
		}
		s.logger.Info("fleet operator changed", "fleet", f.ID, "from", previous, "to", f.OperatorID, "vessels", res.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFleet removes a fleet with no vessels.
func (s *Service) DeleteFleet(ctx context.Context, id uint) error {
	return s.write(ctx, KindFleet, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[Fleet](tx, KindFleet, id)
	})
}
