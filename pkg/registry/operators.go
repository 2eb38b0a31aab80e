package registry

import (
	"context"

	"gorm.io/gorm"
)

// CreateOperator inserts a new operator.
func (s *Service) CreateOperator(ctx context.Context, o *Operator) (*Operator, error) {
	o.ID = 0
	err := s.write(ctx, KindOperator, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(o); err != nil {
			return err
		}
		return tx.Create(o).Error
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetOperator returns an operator by id.
func (s *Service) GetOperator(ctx context.Context, id uint) (*Operator, error) {
	var o *Operator
	err := s.read(ctx, "get operator", func(db *gorm.DB) error {
		var err error
		o, err = load[Operator](db, KindOperator, id)
		return err
	})
	return o, err
}

// ListOperators returns every operator ordered by name.
func (s *Service) ListOperators(ctx context.Context) ([]Operator, error) {
	var out []Operator
	err := s.read(ctx, "list operators", func(db *gorm.DB) error {
		return db.Order("name ASC, id ASC").Find(&out).Error
	})
	return out, err
}

// UpdateOperator applies a partial update.
func (s *Service) UpdateOperator(ctx context.Context, id uint, p OperatorPatch) (*Operator, error) {
	var o *Operator
	err := s.write(ctx, KindOperator, "update", func(tx *gorm.DB) error {
		var err error
		if o, err = loadLocked[Operator](tx, KindOperator, id); err != nil {
			return err
		}
		p.apply(o)
		if err := s.checkPayload(o); err != nil {
			return err
		}
		return tx.Save(o).Error
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOperator removes an operator that owns no fleets or vessels. Alert
// acknowledgements by the operator are cleared by the store.
func (s *Service) DeleteOperator(ctx context.Context, id uint) error {
	return s.write(ctx, KindOperator, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[Operator](tx, KindOperator, id)
	})
}
