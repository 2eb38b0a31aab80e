package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/passssat/fleet-registry/pkg/filter"
)

// VesselQuery narrows ListVessels. Zero values mean no restriction.
type VesselQuery struct {
	FleetID    uint
	OperatorID uint
	Filter     string
}

var vesselFilterColumns = filter.Columns{
	"name":                "vessels.name",
	"status":              "vessels.status",
	"fleet_id":            "vessels.fleet_id",
	"operator_id":         "vessels.operator_id",
	"vessel_type_id":      "vessels.vessel_type_id",
	"production_year":     "vessels.production_year",
	"registration_number": "vessels.registration_number",
	"imo_number":          "vessels.imo_number",
	"mmsi_number":         "vessels.mmsi_number",
	"call_sign":           "vessels.call_sign",
}

func checkVesselRefs(tx *gorm.DB, v *Vessel) error {
	if err := mustExist(tx, &VesselType{}, KindVesselType, v.VesselTypeID); err != nil {
		return err
	}
	return mustExist(tx, &Operator{}, KindOperator, v.OperatorID)
}

// CreateVessel inserts a vessel. When FleetID is set the vessel adopts the
// fleet's operator; a different explicit OperatorID is rejected.
func (s *Service) CreateVessel(ctx context.Context, v *Vessel) (*Vessel, error) {
	v.ID = 0
	if v.Status == "" {
		v.Status = VesselStatusActive
	}
	normalizeIdentifiers(v)

	err := s.write(ctx, KindVessel, "create", func(tx *gorm.DB) error {
		if err := s.checkPayload(v); err != nil {
			return err
		}
		if v.FleetID == nil && v.OperatorID == 0 {
			return invalid(RulePayload, "a vessel needs an operator or a fleet")
		}
		if err := applyFleetOperator(tx, v, createOwnership(v)); err != nil {
			return err
		}
		if err := checkVesselRefs(tx, v); err != nil {
			return err
		}
		if err := checkVesselIdentifiers(tx, v); err != nil {
			return err
		}
		if err := checkFleetOperator(tx, v); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(v).Error
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetVessel returns a vessel by id.
func (s *Service) GetVessel(ctx context.Context, id uint) (*Vessel, error) {
	var v *Vessel
	err := s.read(ctx, "get vessel", func(db *gorm.DB) error {
		var err error
		v, err = load[Vessel](db, KindVessel, id)
		return err
	})
	return v, err
}

// ListVessels returns vessels ordered by name.
func (s *Service) ListVessels(ctx context.Context, q VesselQuery) ([]Vessel, error) {
	expr, err := filter.Parse(q.Filter)
	if err != nil {
		return nil, invalid(RulePayload, "%v", err)
	}

	var out []Vessel
	err = s.read(ctx, "list vessels", func(db *gorm.DB) error {
		if q.FleetID != 0 {
			if err := mustExist(db, &Fleet{}, KindFleet, q.FleetID); err != nil {
				return err
			}
		}
		if q.OperatorID != 0 {
			if err := mustExist(db, &Operator{}, KindOperator, q.OperatorID); err != nil {
				return err
			}
		}

		stmt := db.Model(&Vessel{}).Order("vessels.name ASC, vessels.id ASC")
		if q.FleetID != 0 {
			stmt = stmt.Where("vessels.fleet_id = ?", q.FleetID)
		}
		if q.OperatorID != 0 {
			stmt = stmt.Where("vessels.operator_id = ?", q.OperatorID)
		}
		stmt, err := expr.Apply(stmt, vesselFilterColumns)
		if err != nil {
			return invalid(RulePayload, "%v", err)
		}
		return stmt.Find(&out).Error
	})
	return out, err
}

// UpdateVessel applies a partial update under the fleet/operator rule.
// Changing the vessel type re-checks every installed sensor against the new
// type's allowed classes.
func (s *Service) UpdateVessel(ctx context.Context, id uint, p VesselPatch) (*Vessel, error) {
	var v *Vessel
	err := s.write(ctx, KindVessel, "update", func(tx *gorm.DB) error {
		var err error
		if v, err = loadLocked[Vessel](tx, KindVessel, id); err != nil {
			return err
		}
		previousType := v.VesselTypeID
		p.apply(v)
		if err := s.checkPayload(v); err != nil {
			return err
		}
		if err := applyFleetOperator(tx, v, patchOwnership(p)); err != nil {
			return err
		}
		if err := checkVesselRefs(tx, v); err != nil {
			return err
		}
		if err := checkVesselIdentifiers(tx, v); err != nil {
			return err
		}
		if v.VesselTypeID != previousType {
			if err := checkInstalledSensors(tx, v.ID, v.VesselTypeID); err != nil {
				return err
			}
		}
		if err := checkFleetOperator(tx, v); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(v).Error
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVessel removes a vessel together with its sensors and operational
// records.
func (s *Service) DeleteVessel(ctx context.Context, id uint) error {
	return s.write(ctx, KindVessel, "delete", func(tx *gorm.DB) error {
		return deleteGuarded[Vessel](tx, KindVessel, id)
	})
}
