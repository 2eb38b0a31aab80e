package registry

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// RequirementView is a registry row annotated with its sensor class name.
type RequirementView struct {
	VesselTypeID    uint   `json:"vesselTypeId"`
	SensorClassID   uint   `json:"sensorClassId"`
	SensorClassName string `json:"sensorClassName"`
	Required        bool   `json:"required"`
	Quantity        int    `json:"quantity"`
}

// RequirementInput is the payload for AddRequirement. A nil Required means
// required and a nil Quantity means one.
type RequirementInput struct {
	SensorClassID uint  `json:"sensorClassId" validate:"required"`
	Required      *bool `json:"required,omitempty"`
	Quantity      *int  `json:"quantity,omitempty"`
}

func listRequirements(tx *gorm.DB, vesselTypeID uint) ([]RequirementView, error) {
	var rows []RequirementView
	err := tx.Table("vessel_type_required_sensor_types AS r").
		Select("r.vessel_type_id, r.sensor_class_id, sensor_classes.name AS sensor_class_name, r.required, r.quantity").
		Joins("JOIN sensor_classes ON sensor_classes.id = r.sensor_class_id").
		Where("r.vessel_type_id = ?", vesselTypeID).
		Order("sensor_classes.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return rows, nil
}

// ListRequirements returns the registry rows of a vessel type ordered by
// sensor class name.
func (s *Service) ListRequirements(ctx context.Context, vesselTypeID uint) ([]RequirementView, error) {
	var rows []RequirementView
	err := s.read(ctx, "list requirements", func(db *gorm.DB) error {
		if err := mustExist(db, &VesselType{}, KindVesselType, vesselTypeID); err != nil {
			return err
		}
		var err error
		rows, err = listRequirements(db, vesselTypeID)
		return err
	})
	return rows, err
}

// AddRequirement lists a sensor class for a vessel type.
func (s *Service) AddRequirement(ctx context.Context, vesselTypeID uint, in RequirementInput) (*SensorRequirement, error) {
	row := &SensorRequirement{
		VesselTypeID:  vesselTypeID,
		SensorClassID: in.SensorClassID,
		Required:      true,
		Quantity:      1,
	}
	setIf(&row.Required, in.Required)
	setIf(&row.Quantity, in.Quantity)

	err := s.write(ctx, KindRequirement, "create", func(tx *gorm.DB) error {
		if err := checkQuantity(row.Quantity); err != nil {
			return err
		}
		if err := mustExist(tx, &VesselType{}, KindVesselType, vesselTypeID); err != nil {
			return err
		}
		if err := mustExist(tx, &SensorClass{}, KindSensorClass, in.SensorClassID); err != nil {
			return err
		}
		n, err := countWhere(tx, &SensorRequirement{}, "vessel_type_id = ? AND sensor_class_id = ?", vesselTypeID, in.SensorClassID)
		if err != nil {
			return fmt.Errorf("check existing requirement: %w", err)
		}
		if n > 0 {
			return invalid(RuleDuplicateRequirement,
				"sensor class %d is already listed for vessel type %d", in.SensorClassID, vesselTypeID)
		}
		return tx.Omit("VesselType", "SensorClass").Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateRequirement changes the required flag or quantity of an existing row.
func (s *Service) UpdateRequirement(ctx context.Context, vesselTypeID, sensorClassID uint, p RequirementPatch) (*SensorRequirement, error) {
	var row SensorRequirement
	err := s.write(ctx, KindRequirement, "update", func(tx *gorm.DB) error {
		err := forUpdate(tx).
			Where("vessel_type_id = ? AND sensor_class_id = ?", vesselTypeID, sensorClassID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(KindRequirement, fmt.Sprintf("(%d, %d)", vesselTypeID, sensorClassID))
		}
		if err != nil {
			return err
		}
		setIf(&row.Required, p.Required)
		setIf(&row.Quantity, p.Quantity)
		if err := checkQuantity(row.Quantity); err != nil {
			return err
		}
		return tx.Model(&SensorRequirement{}).
			Where("vessel_type_id = ? AND sensor_class_id = ?", vesselTypeID, sensorClassID).
			Updates(map[string]any{"required": row.Required, "quantity": row.Quantity}).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RemoveRequirement deletes a registry row and reports whether one existed.
// Removing a class that installed sensors still rely on is a conflict.
func (s *Service) RemoveRequirement(ctx context.Context, vesselTypeID, sensorClassID uint) (bool, error) {
	var removed bool
	err := s.write(ctx, KindRequirement, "delete", func(tx *gorm.DB) error {
		var installed int64
		err := tx.Table("sensors").
			Joins("JOIN sensor_types ON sensor_types.id = sensors.sensor_type_id").
			Joins("JOIN vessels ON vessels.id = sensors.vessel_id").
			Where("vessels.vessel_type_id = ? AND sensor_types.sensor_class_id = ?", vesselTypeID, sensorClassID).
			Count(&installed).Error
		if err != nil {
			return fmt.Errorf("count installed sensors: %w", err)
		}
		if installed > 0 {
			return &DependencyError{
				Kind:     KindRequirement,
				ID:       fmt.Sprintf("(%d, %d)", vesselTypeID, sensorClassID),
				Blockers: map[string]int64{KindSensor: installed},
			}
		}
		res := tx.Where("vessel_type_id = ? AND sensor_class_id = ?", vesselTypeID, sensorClassID).
			Delete(&SensorRequirement{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	return removed, err
}

func checkQuantity(q int) error {
	if q < 1 {
		return invalid(RuleQuantity, "quantity must be at least 1, got %d", q)
	}
	return nil
}
