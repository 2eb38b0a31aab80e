package registry

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"gorm.io/gorm"
)

// ownershipChange describes which of fleet_id and operator_id a write
// supplied explicitly.
type ownershipChange struct {
	fleetSet    bool
	fleetID     *uint
	operatorSet bool
	operatorID  uint
}

func createOwnership(v *Vessel) ownershipChange {
	return ownershipChange{
		fleetSet:    v.FleetID != nil,
		fleetID:     v.FleetID,
		operatorSet: v.OperatorID != 0,
		operatorID:  v.OperatorID,
	}
}

func patchOwnership(p VesselPatch) ownershipChange {
	c := ownershipChange{fleetSet: p.FleetID.Set, fleetID: p.FleetID.Value}
	if p.OperatorID != nil {
		c.operatorSet = true
		c.operatorID = *p.OperatorID
	}
	return c
}

// applyFleetOperator resolves fleet_id and operator_id on v.
//
// Assigning a fleet adopts the fleet's operator. An operator supplied in the
// same write must already equal it. Changing the operator of a vessel that
// stays in its fleet is rejected on mismatch instead of being corrected.
func applyFleetOperator(tx *gorm.DB, v *Vessel, c ownershipChange) error {
	if c.fleetSet && c.fleetID != nil {
		fleet, err := load[Fleet](tx, KindFleet, *c.fleetID)
		if err != nil {
			return err
		}
		if c.operatorSet && c.operatorID != fleet.OperatorID {
			return operatorMismatch(fleet, c.operatorID)
		}
		v.FleetID = &fleet.ID
		v.OperatorID = fleet.OperatorID
		return nil
	}

	if c.fleetSet {
		v.FleetID = nil
	}
	if !c.operatorSet {
		return nil
	}
	if v.FleetID != nil {
		fleet, err := load[Fleet](tx, KindFleet, *v.FleetID)
		if err != nil {
			return err
		}
		if c.operatorID != fleet.OperatorID {
			return operatorMismatch(fleet, c.operatorID)
		}
	}
	v.OperatorID = c.operatorID
	return nil
}

// checkFleetOperator re-reads the fleet under lock right before a vessel is
// written, so a concurrent fleet operator change cannot slip between the
// resolution above and the commit.
func checkFleetOperator(tx *gorm.DB, v *Vessel) error {
	if v.FleetID == nil {
		return nil
	}
	fleet, err := loadLocked[Fleet](tx, KindFleet, *v.FleetID)
	if err != nil {
		return err
	}
	if fleet.OperatorID != v.OperatorID {
		return operatorMismatch(fleet, v.OperatorID)
	}
	return nil
}

func operatorMismatch(f *Fleet, requested uint) error {
	return invalid(RuleFleetOperator,
		"operator must match fleet's operator: fleet %d belongs to operator %d, requested operator %d",
		f.ID, f.OperatorID, requested)
}

// allowedClasses returns every sensor class listed for a vessel type,
// required or optional.
func allowedClasses(tx *gorm.DB, vesselTypeID uint) (mapset.Set[uint], error) {
	var ids []uint
	err := tx.Model(&SensorRequirement{}).
		Where("vessel_type_id = ?", vesselTypeID).
		Pluck("sensor_class_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list allowed sensor classes: %w", err)
	}
	return mapset.NewThreadUnsafeSet(ids...), nil
}

// checkSensorCompatible enforces that the sensor type's class is allowed on
// the vessel's type.
func checkSensorCompatible(tx *gorm.DB, sensorTypeID, vesselID uint) error {
	vessel, err := load[Vessel](tx, KindVessel, vesselID)
	if err != nil {
		return err
	}
	st, err := load[SensorType](tx, KindSensorType, sensorTypeID)
	if err != nil {
		return err
	}
	allowed, err := allowedClasses(tx, vessel.VesselTypeID)
	if err != nil {
		return err
	}
	if allowed.Contains(st.SensorClassID) {
		return nil
	}
	return incompatibleClass(tx, st.SensorClassID, vessel.VesselTypeID)
}

// checkInstalledSensors re-applies the compatibility rule to every sensor on
// a vessel as if the vessel had vesselTypeID.
func checkInstalledSensors(tx *gorm.DB, vesselID, vesselTypeID uint) error {
	allowed, err := allowedClasses(tx, vesselTypeID)
	if err != nil {
		return err
	}
	var classIDs []uint
	err = tx.Table("sensors").
		Joins("JOIN sensor_types ON sensor_types.id = sensors.sensor_type_id").
		Where("sensors.vessel_id = ?", vesselID).
		Distinct().
		Pluck("sensor_types.sensor_class_id", &classIDs).Error
	if err != nil {
		return fmt.Errorf("list installed sensor classes: %w", err)
	}
	for _, id := range classIDs {
		if !allowed.Contains(id) {
			return incompatibleClass(tx, id, vesselTypeID)
		}
	}
	return nil
}

// checkSensorTypeReclass rejects moving a sensor type to a class that is not
// allowed on some vessel already carrying a sensor of that type.
func checkSensorTypeReclass(tx *gorm.DB, sensorTypeID, classID uint) error {
	var vesselTypeIDs []uint
	err := tx.Table("sensors").
		Joins("JOIN vessels ON vessels.id = sensors.vessel_id").
		Where("sensors.sensor_type_id = ?", sensorTypeID).
		Where("NOT EXISTS (SELECT 1 FROM vessel_type_required_sensor_types r WHERE r.vessel_type_id = vessels.vessel_type_id AND r.sensor_class_id = ?)", classID).
		Distinct().
		Pluck("vessels.vessel_type_id", &vesselTypeIDs).Error
	if err != nil {
		return fmt.Errorf("check installed sensors of type %d: %w", sensorTypeID, err)
	}
	if len(vesselTypeIDs) > 0 {
		return incompatibleClass(tx, classID, vesselTypeIDs[0])
	}
	return nil
}

func incompatibleClass(tx *gorm.DB, classID, vesselTypeID uint) error {
	className := fmt.Sprintf("#%d", classID)
	var sc SensorClass
	if err := tx.Select("name").First(&sc, "id = ?", classID).Error; err == nil {
		className = sc.Name
	}
	typeName := fmt.Sprintf("#%d", vesselTypeID)
	var vt VesselType
	if err := tx.Select("name").First(&vt, "id = ?", vesselTypeID).Error; err == nil {
		typeName = vt.Name
	}
	return invalid(RuleSensorCompatible,
		"sensor class %q (id %d) is not allowed for vessel type %q (id %d)",
		className, classID, typeName, vesselTypeID)
}

// checkSensorClassName enforces globally unique sensor class names.
func checkSensorClassName(tx *gorm.DB, name string, selfID uint) error {
	n, err := countWhere(tx, &SensorClass{}, "name = ? AND id <> ?", name, selfID)
	if err != nil {
		return fmt.Errorf("check sensor class name: %w", err)
	}
	if n > 0 {
		return invalid(RuleUniqueName, "sensor class name %q already exists", name)
	}
	return nil
}

// checkVesselIdentifiers rejects registration, IMO, MMSI or call sign values
// already held by another vessel.
func checkVesselIdentifiers(tx *gorm.DB, v *Vessel) error {
	fields := []struct {
		column string
		label  string
		value  *string
	}{
		{"registration_number", "registration number", v.RegistrationNumber},
		{"imo_number", "IMO number", v.IMONumber},
		{"mmsi_number", "MMSI number", v.MMSINumber},
		{"call_sign", "call sign", v.CallSign},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		n, err := countWhere(tx, &Vessel{}, f.column+" = ? AND id <> ?", *f.value, v.ID)
		if err != nil {
			return fmt.Errorf("check vessel %s: %w", f.label, err)
		}
		if n > 0 {
			return invalid(RuleUniqueIdentifier, "a vessel with %s %q already exists", f.label, *f.value)
		}
	}
	return nil
}
