package registry

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/passssat/fleet-registry/pkg/metrics"
)

// ClassStatus compares one registry row with what is installed.
// IsRequirementMet is nil for optional classes.
type ClassStatus struct {
	SensorClassID     uint   `json:"sensorClassId"`
	SensorClassName   string `json:"sensorClassName"`
	Required          bool   `json:"required"`
	DefinedQuantity   int    `json:"definedQuantity"`
	InstalledQuantity int    `json:"installedQuantity"`
	IsRequirementMet  *bool  `json:"isRequirementMet"`
}

// ConfigurationStatus is the sensor configuration of one vessel.
type ConfigurationStatus struct {
	VesselID           uint          `json:"vesselId"`
	VesselTypeID       uint          `json:"vesselTypeId,omitempty"`
	AllRequirementsMet bool          `json:"allRequirementsMet"`
	Classes            []ClassStatus `json:"classes"`
}

// MissingSensor is a required class that is short of its defined quantity.
type MissingSensor struct {
	SensorClassID   uint   `json:"sensorClassId"`
	SensorClassName string `json:"sensorClassName"`
	Required        int    `json:"required"`
	Installed       int    `json:"installed"`
	Missing         int    `json:"missing"`
}

// GetSensorConfigurationStatus reports whether a vessel carries every
// required sensor class in sufficient quantity. It never writes.
func (s *Service) GetSensorConfigurationStatus(ctx context.Context, vesselID uint) (*ConfigurationStatus, error) {
	var status *ConfigurationStatus
	err := s.read(ctx, "get sensor configuration status", func(db *gorm.DB) error {
		// One transaction gives the evaluation a single snapshot.
		return db.Transaction(func(tx *gorm.DB) error {
			var err error
			status, err = evaluate(tx, vesselID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.StatusEvaluation(status.AllRequirementsMet)
	return status, nil
}

// GetMissingSensors lists the required classes a vessel is short of.
func (s *Service) GetMissingSensors(ctx context.Context, vesselID uint) ([]MissingSensor, error) {
	status, err := s.GetSensorConfigurationStatus(ctx, vesselID)
	if err != nil {
		return nil, err
	}
	missing := []MissingSensor{}
	for _, c := range status.Classes {
		if c.IsRequirementMet == nil || *c.IsRequirementMet {
			continue
		}
		missing = append(missing, MissingSensor{
			SensorClassID:   c.SensorClassID,
			SensorClassName: c.SensorClassName,
			Required:        c.DefinedQuantity,
			Installed:       c.InstalledQuantity,
			Missing:         c.DefinedQuantity - c.InstalledQuantity,
		})
	}
	return missing, nil
}

func evaluate(tx *gorm.DB, vesselID uint) (*ConfigurationStatus, error) {
	vessel, err := load[Vessel](tx, KindVessel, vesselID)
	if err != nil {
		return nil, err
	}
	status := &ConfigurationStatus{
		VesselID:           vessel.ID,
		VesselTypeID:       vessel.VesselTypeID,
		AllRequirementsMet: true,
		Classes:            []ClassStatus{},
	}
	if vessel.VesselTypeID == 0 {
		return status, nil
	}

	reqs, err := listRequirements(tx, vessel.VesselTypeID)
	if err != nil {
		return nil, err
	}

	installed, err := installedCounts(tx, vessel.ID)
	if err != nil {
		return nil, err
	}

	for _, r := range reqs {
		cs := ClassStatus{
			SensorClassID:     r.SensorClassID,
			SensorClassName:   r.SensorClassName,
			Required:          r.Required,
			DefinedQuantity:   r.Quantity,
			InstalledQuantity: installed[r.SensorClassID],
		}
		if r.Required {
			met := cs.InstalledQuantity >= cs.DefinedQuantity
			cs.IsRequirementMet = &met
			status.AllRequirementsMet = status.AllRequirementsMet && met
		}
		status.Classes = append(status.Classes, cs)
	}

	sort.SliceStable(status.Classes, func(i, j int) bool {
		a, b := status.Classes[i], status.Classes[j]
		if a.Required != b.Required {
			return a.Required
		}
		return a.SensorClassName < b.SensorClassName
	})
	return status, nil
}

// installedCounts groups a vessel's sensors by sensor class.
func installedCounts(tx *gorm.DB, vesselID uint) (map[uint]int, error) {
	var rows []struct {
		SensorClassID uint
		Installed     int
	}
	err := tx.Table("sensors").
		Select("sensor_types.sensor_class_id AS sensor_class_id, COUNT(sensors.id) AS installed").
		Joins("JOIN sensor_types ON sensor_types.id = sensors.sensor_type_id").
		Where("sensors.vessel_id = ?", vesselID).
		Group("sensor_types.sensor_class_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count installed sensors: %w", err)
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.SensorClassID] = r.Installed
	}
	return counts, nil
}
