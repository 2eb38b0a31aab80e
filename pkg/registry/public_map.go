package registry

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// MapVessel is the public map entry of an active vessel.
type MapVessel struct {
	VesselID        uint         `json:"vesselId"`
	Name            string       `json:"name"`
	LatestPosition  *string      `json:"latestPosition"`
	LatestHeading   *float64     `json:"latestHeading"`
	LatestTimestamp *time.Time   `json:"latestTimestamp"`
	PlannedRoute    []RoutePoint `json:"plannedRoute"`
}

// PublicMap returns every active vessel with its latest position and the
// still-planned part of its route.
func (s *Service) PublicMap(ctx context.Context) ([]MapVessel, error) {
	out := []MapVessel{}
	err := s.read(ctx, "public map", func(db *gorm.DB) error {
		var vessels []Vessel
		if err := db.Where("status = ?", VesselStatusActive).Order("name ASC, id ASC").Find(&vessels).Error; err != nil {
			return err
		}
		for _, v := range vessels {
			entry := MapVessel{VesselID: v.ID, Name: v.Name, PlannedRoute: []RoutePoint{}}

			var loc Location
			err := db.Where("vessel_id = ?", v.ID).Order("timestamp DESC, id DESC").First(&loc).Error
			switch {
			case err == nil:
				entry.LatestPosition = &loc.Position
				entry.LatestHeading = &loc.Heading
				entry.LatestTimestamp = &loc.Timestamp
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			err = db.Where("vessel_id = ? AND status = ?", v.ID, RoutePointPlanned).
				Order("sequence_number ASC").
				Find(&entry.PlannedRoute).Error
			if err != nil {
				return err
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
