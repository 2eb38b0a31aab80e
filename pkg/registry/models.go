package registry

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is a custom GORM type for map[string]any stored as JSON.
type JSONMap map[string]any

// Scan implements the sql.Scanner interface for JSONMap.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONMap.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GormDataType stores the map as text on every dialect.
func (JSONMap) GormDataType() string {
	return "text"
}

// VesselStatus is the operational state of a vessel.
type VesselStatus string

const (
	VesselStatusActive       VesselStatus = "active"
	VesselStatusMaintenance  VesselStatus = "maintenance"
	VesselStatusRetired      VesselStatus = "retired"
	VesselStatusOutOfService VesselStatus = "out_of_service"
)

// Manufacturer builds vessel types and sensor types.
type Manufacturer struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	Country     string    `gorm:"column:country;size:50" json:"country,omitempty" validate:"max=50"`
	ContactInfo JSONMap   `gorm:"column:contact_info;type:text" json:"contactInfo,omitempty"`
	Website     string    `gorm:"column:website;size:255" json:"website,omitempty" validate:"omitempty,url,max=255"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Manufacturer) TableName() string { return "manufacturers" }

// Operator manages fleets and vessels.
type Operator struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	Name          string    `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	ContactPerson string    `gorm:"column:contact_person;size:100" json:"contactPerson,omitempty"`
	Email         string    `gorm:"column:email;size:100" json:"email,omitempty" validate:"omitempty,email,max=100"`
	Phone         string    `gorm:"column:phone;size:20" json:"phone,omitempty" validate:"max=20"`
	Address       string    `gorm:"column:address" json:"address,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Operator) TableName() string { return "operators" }

// Fleet groups vessels under one operator.
type Fleet struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	OperatorID  uint      `gorm:"column:operator_id;not null;index" json:"operatorId"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Operator *Operator `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName returns the GORM table name.
func (Fleet) TableName() string { return "fleets" }

// VesselType is a vessel model; its sensor requirements live in SensorRequirement.
type VesselType struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	Name           string    `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	Description    string    `gorm:"column:description" json:"description,omitempty"`
	ManufacturerID uint      `gorm:"column:manufacturer_id;not null;index" json:"manufacturerId"`
	LengthMeters   *float64  `gorm:"column:length_meters" json:"lengthMeters,omitempty" validate:"omitempty,gt=0"`
	WidthMeters    *float64  `gorm:"column:width_meters" json:"widthMeters,omitempty" validate:"omitempty,gt=0"`
	DraftMeters    *float64  `gorm:"column:draft_meters" json:"draftMeters,omitempty" validate:"omitempty,gt=0"`
	MaxSpeedKnots  *float64  `gorm:"column:max_speed_knots" json:"maxSpeedKnots,omitempty" validate:"omitempty,gt=0"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Manufacturer *Manufacturer `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName returns the GORM table name.
func (VesselType) TableName() string { return "vessel_types" }

// SensorClass is a manufacturer-independent sensor category such as GPS or IMU.
type SensorClass struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null;uniqueIndex:idx_sensor_class_name" json:"name" validate:"required,max=100"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (SensorClass) TableName() string { return "sensor_classes" }

// SensorRequirement is a Requirement Registry row. The composite key is
// (vessel_type_id, sensor_class_id); both sides cascade on delete.
type SensorRequirement struct {
	VesselTypeID  uint      `gorm:"primaryKey;autoIncrement:false;column:vessel_type_id" json:"vesselTypeId"`
	SensorClassID uint      `gorm:"primaryKey;autoIncrement:false;column:sensor_class_id;index" json:"sensorClassId"`
	Required      bool      `gorm:"column:required;not null" json:"required"`
	Quantity      int       `gorm:"column:quantity;not null;check:chk_requirement_quantity,quantity >= 1" json:"quantity"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`

	VesselType  *VesselType  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SensorClass *SensorClass `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (SensorRequirement) TableName() string { return "vessel_type_required_sensor_types" }

// SensorType is a concrete sensor model belonging to one sensor class.
type SensorType struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	Name           string    `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	Description    string    `gorm:"column:description" json:"description,omitempty"`
	SensorClassID  uint      `gorm:"column:sensor_class_id;not null;index" json:"sensorClassId"`
	ManufacturerID *uint     `gorm:"column:manufacturer_id;index" json:"manufacturerId,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`

	SensorClass  *SensorClass  `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Manufacturer *Manufacturer `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName returns the GORM table name.
func (SensorType) TableName() string { return "sensor_types" }

// Vessel is a single boat. OperatorID must equal the fleet's operator while
// FleetID is set.
type Vessel struct {
	ID                 uint         `gorm:"primaryKey;column:id" json:"id"`
	Name               string       `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	VesselTypeID       uint         `gorm:"column:vessel_type_id;not null;index" json:"vesselTypeId"`
	FleetID            *uint        `gorm:"column:fleet_id;index" json:"fleetId"`
	OperatorID         uint         `gorm:"column:operator_id;not null;index" json:"operatorId"`
	ProductionYear     *int         `gorm:"column:production_year" json:"productionYear,omitempty" validate:"omitempty,gte=1800,lte=2200"`
	RegistrationNumber *string      `gorm:"column:registration_number;size:50;uniqueIndex" json:"registrationNumber,omitempty" validate:"omitempty,max=50"`
	IMONumber          *string      `gorm:"column:imo_number;size:20;uniqueIndex" json:"imoNumber,omitempty" validate:"omitempty,max=20"`
	MMSINumber         *string      `gorm:"column:mmsi_number;size:20;uniqueIndex" json:"mmsiNumber,omitempty" validate:"omitempty,max=20"`
	CallSign           *string      `gorm:"column:call_sign;size:20;uniqueIndex" json:"callSign,omitempty" validate:"omitempty,max=20"`
	Status             VesselStatus `gorm:"column:status;size:20;not null;index;check:chk_vessel_status,status IN ('active','maintenance','retired','out_of_service')" json:"status" validate:"omitempty,oneof=active maintenance retired out_of_service"`
	CreatedAt          time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt          time.Time    `gorm:"column:updated_at" json:"updatedAt"`

	VesselType *VesselType `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Fleet      *Fleet      `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Operator   *Operator   `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName returns the GORM table name.
func (Vessel) TableName() string { return "vessels" }

// Sensor is an installed sensor instance. Deleting the vessel deletes it.
type Sensor struct {
	ID               uint       `gorm:"primaryKey;column:id" json:"id"`
	Name             string     `gorm:"column:name;size:100;not null" json:"name" validate:"required,max=100"`
	SensorTypeID     uint       `gorm:"column:sensor_type_id;not null;index" json:"sensorTypeId"`
	VesselID         uint       `gorm:"column:vessel_id;not null;index" json:"vesselId"`
	SerialNumber     string     `gorm:"column:serial_number;size:100" json:"serialNumber,omitempty"`
	InstallationDate *time.Time `gorm:"column:installation_date" json:"installationDate,omitempty"`
	CalibrationDate  *time.Time `gorm:"column:calibration_date" json:"calibrationDate,omitempty"`
	LocationOnBoat   string     `gorm:"column:location_on_boat" json:"locationOnBoat,omitempty"`
	MeasurementUnit  string     `gorm:"column:measurement_unit;size:50" json:"measurementUnit,omitempty"`
	MinVal           *float64   `gorm:"column:min_val" json:"minVal,omitempty"`
	MaxVal           *float64   `gorm:"column:max_val" json:"maxVal,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	SensorType *SensorType `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Vessel     *Vessel     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (Sensor) TableName() string { return "sensors" }

// CoreModels lists the consistency-core tables in dependency order.
func CoreModels() []any {
	return []any{
		&Manufacturer{},
		&Operator{},
		&Fleet{},
		&VesselType{},
		&SensorClass{},
		&SensorRequirement{},
		&SensorType{},
		&Vessel{},
		&Sensor{},
	}
}

// AllModels lists every table owned by the registry.
func AllModels() []any {
	return append(CoreModels(), TelemetryModels()...)
}
