package registry

import "time"

// ReadingStatus classifies a sensor reading.
type ReadingStatus string

const (
	ReadingNormal   ReadingStatus = "normal"
	ReadingWarning  ReadingStatus = "warning"
	ReadingCritical ReadingStatus = "critical"
	ReadingError    ReadingStatus = "error"
)

// LocationSource records where a position fix came from.
type LocationSource string

const (
	SourceAIS        LocationSource = "ais"
	SourceGPS        LocationSource = "gps"
	SourceManual     LocationSource = "manual"
	SourceCalculated LocationSource = "calculated"
)

// RoutePointStatus tracks progress along a planned route.
type RoutePointStatus string

const (
	RoutePointPlanned     RoutePointStatus = "planned"
	RoutePointReached     RoutePointStatus = "reached"
	RoutePointSkipped     RoutePointStatus = "skipped"
	RoutePointRescheduled RoutePointStatus = "rescheduled"
)

// MaintenanceStatus tracks a maintenance job.
type MaintenanceStatus string

const (
	MaintenancePlanned    MaintenanceStatus = "planned"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	SeverityInfo      AlertSeverity = "info"
	SeverityWarning   AlertSeverity = "warning"
	SeverityCritical  AlertSeverity = "critical"
	SeverityEmergency AlertSeverity = "emergency"
)

// Positions are opaque WKT strings; no geometry handling happens here.

// SensorReading is a single measurement.
type SensorReading struct {
	ID        uint          `gorm:"primaryKey;column:id" json:"id"`
	SensorID  uint          `gorm:"column:sensor_id;not null;index:idx_sensor_readings_sensor_timestamp,priority:1" json:"sensorId"`
	Value     float64       `gorm:"column:value;not null" json:"value"`
	Status    ReadingStatus `gorm:"column:status;size:20;not null;check:chk_reading_status,status IN ('normal','warning','critical','error')" json:"status" validate:"oneof=normal warning critical error"`
	Timestamp time.Time     `gorm:"column:timestamp;not null;index:idx_sensor_readings_sensor_timestamp,priority:2;index" json:"timestamp"`

	Sensor *Sensor `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (SensorReading) TableName() string { return "sensor_readings" }

// AisData is a decoded AIS position report.
type AisData struct {
	ID               uint      `gorm:"primaryKey;column:id" json:"id"`
	VesselID         uint      `gorm:"column:vessel_id;not null;index:idx_ais_data_vessel_timestamp,priority:1" json:"vesselId"`
	Timestamp        time.Time `gorm:"column:timestamp;not null;index:idx_ais_data_vessel_timestamp,priority:2" json:"timestamp"`
	Position         string    `gorm:"column:position" json:"position"`
	CourseOverGround *float64  `gorm:"column:course_over_ground" json:"courseOverGround,omitempty" validate:"omitempty,gte=0,lt=360"`
	SpeedOverGround  *float64  `gorm:"column:speed_over_ground" json:"speedOverGround,omitempty" validate:"omitempty,gte=0"`
	RateOfTurn       *float64  `gorm:"column:rate_of_turn" json:"rateOfTurn,omitempty"`
	NavigationStatus *int      `gorm:"column:navigation_status" json:"navigationStatus,omitempty" validate:"omitempty,gte=0,lte=15"`
	RawData          string    `gorm:"column:raw_data" json:"rawData,omitempty"`

	Vessel *Vessel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (AisData) TableName() string { return "ais_data" }

// Location is a position fix from any source.
type Location struct {
	ID             uint           `gorm:"primaryKey;column:id" json:"id"`
	VesselID       uint           `gorm:"column:vessel_id;not null;index:idx_locations_vessel_timestamp,priority:1" json:"vesselId"`
	Timestamp      time.Time      `gorm:"column:timestamp;not null;index:idx_locations_vessel_timestamp,priority:2" json:"timestamp"`
	Position       string         `gorm:"column:position;not null" json:"position" validate:"required"`
	Heading        float64        `gorm:"column:heading;not null;check:chk_location_heading_range,heading >= 0 AND heading < 360" json:"heading" validate:"gte=0,lt=360"`
	AccuracyMeters *float64       `gorm:"column:accuracy_meters" json:"accuracyMeters,omitempty" validate:"omitempty,gte=0"`
	Source         LocationSource `gorm:"column:source;size:50;not null" json:"source" validate:"oneof=ais gps manual calculated"`

	Vessel *Vessel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (Location) TableName() string { return "locations" }

// RoutePoint is one waypoint of a vessel's planned route.
type RoutePoint struct {
	ID                   uint             `gorm:"primaryKey;column:id" json:"id"`
	VesselID             uint             `gorm:"column:vessel_id;not null;uniqueIndex:uix_vessel_sequence,priority:1" json:"vesselId"`
	SequenceNumber       int              `gorm:"column:sequence_number;not null;uniqueIndex:uix_vessel_sequence,priority:2" json:"sequenceNumber" validate:"gte=0"`
	PlannedPosition      string           `gorm:"column:planned_position;not null" json:"plannedPosition" validate:"required"`
	PlannedArrivalTime   *time.Time       `gorm:"column:planned_arrival_time;index" json:"plannedArrivalTime,omitempty"`
	PlannedDepartureTime *time.Time       `gorm:"column:planned_departure_time" json:"plannedDepartureTime,omitempty"`
	ActualArrivalTime    *time.Time       `gorm:"column:actual_arrival_time" json:"actualArrivalTime,omitempty"`
	Status               RoutePointStatus `gorm:"column:status;size:20;not null" json:"status" validate:"oneof=planned reached skipped rescheduled"`
	CreatedAt            time.Time        `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt            time.Time        `gorm:"column:updated_at" json:"updatedAt"`

	Vessel *Vessel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (RoutePoint) TableName() string { return "route_points" }

// WeatherData is an observation tied either to a recorded location or to a
// free-standing position, never both.
type WeatherData struct {
	ID                   uint      `gorm:"primaryKey;column:id" json:"id"`
	LocationID           *uint     `gorm:"column:location_id;index" json:"locationId,omitempty"`
	Position             *string   `gorm:"column:position" json:"position,omitempty"`
	Timestamp            time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	TemperatureCelsius   *float64  `gorm:"column:temperature_celsius" json:"temperatureCelsius,omitempty"`
	WindSpeedKnots       *float64  `gorm:"column:wind_speed_knots" json:"windSpeedKnots,omitempty" validate:"omitempty,gte=0"`
	WindDirectionDegrees *float64  `gorm:"column:wind_direction_degrees" json:"windDirectionDegrees,omitempty" validate:"omitempty,gte=0,lt=360"`
	PressureHpa          *float64  `gorm:"column:pressure_hpa" json:"pressureHpa,omitempty"`
	HumidityPercent      *float64  `gorm:"column:humidity_percent" json:"humidityPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	PrecipitationMM      *float64  `gorm:"column:precipitation_mm" json:"precipitationMm,omitempty"`
	VisibilityKM         *float64  `gorm:"column:visibility_km" json:"visibilityKm,omitempty"`
	WaveHeightMeters     *float64  `gorm:"column:wave_height_meters" json:"waveHeightMeters,omitempty" validate:"omitempty,gte=0"`
	WavePeriodSeconds    *float64  `gorm:"column:wave_period_seconds" json:"wavePeriodSeconds,omitempty"`
	WaveDirectionDegrees *float64  `gorm:"column:wave_direction_degrees" json:"waveDirectionDegrees,omitempty" validate:"omitempty,gte=0,lt=360"`
	DataSource           string    `gorm:"column:data_source;size:100" json:"dataSource,omitempty"`

	Location *Location `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (WeatherData) TableName() string { return "weather_data" }

// VesselParameter is a free-form key/value reading for a vessel.
type VesselParameter struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	VesselID  uint      `gorm:"column:vessel_id;not null;index:idx_vessel_parameters_vessel_name,priority:1" json:"vesselId"`
	Name      string    `gorm:"column:name;size:100;not null;index:idx_vessel_parameters_vessel_name,priority:2;index" json:"name" validate:"required,max=100"`
	Value     string    `gorm:"column:value;not null" json:"value" validate:"required"`
	Unit      string    `gorm:"column:unit;size:50" json:"unit,omitempty"`
	Timestamp time.Time `gorm:"column:timestamp;not null" json:"timestamp"`

	Vessel *Vessel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (VesselParameter) TableName() string { return "vessel_parameters" }

// MaintenanceRecord is a maintenance or repair job.
type MaintenanceRecord struct {
	ID              uint              `gorm:"primaryKey;column:id" json:"id"`
	VesselID        uint              `gorm:"column:vessel_id;not null;index" json:"vesselId"`
	MaintenanceType string            `gorm:"column:maintenance_type;size:100;not null" json:"maintenanceType" validate:"required,max=100"`
	Description     string            `gorm:"column:description" json:"description,omitempty"`
	StartDate       time.Time         `gorm:"column:start_date;not null" json:"startDate"`
	EndDate         *time.Time        `gorm:"column:end_date" json:"endDate,omitempty"`
	Status          MaintenanceStatus `gorm:"column:status;size:20;not null;index" json:"status" validate:"oneof=planned in_progress completed cancelled"`
	PerformedBy     string            `gorm:"column:performed_by;size:100" json:"performedBy,omitempty"`
	Cost            *float64          `gorm:"column:cost" json:"cost,omitempty" validate:"omitempty,gte=0"`
	Notes           string            `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time         `gorm:"column:updated_at" json:"updatedAt"`

	Vessel *Vessel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the GORM table name.
func (MaintenanceRecord) TableName() string { return "maintenance_records" }

// Alert is raised against a vessel and optionally one of its sensors.
// SensorID and AcknowledgedBy are nulled when their targets are deleted.
type Alert struct {
	ID             uint          `gorm:"primaryKey;column:id" json:"id"`
	VesselID       uint          `gorm:"column:vessel_id;not null;index" json:"vesselId"`
	SensorID       *uint         `gorm:"column:sensor_id;index" json:"sensorId,omitempty"`
	AlertType      string        `gorm:"column:alert_type;size:50;not null" json:"alertType" validate:"required,max=50"`
	Severity       AlertSeverity `gorm:"column:severity;size:20;not null;index" json:"severity" validate:"oneof=info warning critical emergency"`
	Timestamp      time.Time     `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Message        string        `gorm:"column:message;not null" json:"message" validate:"required"`
	Acknowledged   bool          `gorm:"column:acknowledged;not null;index" json:"acknowledged"`
	AcknowledgedBy *uint         `gorm:"column:acknowledged_by" json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time    `gorm:"column:acknowledged_at" json:"acknowledgedAt,omitempty"`
	Resolved       bool          `gorm:"column:resolved;not null;index" json:"resolved"`
	ResolvedAt     *time.Time    `gorm:"column:resolved_at" json:"resolvedAt,omitempty"`
	Notes          string        `gorm:"column:notes" json:"notes,omitempty"`

	Vessel       *Vessel   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Sensor       *Sensor   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Acknowledger *Operator `gorm:"foreignKey:AcknowledgedBy;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the GORM table name.
func (Alert) TableName() string { return "alerts" }

// TelemetryModels lists the operational record tables.
func TelemetryModels() []any {
	return []any{
		&SensorReading{},
		&AisData{},
		&Location{},
		&RoutePoint{},
		&WeatherData{},
		&VesselParameter{},
		&MaintenanceRecord{},
		&Alert{},
	}
}
