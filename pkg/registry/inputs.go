package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NullableID distinguishes an absent foreign key from an explicit null in a
// patch. Set is true whenever the field appeared in the payload.
type NullableID struct {
	Set   bool
	Value *uint
}

// SetID returns a NullableID pointing at id.
func SetID(id uint) NullableID { return NullableID{Set: true, Value: &id} }

// ClearID returns a NullableID that clears the reference.
func ClearID() NullableID { return NullableID{Set: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	n.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Patch types carry partial updates; nil fields are left unchanged.

type OperatorPatch struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
}

func (p OperatorPatch) apply(o *Operator) {
	setIf(&o.Name, p.Name)
	setIf(&o.ContactPerson, p.ContactPerson)
	setIf(&o.Email, p.Email)
	setIf(&o.Phone, p.Phone)
	setIf(&o.Address, p.Address)
}

type FleetPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	OperatorID  *uint   `json:"operatorId,omitempty"`
}

func (p FleetPatch) apply(f *Fleet) {
	setIf(&f.Name, p.Name)
	setIf(&f.Description, p.Description)
	setIf(&f.OperatorID, p.OperatorID)
}

type ManufacturerPatch struct {
	Name        *string  `json:"name,omitempty"`
	Country     *string  `json:"country,omitempty"`
	ContactInfo *JSONMap `json:"contactInfo,omitempty"`
	Website     *string  `json:"website,omitempty"`
}

func (p ManufacturerPatch) apply(m *Manufacturer) {
	setIf(&m.Name, p.Name)
	setIf(&m.Country, p.Country)
	setIf(&m.ContactInfo, p.ContactInfo)
	setIf(&m.Website, p.Website)
}

type VesselTypePatch struct {
	Name           *string  `json:"name,omitempty"`
	Description    *string  `json:"description,omitempty"`
	ManufacturerID *uint    `json:"manufacturerId,omitempty"`
	LengthMeters   *float64 `json:"lengthMeters,omitempty"`
	WidthMeters    *float64 `json:"widthMeters,omitempty"`
	DraftMeters    *float64 `json:"draftMeters,omitempty"`
	MaxSpeedKnots  *float64 `json:"maxSpeedKnots,omitempty"`
}

func (p VesselTypePatch) apply(t *VesselType) {
	setIf(&t.Name, p.Name)
	setIf(&t.Description, p.Description)
	setIf(&t.ManufacturerID, p.ManufacturerID)
	setPtrIf(&t.LengthMeters, p.LengthMeters)
	setPtrIf(&t.WidthMeters, p.WidthMeters)
	setPtrIf(&t.DraftMeters, p.DraftMeters)
	setPtrIf(&t.MaxSpeedKnots, p.MaxSpeedKnots)
}

type SensorClassPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p SensorClassPatch) apply(c *SensorClass) {
	setIf(&c.Name, p.Name)
	setIf(&c.Description, p.Description)
}

type SensorTypePatch struct {
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	SensorClassID  *uint      `json:"sensorClassId,omitempty"`
	ManufacturerID NullableID `json:"manufacturerId"`
}

func (p SensorTypePatch) apply(t *SensorType) {
	setIf(&t.Name, p.Name)
	setIf(&t.Description, p.Description)
	setIf(&t.SensorClassID, p.SensorClassID)
	if p.ManufacturerID.Set {
		t.ManufacturerID = p.ManufacturerID.Value
	}
}

// VesselPatch is a partial vessel update. FleetID and OperatorID are not
// applied by apply; the fleet/operator rule resolves them.
type VesselPatch struct {
	Name               *string       `json:"name,omitempty"`
	VesselTypeID       *uint         `json:"vesselTypeId,omitempty"`
	FleetID            NullableID    `json:"fleetId"`
	OperatorID         *uint         `json:"operatorId,omitempty"`
	ProductionYear     *int          `json:"productionYear,omitempty"`
	RegistrationNumber *string       `json:"registrationNumber,omitempty"`
	IMONumber          *string       `json:"imoNumber,omitempty"`
	MMSINumber         *string       `json:"mmsiNumber,omitempty"`
	CallSign           *string       `json:"callSign,omitempty"`
	Status             *VesselStatus `json:"status,omitempty"`
}

func (p VesselPatch) apply(v *Vessel) {
	setIf(&v.Name, p.Name)
	setIf(&v.VesselTypeID, p.VesselTypeID)
	setPtrIf(&v.ProductionYear, p.ProductionYear)
	setIdentifier(&v.RegistrationNumber, p.RegistrationNumber)
	setIdentifier(&v.IMONumber, p.IMONumber)
	setIdentifier(&v.MMSINumber, p.MMSINumber)
	setIdentifier(&v.CallSign, p.CallSign)
	setIf(&v.Status, p.Status)
}

type SensorPatch struct {
	Name             *string    `json:"name,omitempty"`
	SensorTypeID     *uint      `json:"sensorTypeId,omitempty"`
	VesselID         *uint      `json:"vesselId,omitempty"`
	SerialNumber     *string    `json:"serialNumber,omitempty"`
	InstallationDate *time.Time `json:"installationDate,omitempty"`
	CalibrationDate  *time.Time `json:"calibrationDate,omitempty"`
	LocationOnBoat   *string    `json:"locationOnBoat,omitempty"`
	MeasurementUnit  *string    `json:"measurementUnit,omitempty"`
	MinVal           *float64   `json:"minVal,omitempty"`
	MaxVal           *float64   `json:"maxVal,omitempty"`
}

func (p SensorPatch) apply(s *Sensor) {
	setIf(&s.Name, p.Name)
	setIf(&s.SensorTypeID, p.SensorTypeID)
	setIf(&s.VesselID, p.VesselID)
	setIf(&s.SerialNumber, p.SerialNumber)
	setPtrIf(&s.InstallationDate, p.InstallationDate)
	setPtrIf(&s.CalibrationDate, p.CalibrationDate)
	setIf(&s.LocationOnBoat, p.LocationOnBoat)
	setIf(&s.MeasurementUnit, p.MeasurementUnit)
	setPtrIf(&s.MinVal, p.MinVal)
	setPtrIf(&s.MaxVal, p.MaxVal)
}

// RequirementPatch changes the attributes of an existing registry row.
type RequirementPatch struct {
	Required *bool `json:"required,omitempty"`
	Quantity *int  `json:"quantity,omitempty"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setPtrIf[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// setIdentifier treats an empty string as clearing a unique identifier so
// that several vessels may lack one.
func setIdentifier(dst **string, src *string) {
	if src == nil {
		return
	}
	if *src == "" {
		*dst = nil
		return
	}
	v := *src
	*dst = &v
}

func normalizeIdentifiers(v *Vessel) {
	for _, p := range []**string{&v.RegistrationNumber, &v.IMONumber, &v.MMSINumber, &v.CallSign} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}
}
