// Package seed loads reference data from YAML through the registry service,
// so every fixture passes the same consistency rules as API writes.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/passssat/fleet-registry/pkg/registry"
)

//go:embed default.yaml
var defaultFixture []byte

// File is the top-level structure of a fixture file. Entries refer to each
// other by key.
type File struct {
	Operators     []Operator     `yaml:"operators"`
	Fleets        []Fleet        `yaml:"fleets"`
	Manufacturers []Manufacturer `yaml:"manufacturers"`
	SensorClasses []SensorClass  `yaml:"sensorClasses"`
	SensorTypes   []SensorType   `yaml:"sensorTypes"`
	VesselTypes   []VesselType   `yaml:"vesselTypes"`
	Vessels       []Vessel       `yaml:"vessels"`
	Sensors       []Sensor       `yaml:"sensors"`
}

type Operator struct {
	Key           string `yaml:"key"`
	Name          string `yaml:"name"`
	ContactPerson string `yaml:"contactPerson,omitempty"`
	Email         string `yaml:"email,omitempty"`
	Phone         string `yaml:"phone,omitempty"`
}

type Fleet struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Operator    string `yaml:"operator"`
}

type Manufacturer struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Country string `yaml:"country,omitempty"`
	Website string `yaml:"website,omitempty"`
}

type SensorClass struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type SensorType struct {
	Key          string `yaml:"key"`
	Name         string `yaml:"name"`
	Class        string `yaml:"class"`
	Manufacturer string `yaml:"manufacturer,omitempty"`
}

// Requirement lists a sensor class for a vessel type. Required defaults to
// true and Quantity to one.
type Requirement struct {
	Class    string `yaml:"class"`
	Required *bool  `yaml:"required,omitempty"`
	Quantity *int   `yaml:"quantity,omitempty"`
}

type VesselType struct {
	Key           string        `yaml:"key"`
	Name          string        `yaml:"name"`
	Manufacturer  string        `yaml:"manufacturer"`
	LengthMeters  *float64      `yaml:"lengthMeters,omitempty"`
	MaxSpeedKnots *float64      `yaml:"maxSpeedKnots,omitempty"`
	Requirements  []Requirement `yaml:"requirements,omitempty"`
}

// Vessel names its fleet or its operator; a fleet decides the operator.
type Vessel struct {
	Key            string `yaml:"key"`
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	Fleet          string `yaml:"fleet,omitempty"`
	Operator       string `yaml:"operator,omitempty"`
	Status         string `yaml:"status,omitempty"`
	ProductionYear *int   `yaml:"productionYear,omitempty"`
	IMONumber      string `yaml:"imoNumber,omitempty"`
	MMSINumber     string `yaml:"mmsiNumber,omitempty"`
	CallSign       string `yaml:"callSign,omitempty"`
}

type Sensor struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Vessel       string `yaml:"vessel"`
	SerialNumber string `yaml:"serialNumber,omitempty"`
	Location     string `yaml:"location,omitempty"`
}

// ErrInvalid marks documents that cannot be applied as written, whatever the
// registry contents.
var ErrInvalid = errors.New("invalid seed data")

// Result maps fixture keys to the ids the registry assigned.
type Result struct {
	Operators     map[string]uint
	Fleets        map[string]uint
	Manufacturers map[string]uint
	SensorClasses map[string]uint
	SensorTypes   map[string]uint
	VesselTypes   map[string]uint
	Vessels       map[string]uint
	Sensors       int
}

// Created returns the number of entities the registry accepted.
func (r *Result) Created() int {
	if r == nil {
		return 0
	}
	n := r.Sensors
	for _, m := range []map[string]uint{
		r.Operators, r.Fleets, r.Manufacturers, r.SensorClasses, r.SensorTypes, r.VesselTypes, r.Vessels,
	} {
		n += len(m)
	}
	return n
}

// Parse decodes a fixture document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &f, nil
}

// Default returns the built-in reference data set.
func Default() (*File, error) {
	return Parse(defaultFixture)
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed data: %w", err)
	}
	return Parse(data)
}

// Loader writes fixtures through a registry service.
type Loader struct {
	svc    *registry.Service
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(svc *registry.Service, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{svc: svc, logger: logger}
}

// Apply creates every entity in f in dependency order. It stops at the first
// rejected entry; entries created before it are kept.
func (l *Loader) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{
		Operators:     map[string]uint{},
		Fleets:        map[string]uint{},
		Manufacturers: map[string]uint{},
		SensorClasses: map[string]uint{},
		SensorTypes:   map[string]uint{},
		VesselTypes:   map[string]uint{},
		Vessels:       map[string]uint{},
	}

	for _, o := range f.Operators {
		out, err := l.svc.CreateOperator(ctx, &registry.Operator{
			Name: o.Name, ContactPerson: o.ContactPerson, Email: o.Email, Phone: o.Phone,
		})
		if err != nil {
			return res, fmt.Errorf("seed operator %q: %w", o.Key, err)
		}
		res.Operators[o.Key] = out.ID
	}

	for _, fl := range f.Fleets {
		opID, err := lookup(res.Operators, "operator", fl.Operator)
		if err != nil {
			return res, fmt.Errorf("seed fleet %q: %w", fl.Key, err)
		}
		out, err := l.svc.CreateFleet(ctx, &registry.Fleet{Name: fl.Name, Description: fl.Description, OperatorID: opID})
		if err != nil {
			return res, fmt.Errorf("seed fleet %q: %w", fl.Key, err)
		}
		res.Fleets[fl.Key] = out.ID
	}

	for _, m := range f.Manufacturers {
		out, err := l.svc.CreateManufacturer(ctx, &registry.Manufacturer{Name: m.Name, Country: m.Country, Website: m.Website})
		if err != nil {
			return res, fmt.Errorf("seed manufacturer %q: %w", m.Key, err)
		}
		res.Manufacturers[m.Key] = out.ID
	}

	for _, c := range f.SensorClasses {
		out, err := l.svc.CreateSensorClass(ctx, &registry.SensorClass{Name: c.Name, Description: c.Description})
		if err != nil {
			return res, fmt.Errorf("seed sensor class %q: %w", c.Key, err)
		}
		res.SensorClasses[c.Key] = out.ID
	}

	for _, t := range f.SensorTypes {
		st := &registry.SensorType{Name: t.Name}
		var err error
		if st.SensorClassID, err = lookup(res.SensorClasses, "sensor class", t.Class); err != nil {
			return res, fmt.Errorf("seed sensor type %q: %w", t.Key, err)
		}
		if t.Manufacturer != "" {
			id, err := lookup(res.Manufacturers, "manufacturer", t.Manufacturer)
			if err != nil {
				return res, fmt.Errorf("seed sensor type %q: %w", t.Key, err)
			}
			st.ManufacturerID = &id
		}
		out, err := l.svc.CreateSensorType(ctx, st)
		if err != nil {
			return res, fmt.Errorf("seed sensor type %q: %w", t.Key, err)
		}
		res.SensorTypes[t.Key] = out.ID
	}

	for _, vt := range f.VesselTypes {
		if err := l.applyVesselType(ctx, res, vt); err != nil {
			return res, fmt.Errorf("seed vessel type %q: %w", vt.Key, err)
		}
	}

	for _, v := range f.Vessels {
		if err := l.applyVessel(ctx, res, v); err != nil {
			return res, fmt.Errorf("seed vessel %q: %w", v.Key, err)
		}
	}

	for _, s := range f.Sensors {
		typeID, err := lookup(res.SensorTypes, "sensor type", s.Type)
		if err != nil {
			return res, fmt.Errorf("seed sensor %q: %w", s.Name, err)
		}
		vesselID, err := lookup(res.Vessels, "vessel", s.Vessel)
		if err != nil {
			return res, fmt.Errorf("seed sensor %q: %w", s.Name, err)
		}
		_, err = l.svc.CreateSensor(ctx, &registry.Sensor{
			Name: s.Name, SensorTypeID: typeID, VesselID: vesselID,
			SerialNumber: s.SerialNumber, LocationOnBoat: s.Location,
		})
		if err != nil {
			return res, fmt.Errorf("seed sensor %q: %w", s.Name, err)
		}
		res.Sensors++
	}

	l.logger.Info("seed data applied",
		"operators", len(res.Operators),
		"fleets", len(res.Fleets),
		"vesselTypes", len(res.VesselTypes),
		"vessels", len(res.Vessels),
		"sensors", res.Sensors)
	return res, nil
}

func (l *Loader) applyVesselType(ctx context.Context, res *Result, vt VesselType) error {
	mID, err := lookup(res.Manufacturers, "manufacturer", vt.Manufacturer)
	if err != nil {
		return err
	}
	out, err := l.svc.CreateVesselType(ctx, &registry.VesselType{
		Name: vt.Name, ManufacturerID: mID, LengthMeters: vt.LengthMeters, MaxSpeedKnots: vt.MaxSpeedKnots,
	})
	if err != nil {
		return err
	}
	res.VesselTypes[vt.Key] = out.ID
	for _, r := range vt.Requirements {
		classID, err := lookup(res.SensorClasses, "sensor class", r.Class)
		if err != nil {
			return err
		}
		_, err = l.svc.AddRequirement(ctx, out.ID, registry.RequirementInput{
			SensorClassID: classID, Required: r.Required, Quantity: r.Quantity,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) applyVessel(ctx context.Context, res *Result, v Vessel) error {
	typeID, err := lookup(res.VesselTypes, "vessel type", v.Type)
	if err != nil {
		return err
	}
	vessel := &registry.Vessel{
		Name:           v.Name,
		VesselTypeID:   typeID,
		Status:         registry.VesselStatus(v.Status),
		ProductionYear: v.ProductionYear,
		IMONumber:      optional(v.IMONumber),
		MMSINumber:     optional(v.MMSINumber),
		CallSign:       optional(v.CallSign),
	}
	if v.Fleet != "" {
		id, err := lookup(res.Fleets, "fleet", v.Fleet)
		if err != nil {
			return err
		}
		vessel.FleetID = &id
	}
	if v.Operator != "" {
		if vessel.OperatorID, err = lookup(res.Operators, "operator", v.Operator); err != nil {
			return err
		}
	}
	out, err := l.svc.CreateVessel(ctx, vessel)
	if err != nil {
		return err
	}
	res.Vessels[v.Key] = out.ID
	return nil
}

func lookup(ids map[string]uint, kind, key string) (uint, error) {
	id, ok := ids[key]
	if !ok {
		return 0, fmt.Errorf("%w: unknown %s key %q", ErrInvalid, kind, key)
	}
	return id, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
