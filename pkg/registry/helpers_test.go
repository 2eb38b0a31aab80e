package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestService opens a file-backed sqlite database with foreign keys
// enforced and every registry table migrated.
func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "registry.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := NewService(db, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, svc.AutoMigrate())
	return svc
}

// fixture is a small registry: one fleet owned by operator, a trawler type
// that requires two GPS units and allows an optional radar, and a sonar class
// the trawler does not list.
type fixture struct {
	svc *Service
	ctx context.Context

	operator      *Operator
	otherOperator *Operator
	fleet         *Fleet
	maker         *Manufacturer
	trawler       *VesselType

	gps, radar, sonar             *SensorClass
	gpsType, radarType, sonarType *SensorType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{svc: newTestService(t), ctx: context.Background()}
	var err error

	f.operator, err = f.svc.CreateOperator(f.ctx, &Operator{Name: "Nordic Marine"})
	require.NoError(t, err)
	f.otherOperator, err = f.svc.CreateOperator(f.ctx, &Operator{Name: "Baltic Shipping"})
	require.NoError(t, err)
	f.fleet, err = f.svc.CreateFleet(f.ctx, &Fleet{Name: "North Sea", OperatorID: f.operator.ID})
	require.NoError(t, err)
	f.maker, err = f.svc.CreateManufacturer(f.ctx, &Manufacturer{Name: "Kongsberg", Country: "Norway"})
	require.NoError(t, err)
	f.trawler, err = f.svc.CreateVesselType(f.ctx, &VesselType{Name: "Trawler", ManufacturerID: f.maker.ID})
	require.NoError(t, err)

	f.gps = f.sensorClass(t, "GPS")
	f.radar = f.sensorClass(t, "Radar")
	f.sonar = f.sensorClass(t, "Sonar")
	f.gpsType = f.sensorType(t, "GPS-200", f.gps.ID)
	f.radarType = f.sensorType(t, "RD-9", f.radar.ID)
	f.sonarType = f.sensorType(t, "SN-1", f.sonar.ID)

	_, err = f.svc.AddRequirement(f.ctx, f.trawler.ID, RequirementInput{SensorClassID: f.gps.ID, Quantity: ptr(2)})
	require.NoError(t, err)
	_, err = f.svc.AddRequirement(f.ctx, f.trawler.ID, RequirementInput{SensorClassID: f.radar.ID, Required: ptr(false)})
	require.NoError(t, err)
	return f
}

func (f *fixture) sensorClass(t *testing.T, name string) *SensorClass {
	t.Helper()
	c, err := f.svc.CreateSensorClass(f.ctx, &SensorClass{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) sensorType(t *testing.T, name string, classID uint) *SensorType {
	t.Helper()
	st, err := f.svc.CreateSensorType(f.ctx, &SensorType{Name: name, SensorClassID: classID})
	require.NoError(t, err)
	return st
}

func (f *fixture) vesselType(t *testing.T, name string, classIDs ...uint) *VesselType {
	t.Helper()
	vt, err := f.svc.CreateVesselType(f.ctx, &VesselType{Name: name, ManufacturerID: f.maker.ID})
	require.NoError(t, err)
	for _, id := range classIDs {
		_, err := f.svc.AddRequirement(f.ctx, vt.ID, RequirementInput{SensorClassID: id})
		require.NoError(t, err)
	}
	return vt
}

// vessel creates a trawler in the fixture fleet.
func (f *fixture) vessel(t *testing.T, name string) *Vessel {
	t.Helper()
	v, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: name, VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID})
	require.NoError(t, err)
	return v
}

func (f *fixture) sensor(t *testing.T, vesselID, typeID uint) *Sensor {
	t.Helper()
	sn, err := f.svc.CreateSensor(f.ctx, &Sensor{Name: "unit", VesselID: vesselID, SensorTypeID: typeID})
	require.NoError(t, err)
	return sn
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	n, err := countWhere(f.svc.DB(), model, query, args...)
	require.NoError(t, err)
	return n
}

// requireRule asserts err is a ValidationError carrying rule.
func requireRule(t *testing.T, err error, rule string) *ValidationError {
	t.Helper()
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
	require.Equal(t, rule, ve.Rule)
	return ve
}

func ptr[T any](v T) *T { return &v }
