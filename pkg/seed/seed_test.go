package seed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passssat/fleet-registry/pkg/registry"
	"github.com/passssat/fleet-registry/pkg/store"
)

func setupService(t *testing.T) *registry.Service {
	t.Helper()
	db, err := store.Open(store.Config{Type: store.TypeSQLite, DSN: filepath.Join(t.TempDir(), "seed.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })
	require.NoError(t, store.Migrate(context.Background(), db, nil, nil))
	return registry.NewService(db)
}

func TestDefaultFixtureApplies(t *testing.T) {
	svc := setupService(t)
	f, err := Default()
	require.NoError(t, err)

	res, err := NewLoader(svc, nil).Apply(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, res.Vessels, 4)
	assert.Equal(t, 9, res.Sensors)
	assert.Greater(t, res.Created(), 13)

	ctx := context.Background()
	aurora, err := svc.GetVessel(ctx, res.Vessels["aurora"])
	require.NoError(t, err)
	assert.Equal(t, res.Operators["nordic"], aurora.OperatorID)

	status, err := svc.GetSensorConfigurationStatus(ctx, aurora.ID)
	require.NoError(t, err)
	assert.True(t, status.AllRequirementsMet)

	missing, err := svc.GetMissingSensors(ctx, res.Vessels["polaris"])
	require.NoError(t, err)
	assert.Len(t, missing, 3, "polaris lacks a second GPS, AIS and sonar")
}

func TestApplyStopsOnRejectedEntry(t *testing.T) {
	svc := setupService(t)
	f, err := Parse([]byte(`
operators:
  - key: a
    name: A
manufacturers:
  - key: m
    name: M
sensorClasses:
  - key: gps
    name: GPS
  - key: sonar
    name: Sonar
sensorTypes:
  - key: sn
    name: SN-1
    class: sonar
vesselTypes:
  - key: t
    name: Tug
    manufacturer: m
    requirements:
      - class: gps
vessels:
  - key: v
    name: V
    type: t
    operator: a
sensors:
  - name: Sonar
    type: sn
    vessel: v
`))
	require.NoError(t, err)

	res, err := NewLoader(svc, nil).Apply(context.Background(), f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrValidation))
	assert.Len(t, res.Vessels, 1)
	assert.Zero(t, res.Sensors)
}

func TestApplyRejectsZeroQuantity(t *testing.T) {
	svc := setupService(t)
	f, err := Parse([]byte(`
manufacturers:
  - key: m
    name: M
sensorClasses:
  - key: gps
    name: GPS
  - key: ais
    name: AIS
vesselTypes:
  - key: t
    name: Tug
    manufacturer: m
    requirements:
      - class: ais
      - class: gps
        quantity: 0
`))
	require.NoError(t, err)
	require.NotNil(t, f.VesselTypes[0].Requirements[1].Quantity)

	res, err := NewLoader(svc, nil).Apply(context.Background(), f)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrValidation)

	rows, err := svc.ListRequirements(context.Background(), res.VesselTypes["t"])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Quantity, "an omitted quantity still defaults to one")
}

func TestApplyUnknownKey(t *testing.T) {
	svc := setupService(t)
	f := &File{Fleets: []Fleet{{Key: "f", Name: "F", Operator: "ghost"}}}
	_, err := NewLoader(svc, nil).Apply(context.Background(), f)
	assert.ErrorContains(t, err, `unknown operator key "ghost"`)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("operators: [unterminated"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
