package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorConfigurationStatus(t *testing.T) {
	f := newFixture(t)
	v := f.vessel(t, "Aurora")

	status, err := f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, status.VesselID)
	assert.False(t, status.AllRequirementsMet)
	require.Len(t, status.Classes, 2)

	gps := status.Classes[0]
	assert.Equal(t, "GPS", gps.SensorClassName)
	assert.True(t, gps.Required)
	assert.Equal(t, 2, gps.DefinedQuantity)
	assert.Equal(t, 0, gps.InstalledQuantity)
	require.NotNil(t, gps.IsRequirementMet)
	assert.False(t, *gps.IsRequirementMet)

	radar := status.Classes[1]
	assert.Equal(t, "Radar", radar.SensorClassName)
	assert.False(t, radar.Required)
	assert.Nil(t, radar.IsRequirementMet, "optional classes carry no verdict")

	f.sensor(t, v.ID, f.gpsType.ID)
	status, err = f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, status.AllRequirementsMet)
	assert.Equal(t, 1, status.Classes[0].InstalledQuantity)

	f.sensor(t, v.ID, f.gpsType.ID)
	status, err = f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, status.AllRequirementsMet, "a missing optional radar does not matter")
	assert.True(t, *status.Classes[0].IsRequirementMet)
	assert.Equal(t, 0, status.Classes[1].InstalledQuantity)

	// Surplus units still count as met.
	f.sensor(t, v.ID, f.gpsType.ID)
	status, err = f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, status.AllRequirementsMet)
	assert.Equal(t, 3, status.Classes[0].InstalledQuantity)
}

func TestSensorConfigurationStatus_OrdersRequiredFirst(t *testing.T) {
	f := newFixture(t)
	alpha := f.sensorClass(t, "Anemometer")
	_, err := f.svc.AddRequirement(f.ctx, f.trawler.ID, RequirementInput{SensorClassID: alpha.ID, Required: ptr(false)})
	require.NoError(t, err)
	_, err = f.svc.AddRequirement(f.ctx, f.trawler.ID, RequirementInput{SensorClassID: f.sonar.ID})
	require.NoError(t, err)
	v := f.vessel(t, "Aurora")

	status, err := f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
	require.NoError(t, err)
	var names []string
	for _, c := range status.Classes {
		names = append(names, c.SensorClassName)
	}
	assert.Equal(t, []string{"GPS", "Sonar", "Anemometer", "Radar"}, names)
}

func TestSensorConfigurationStatus_NoRequirements(t *testing.T) {
	f := newFixture(t)
	bare := f.vesselType(t, "Dinghy")
	v, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Pip", VesselTypeID: bare.ID, OperatorID: f.operator.ID})
	require.NoError(t, err)

	status, err := f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, status.AllRequirementsMet)
	assert.Empty(t, status.Classes)

	missing, err := f.svc.GetMissingSensors(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSensorConfigurationStatus_UnknownVessel(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetSensorConfigurationStatus(f.ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetMissingSensors(f.ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingSensors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddRequirement(f.ctx, f.trawler.ID, RequirementInput{SensorClassID: f.sonar.ID})
	require.NoError(t, err)
	v := f.vessel(t, "Aurora")
	f.sensor(t, v.ID, f.gpsType.ID)
	f.sensor(t, v.ID, f.sonarType.ID)

	missing, err := f.svc.GetMissingSensors(f.ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, MissingSensor{
		SensorClassID:   f.gps.ID,
		SensorClassName: "GPS",
		Required:        2,
		Installed:       1,
		Missing:         1,
	}, missing[0])
}

func TestSensorConfigurationStatus_DoesNotWrite(t *testing.T) {
	f := newFixture(t)
	v := f.vessel(t, "Aurora")
	before, err := f.svc.GetVessel(f.ctx, v.ID)
	require.NoError(t, err)

	for range 3 {
		_, err := f.svc.GetSensorConfigurationStatus(f.ctx, v.ID)
		require.NoError(t, err)
	}

	after, err := f.svc.GetVessel(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, int64(2), f.count(t, &SensorRequirement{}, "vessel_type_id = ?", f.trawler.ID))
}
