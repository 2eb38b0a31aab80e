package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVessel_AdoptsFleetOperator(t *testing.T) {
	f := newFixture(t)

	v := f.vessel(t, "Aurora")
	require.NotNil(t, v.FleetID)
	assert.Equal(t, f.fleet.ID, *v.FleetID)
	assert.Equal(t, f.operator.ID, v.OperatorID)
	assert.Equal(t, VesselStatusActive, v.Status)

	// Naming the fleet's own operator is accepted.
	v2, err := f.svc.CreateVessel(f.ctx, &Vessel{
		Name: "Borealis", VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID, OperatorID: f.operator.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.operator.ID, v2.OperatorID)

	stored, err := f.svc.GetVessel(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, f.operator.ID, stored.OperatorID)
}

func TestCreateVessel_RejectsConflictingOperator(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateVessel(f.ctx, &Vessel{
		Name: "Aurora", VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID, OperatorID: f.otherOperator.ID,
	})
	ve := requireRule(t, err, RuleFleetOperator)
	assert.Contains(t, ve.Message, fmt.Sprintf("fleet %d belongs to operator %d, requested operator %d",
		f.fleet.ID, f.operator.ID, f.otherOperator.ID))
	assert.Zero(t, f.count(t, &Vessel{}, "1 = 1"))
}

func TestCreateVessel_Ownership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Drifter", VesselTypeID: f.trawler.ID})
	requireRule(t, err, RulePayload)

	missing := uint(999)
	_, err = f.svc.CreateVessel(f.ctx, &Vessel{Name: "Ghost", VesselTypeID: f.trawler.ID, FleetID: &missing})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.CreateVessel(f.ctx, &Vessel{Name: "Ghost", VesselTypeID: 999, OperatorID: f.operator.ID})
	require.ErrorIs(t, err, ErrNotFound)

	// Without a fleet any existing operator will do.
	v, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Loner", VesselTypeID: f.trawler.ID, OperatorID: f.otherOperator.ID})
	require.NoError(t, err)
	assert.Nil(t, v.FleetID)
	assert.Equal(t, f.otherOperator.ID, v.OperatorID)
}

func TestUpdateVessel_FleetOperatorRule(t *testing.T) {
	f := newFixture(t)

	t.Run("joining a fleet adopts its operator", func(t *testing.T) {
		v, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Loner", VesselTypeID: f.trawler.ID, OperatorID: f.otherOperator.ID})
		require.NoError(t, err)

		v, err = f.svc.UpdateVessel(f.ctx, v.ID, VesselPatch{FleetID: SetID(f.fleet.ID)})
		require.NoError(t, err)
		assert.Equal(t, f.fleet.ID, *v.FleetID)
		assert.Equal(t, f.operator.ID, v.OperatorID)
	})

	t.Run("operator change inside a fleet is rejected", func(t *testing.T) {
		v := f.vessel(t, "Aurora")
		_, err := f.svc.UpdateVessel(f.ctx, v.ID, VesselPatch{OperatorID: &f.otherOperator.ID})
		requireRule(t, err, RuleFleetOperator)

		stored, err := f.svc.GetVessel(f.ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, f.operator.ID, stored.OperatorID)
	})

	t.Run("joining a fleet with a different explicit operator is rejected", func(t *testing.T) {
		v, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Stray", VesselTypeID: f.trawler.ID, OperatorID: f.otherOperator.ID})
		require.NoError(t, err)
		_, err = f.svc.UpdateVessel(f.ctx, v.ID, VesselPatch{FleetID: SetID(f.fleet.ID), OperatorID: &f.otherOperator.ID})
		requireRule(t, err, RuleFleetOperator)
	})

	t.Run("leaving a fleet keeps the operator and frees it", func(t *testing.T) {
		v := f.vessel(t, "Polaris")
		v, err := f.svc.UpdateVessel(f.ctx, v.ID, VesselPatch{FleetID: ClearID()})
		require.NoError(t, err)
		assert.Nil(t, v.FleetID)
		assert.Equal(t, f.operator.ID, v.OperatorID)

		v, err = f.svc.UpdateVessel(f.ctx, v.ID, VesselPatch{OperatorID: &f.otherOperator.ID})
		require.NoError(t, err)
		assert.Equal(t, f.otherOperator.ID, v.OperatorID)
	})

	t.Run("unknown vessel", func(t *testing.T) {
		_, err := f.svc.UpdateVessel(f.ctx, 999, VesselPatch{Name: ptr("x")})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateFleet_PropagatesOperator(t *testing.T) {
	f := newFixture(t)
	a := f.vessel(t, "Aurora")
	b := f.vessel(t, "Borealis")
	loner, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Loner", VesselTypeID: f.trawler.ID, OperatorID: f.operator.ID})
	require.NoError(t, err)

	fleet, err := f.svc.UpdateFleet(f.ctx, f.fleet.ID, FleetPatch{OperatorID: &f.otherOperator.ID})
	require.NoError(t, err)
	assert.Equal(t, f.otherOperator.ID, fleet.OperatorID)

	for _, id := range []uint{a.ID, b.ID} {
		v, err := f.svc.GetVessel(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, f.otherOperator.ID, v.OperatorID, "vessel %d", id)
	}
	v, err := f.svc.GetVessel(f.ctx, loner.ID)
	require.NoError(t, err)
	assert.Equal(t, f.operator.ID, v.OperatorID, "vessels outside the fleet keep their operator")

	missing := uint(999)
	_, err = f.svc.UpdateFleet(f.ctx, f.fleet.ID, FleetPatch{OperatorID: &missing})
	require.ErrorIs(t, err, ErrNotFound)
	v, err = f.svc.GetVessel(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, f.otherOperator.ID, v.OperatorID)
}

func TestCreateSensor_Compatibility(t *testing.T) {
	f := newFixture(t)
	v := f.vessel(t, "Aurora")

	f.sensor(t, v.ID, f.gpsType.ID)
	f.sensor(t, v.ID, f.radarType.ID) // optional classes are allowed too

	_, err := f.svc.CreateSensor(f.ctx, &Sensor{Name: "sonar", VesselID: v.ID, SensorTypeID: f.sonarType.ID})
	ve := requireRule(t, err, RuleSensorCompatible)
	assert.Contains(t, ve.Message, `"Sonar"`)
	assert.Contains(t, ve.Message, `"Trawler"`)
	assert.Equal(t, int64(2), f.count(t, &Sensor{}, "vessel_id = ?", v.ID))

	_, err = f.svc.CreateSensor(f.ctx, &Sensor{Name: "gps", VesselID: 999, SensorTypeID: f.gpsType.ID})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.CreateSensor(f.ctx, &Sensor{Name: "gps", VesselID: v.ID, SensorTypeID: 999})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSensor_RechecksCompatibility(t *testing.T) {
	f := newFixture(t)
	survey := f.vesselType(t, "Survey", f.sonar.ID)
	trawler := f.vessel(t, "Aurora")
	surveyor, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Explorer", VesselTypeID: survey.ID, FleetID: &f.fleet.ID})
	require.NoError(t, err)

	sn := f.sensor(t, trawler.ID, f.gpsType.ID)

	_, err = f.svc.UpdateSensor(f.ctx, sn.ID, SensorPatch{VesselID: &surveyor.ID})
	requireRule(t, err, RuleSensorCompatible)

	_, err = f.svc.UpdateSensor(f.ctx, sn.ID, SensorPatch{SensorTypeID: &f.sonarType.ID})
	requireRule(t, err, RuleSensorCompatible)

	// Both together produce a compatible pair.
	moved, err := f.svc.UpdateSensor(f.ctx, sn.ID, SensorPatch{VesselID: &surveyor.ID, SensorTypeID: &f.sonarType.ID})
	require.NoError(t, err)
	assert.Equal(t, surveyor.ID, moved.VesselID)

	renamed, err := f.svc.UpdateSensor(f.ctx, sn.ID, SensorPatch{Name: ptr("bow sonar")})
	require.NoError(t, err)
	assert.Equal(t, "bow sonar", renamed.Name)
}

func TestUpdateVessel_TypeChangeRechecksSensors(t *testing.T) {
	f := newFixture(t)
	survey := f.vesselType(t, "Survey", f.sonar.ID)
	v := f.vessel(t, "Aurora")
	f.sensor(t, v.ID, f.gpsType.ID)

	_, err := f.svc.UpdateVessel(f.ctx, v.ID, VesselPatch{VesselTypeID: &survey.ID})
	ve := requireRule(t, err, RuleSensorCompatible)
	assert.Contains(t, ve.Message, `"GPS"`)

	stored, err := f.svc.GetVessel(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, f.trawler.ID, stored.VesselTypeID)

	empty := f.vessel(t, "Borealis")
	updated, err := f.svc.UpdateVessel(f.ctx, empty.ID, VesselPatch{VesselTypeID: &survey.ID})
	require.NoError(t, err)
	assert.Equal(t, survey.ID, updated.VesselTypeID)
}

func TestUpdateSensorType_ReclassRechecksInstalledSensors(t *testing.T) {
	f := newFixture(t)
	v := f.vessel(t, "Aurora")
	f.sensor(t, v.ID, f.gpsType.ID)

	_, err := f.svc.UpdateSensorType(f.ctx, f.gpsType.ID, SensorTypePatch{SensorClassID: &f.sonar.ID})
	requireRule(t, err, RuleSensorCompatible)

	// Radar is listed for the trawler, so the move keeps the sensor legal.
	st, err := f.svc.UpdateSensorType(f.ctx, f.gpsType.ID, SensorTypePatch{SensorClassID: &f.radar.ID})
	require.NoError(t, err)
	assert.Equal(t, f.radar.ID, st.SensorClassID)

	// Nothing installed: any class is fine.
	st, err = f.svc.UpdateSensorType(f.ctx, f.sonarType.ID, SensorTypePatch{SensorClassID: &f.gps.ID})
	require.NoError(t, err)
	assert.Equal(t, f.gps.ID, st.SensorClassID)

	missing := uint(999)
	_, err = f.svc.UpdateSensorType(f.ctx, f.sonarType.ID, SensorTypePatch{SensorClassID: &missing})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVesselIdentifiersAreUnique(t *testing.T) {
	f := newFixture(t)
	imo := "IMO9321483"

	_, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: "Aurora", VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID, IMONumber: &imo})
	require.NoError(t, err)

	_, err = f.svc.CreateVessel(f.ctx, &Vessel{Name: "Copy", VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID, IMONumber: &imo})
	ve := requireRule(t, err, RuleUniqueIdentifier)
	assert.Contains(t, ve.Message, "IMO number")

	// Empty identifiers are stored as absent and never collide.
	blank := ""
	for _, name := range []string{"One", "Two"} {
		v, err := f.svc.CreateVessel(f.ctx, &Vessel{Name: name, VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID, CallSign: &blank})
		require.NoError(t, err)
		assert.Nil(t, v.CallSign)
	}

	other := f.vessel(t, "Other")
	_, err = f.svc.UpdateVessel(f.ctx, other.ID, VesselPatch{IMONumber: &imo})
	requireRule(t, err, RuleUniqueIdentifier)
}

func TestSensorClassNamesAreUnique(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSensorClass(f.ctx, &SensorClass{Name: "GPS"})
	requireRule(t, err, RuleUniqueName)

	_, err = f.svc.UpdateSensorClass(f.ctx, f.radar.ID, SensorClassPatch{Name: ptr("Sonar")})
	requireRule(t, err, RuleUniqueName)

	c, err := f.svc.UpdateSensorClass(f.ctx, f.radar.ID, SensorClassPatch{Description: ptr("surface search")})
	require.NoError(t, err)
	assert.Equal(t, "Radar", c.Name)
}

func TestPayloadValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOperator(f.ctx, &Operator{})
	ve := requireRule(t, err, RulePayload)
	assert.Contains(t, ve.Message, "Name")

	_, err = f.svc.CreateOperator(f.ctx, &Operator{Name: "x", Email: "not-an-email"})
	requireRule(t, err, RulePayload)

	_, err = f.svc.CreateVessel(f.ctx, &Vessel{
		Name: "Aurora", VesselTypeID: f.trawler.ID, FleetID: &f.fleet.ID, Status: VesselStatus("sunk"),
	})
	requireRule(t, err, RulePayload)
}
