package registry_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/passssat/fleet-registry/pkg/registry"
)

var _ = Describe("Fleet registry", func() {
	var (
		ctx      context.Context
		svc      *registry.Service
		operator *registry.Operator
		fleet    *registry.Fleet
		maker    *registry.Manufacturer
		trawler  *registry.VesselType
		gps      *registry.SensorClass
		sonar    *registry.SensorClass
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = openRegistry()

		var err error
		operator, err = svc.CreateOperator(ctx, &registry.Operator{Name: "Nordic Marine"})
		Expect(err).NotTo(HaveOccurred())
		fleet, err = svc.CreateFleet(ctx, &registry.Fleet{Name: "North Sea", OperatorID: operator.ID})
		Expect(err).NotTo(HaveOccurred())
		maker, err = svc.CreateManufacturer(ctx, &registry.Manufacturer{Name: "Kongsberg"})
		Expect(err).NotTo(HaveOccurred())
		trawler, err = svc.CreateVesselType(ctx, &registry.VesselType{Name: "Trawler", ManufacturerID: maker.ID})
		Expect(err).NotTo(HaveOccurred())
		gps, err = svc.CreateSensorClass(ctx, &registry.SensorClass{Name: "GPS"})
		Expect(err).NotTo(HaveOccurred())
		sonar, err = svc.CreateSensorClass(ctx, &registry.SensorClass{Name: "Sonar"})
		Expect(err).NotTo(HaveOccurred())
	})

	Context("when a vessel is assigned to a fleet", func() {
		It("keeps the fleet's operator and refuses a different one", func() {
			Expect(operator.ID).To(BeEquivalentTo(1))
			Expect(fleet.ID).To(BeEquivalentTo(1))

			v, err := svc.CreateVessel(ctx, &registry.Vessel{
				Name: "V1", VesselTypeID: trawler.ID, OperatorID: operator.ID, FleetID: &fleet.ID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(v.OperatorID).To(Equal(operator.ID))

			requested := uint(2)
			_, err = svc.UpdateVessel(ctx, v.ID, registry.VesselPatch{OperatorID: &requested})
			Expect(err).To(MatchError(registry.ErrValidation))
			Expect(err.Error()).To(ContainSubstring("fleet 1 belongs to operator 1, requested operator 2"))

			stored, err := svc.GetVessel(ctx, v.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.OperatorID).To(Equal(operator.ID))
		})

		It("follows the fleet when the fleet changes hands", func() {
			v, err := svc.CreateVessel(ctx, &registry.Vessel{Name: "V1", VesselTypeID: trawler.ID, FleetID: &fleet.ID})
			Expect(err).NotTo(HaveOccurred())
			buyer, err := svc.CreateOperator(ctx, &registry.Operator{Name: "Baltic Shipping"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.UpdateFleet(ctx, fleet.ID, registry.FleetPatch{OperatorID: &buyer.ID})
			Expect(err).NotTo(HaveOccurred())

			stored, err := svc.GetVessel(ctx, v.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.OperatorID).To(Equal(buyer.ID))
		})
	})

	Context("with a vessel type that requires two GPS units", func() {
		var vessel *registry.Vessel
		var gpsType, sonarType *registry.SensorType

		BeforeEach(func() {
			_, err := svc.AddRequirement(ctx, trawler.ID, registry.RequirementInput{SensorClassID: gps.ID, Quantity: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
			gpsType, err = svc.CreateSensorType(ctx, &registry.SensorType{Name: "GPS-200", SensorClassID: gps.ID})
			Expect(err).NotTo(HaveOccurred())
			sonarType, err = svc.CreateSensorType(ctx, &registry.SensorType{Name: "SN-1", SensorClassID: sonar.ID})
			Expect(err).NotTo(HaveOccurred())
			vessel, err = svc.CreateVessel(ctx, &registry.Vessel{Name: "Aurora", VesselTypeID: trawler.ID, FleetID: &fleet.ID})
			Expect(err).NotTo(HaveOccurred())
		})

		install := func(typeID uint) (*registry.Sensor, error) {
			return svc.CreateSensor(ctx, &registry.Sensor{Name: "unit", VesselID: vessel.ID, SensorTypeID: typeID})
		}

		It("accepts listed classes and rejects the rest", func() {
			_, err := install(gpsType.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = install(sonarType.ID)
			Expect(err).To(MatchError(registry.ErrValidation))
		})

		It("reports the configuration complete only once both units are installed", func() {
			status, err := svc.GetSensorConfigurationStatus(ctx, vessel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.AllRequirementsMet).To(BeFalse())

			_, err = install(gpsType.ID)
			Expect(err).NotTo(HaveOccurred())
			status, err = svc.GetSensorConfigurationStatus(ctx, vessel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Classes).To(HaveLen(1))
			Expect(*status.Classes[0].IsRequirementMet).To(BeFalse())

			_, err = install(gpsType.ID)
			Expect(err).NotTo(HaveOccurred())
			status, err = svc.GetSensorConfigurationStatus(ctx, vessel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.AllRequirementsMet).To(BeTrue())
			Expect(*status.Classes[0].IsRequirementMet).To(BeTrue())
		})

		It("never lets an optional class decide the verdict", func() {
			_, err := svc.AddRequirement(ctx, trawler.ID, registry.RequirementInput{SensorClassID: sonar.ID, Required: new(bool)})
			Expect(err).NotTo(HaveOccurred())
			for range 2 {
				_, err = install(gpsType.ID)
				Expect(err).NotTo(HaveOccurred())
			}

			status, err := svc.GetSensorConfigurationStatus(ctx, vessel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.AllRequirementsMet).To(BeTrue())
			Expect(status.Classes).To(ContainElement(SatisfyAll(
				HaveField("SensorClassName", "Sonar"),
				HaveField("IsRequirementMet", BeNil()),
			)))
		})

		It("refuses a second registry row for the same class", func() {
			_, err := svc.AddRequirement(ctx, trawler.ID, registry.RequirementInput{SensorClassID: gps.ID})
			Expect(err).To(MatchError(registry.ErrValidation))
		})

		It("removes sensors and their readings together with the vessel", func() {
			var sensorIDs []uint
			for range 3 {
				sn, err := install(gpsType.ID)
				Expect(err).NotTo(HaveOccurred())
				_, err = svc.CreateSensorReading(ctx, &registry.SensorReading{SensorID: sn.ID, Value: 1})
				Expect(err).NotTo(HaveOccurred())
				sensorIDs = append(sensorIDs, sn.ID)
			}

			Expect(svc.DeleteVessel(ctx, vessel.ID)).To(Succeed())

			for _, id := range sensorIDs {
				_, err := svc.GetSensor(ctx, id)
				Expect(err).To(MatchError(registry.ErrNotFound))
			}
			var readings int64
			Expect(svc.DB().Model(&registry.SensorReading{}).Count(&readings).Error).To(Succeed())
			Expect(readings).To(BeZero())
		})
	})

	Context("when deleting a manufacturer", func() {
		It("reports every vessel type that still refers to it", func() {
			var typeIDs []uint
			typeIDs = append(typeIDs, trawler.ID)
			for _, name := range []string{"Survey", "Feeder"} {
				vt, err := svc.CreateVesselType(ctx, &registry.VesselType{Name: name, ManufacturerID: maker.ID})
				Expect(err).NotTo(HaveOccurred())
				typeIDs = append(typeIDs, vt.ID)
			}

			err := svc.DeleteManufacturer(ctx, maker.ID)
			Expect(err).To(MatchError(registry.ErrConflict))
			var de *registry.DependencyError
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.Count()).To(BeEquivalentTo(3))

			for _, id := range typeIDs {
				Expect(svc.DeleteVesselType(ctx, id)).To(Succeed())
			}
			Expect(svc.DeleteManufacturer(ctx, maker.ID)).To(Succeed())
		})
	})
})
