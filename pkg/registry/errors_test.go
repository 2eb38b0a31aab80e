package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	plain := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"not found passes through", notFound(KindVessel, 7), ErrNotFound},
		{"validation passes through", invalid(RuleQuantity, "bad"), ErrValidation},
		{"dependency is a conflict", &DependencyError{Kind: KindFleet, ID: 1, Blockers: map[string]int64{KindVessel: 2}}, ErrConflict},
		{"foreign key becomes integrity", gorm.ErrForeignKeyViolated, ErrIntegrity},
		{"duplicate key becomes integrity", gorm.ErrDuplicatedKey, ErrIntegrity},
		{"check constraint becomes integrity", gorm.ErrCheckConstraintViolated, ErrIntegrity},
		{"sqlite check failure becomes integrity", errors.New("CHECK constraint failed: chk_requirement_quantity"), ErrIntegrity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("create vessel", tt.err), tt.is)
		})
	}

	wrapped := classify("list vessels", plain)
	assert.ErrorIs(t, wrapped, plain)
	assert.EqualError(t, wrapped, "list vessels: connection reset")
	for _, sentinel := range []error{ErrNotFound, ErrValidation, ErrConflict, ErrIntegrity} {
		assert.NotErrorIs(t, wrapped, sentinel)
	}

	assert.NoError(t, classify("noop", nil))
}

func TestIntegrityErrorUnwraps(t *testing.T) {
	err := classify("create sensor", gorm.ErrForeignKeyViolated)
	var ie *IntegrityError
	assert.True(t, errors.As(err, &ie))
	assert.Equal(t, "create sensor", ie.Op)
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
}

func TestDependencyErrorMessage(t *testing.T) {
	de := &DependencyError{Kind: KindSensorClass, ID: 4, Blockers: map[string]int64{
		KindSensorType:  2,
		KindRequirement: 3,
	}}
	assert.Equal(t, int64(5), de.Count())
	assert.Equal(t, "cannot delete sensor class 4: referenced by 3 sensor requirement(s) and 2 sensor type(s)", de.Error())

	reasoned := &DependencyError{Kind: KindRequirement, ID: "(1, 2)", Reason: "sensors installed"}
	assert.Equal(t, "cannot delete sensor requirement (1, 2): sensors installed", reasoned.Error())
	assert.Zero(t, reasoned.Count())
}

func TestNotFoundMessage(t *testing.T) {
	assert.EqualError(t, notFound(KindVesselType, 12), "vessel type 12 not found")
}
