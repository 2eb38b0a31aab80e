package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManufacturerContactInfo(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.svc.db.Migrator().HasColumn(&Manufacturer{}, "contact_info"))

	m, err := f.svc.CreateManufacturer(f.ctx, &Manufacturer{
		Name:        "Furuno",
		ContactInfo: JSONMap{"email": "sales@furuno.example", "phone": "+47 32 28 50 00"},
	})
	require.NoError(t, err)

	got, err := f.svc.GetManufacturer(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales@furuno.example", got.ContactInfo["email"])

	got, err = f.svc.UpdateManufacturer(f.ctx, m.ID, ManufacturerPatch{ContactInfo: &JSONMap{"email": "info@furuno.example"}})
	require.NoError(t, err)
	got, err = f.svc.GetManufacturer(f.ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, JSONMap{"email": "info@furuno.example"}, got.ContactInfo)

	plain, err := f.svc.GetManufacturer(f.ctx, f.maker.ID)
	require.NoError(t, err)
	assert.Nil(t, plain.ContactInfo)
}

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, JSONMap{"a": float64(1)}, m)
	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
	assert.Error(t, m.Scan(42))
	assert.Equal(t, "text", JSONMap{}.GormDataType())
}
