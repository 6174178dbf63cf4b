package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/zone"
)

func squareDef(id string, size float64, meta zone.Metadata) zone.Definition {
	return zone.Definition{
		ID:       id,
		Points:   []geom.Point{{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size}},
		Metadata: meta,
	}
}

func TestZoneRepositorySaveLoad(t *testing.T) {
	repo := NewZoneRepository(setupTestDB(t))
	ctx := context.Background()

	changed, err := repo.Save(ctx, squareDef("b", 10, zone.Metadata{"category": "mission", "priority": 3}))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Save(ctx, squareDef("a", 5, nil))
	require.NoError(t, err)
	assert.True(t, changed)

	defs, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "a", defs[0].ID)
	assert.Nil(t, defs[0].Metadata)
	assert.Equal(t, "b", defs[1].ID)
	assert.Equal(t, "mission", defs[1].Metadata["category"])
	assert.Equal(t, 3.0, defs[1].Metadata["priority"], "jsonb numbers decode as float64")
	assert.Equal(t, squareDef("b", 10, nil).Points, defs[1].Points)

	// После round-trip отпечаток совпадает, значит Sync не тронет зону.
	assert.Equal(t, squareDef("b", 10, zone.Metadata{"category": "mission", "priority": 3}).Fingerprint(), defs[1].Fingerprint())
}

func TestZoneRepositorySaveUnchanged(t *testing.T) {
	repo := NewZoneRepository(setupTestDB(t))
	ctx := context.Background()

	d := squareDef("z", 10, zone.Metadata{"k": "v"})
	_, err := repo.Save(ctx, d)
	require.NoError(t, err)

	changed, err := repo.Save(ctx, d)
	require.NoError(t, err)
	assert.False(t, changed, "same fingerprint is not rewritten")

	changed, err = repo.Save(ctx, squareDef("z", 20, zone.Metadata{"k": "v"}))
	require.NoError(t, err)
	assert.True(t, changed)

	got, ok, err := repo.Get(ctx, "z")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20.0, got.Points[1].X)
}

func TestZoneRepositorySaveAll(t *testing.T) {
	repo := NewZoneRepository(setupTestDB(t))
	ctx := context.Background()

	defs := []zone.Definition{squareDef("a", 1, nil), squareDef("b", 2, nil), squareDef("c", 3, nil)}
	n, err := repo.SaveAll(ctx, defs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	defs[1] = squareDef("b", 4, nil)
	n, err = repo.SaveAll(ctx, defs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestZoneRepositoryDelete(t *testing.T) {
	repo := NewZoneRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Save(ctx, squareDef("z", 10, nil))
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, "z")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(ctx, "z")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := repo.Get(ctx, "z")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestZoneRepositoryFeedsRegistry(t *testing.T) {
	repo := NewZoneRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.SaveAll(ctx, []zone.Definition{squareDef("a", 10, nil), squareDef("b", 20, zone.Metadata{"x": 1})})
	require.NoError(t, err)

	defs, err := repo.LoadAll(ctx)
	require.NoError(t, err)

	reg := zone.NewRegistry(zone.NewIndex(nil, 0, nil), zone.RegistryOptions{})
	res, err := reg.Sync(defs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	res, err = reg.Sync(defs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Unchanged)
}
