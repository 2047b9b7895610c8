package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/session"
)

// TestFullWorkflow exercises a complete session:
// databases → species → compute → history → fetch → snapshot → delete → fetch (not found)
func TestFullWorkflow(t *testing.T) {
	src, database := setupSources(t)
	src.Cache = session.NewCache()
	ctx := context.Background()

	// 1. Discover
	dbs, err := ListDatabases(src)
	require.NoError(t, err)
	require.Len(t, dbs.Items, 2)
	require.Equal(t, "Apatites", dbs.Items[0].Name)

	// 2. Species of the first database
	sp, err := Species(src, SpeciesInput{Database: dbs.Items[0].Index})
	require.NoError(t, err)
	require.Len(t, sp.Species, 4)
	require.Equal(t, 1, src.Cache.Len())

	// 3. An unbalanced composition is rejected and not recorded
	_, err = Compute(ctx, database, src, ComputeInput{
		Database: 1,
		Entries:  map[string]string{"Ca2+": "10", "PO4": "6"},
	})
	require.True(t, errors.Is(err, errors.ErrElectroneutrality), "got %v", err)

	// 4. Fluorapatite
	out, err := Compute(ctx, database, src, fluorapatiteInput())
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	require.Equal(t, int64(-12836), out.Rounded.DeltaGf)
	require.NotNil(t, out.Rounded.PKsp)
	require.Equal(t, int64(109), *out.Rounded.PKsp)

	// 5. History lists it
	hist, err := History(database, HistoryInput{})
	require.NoError(t, err)
	require.Len(t, hist.Items, 1)
	require.Equal(t, out.ID, hist.Items[0].ID)
	require.Equal(t, "Ca2+:10 PO4:6 F-:2", hist.Items[0].Composition)

	// 6. Fetch keeps full precision
	got, err := Fetch(database, src.Config, FetchInput{ID: out.ID})
	require.NoError(t, err)
	require.InDelta(t, out.Result.DeltaS, got.Result.DeltaS, 1e-9)
	require.Equal(t, 2.0, got.Coefficients["F-"])

	// 7. Snapshot export
	snap, err := Snapshot(ctx, src, SnapshotInput{Database: 1})
	require.NoError(t, err)
	require.Equal(t, 4, snap.Count)

	// 8. Delete
	_, err = Delete(ctx, database, DeleteInput{ID: out.ID})
	require.NoError(t, err)

	// 9. Gone
	_, err = Fetch(database, src.Config, FetchInput{ID: out.ID})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
