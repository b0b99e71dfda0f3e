// Package storetest holds the behaviour every store.Store implementation
// must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/internalerr"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/similarity"
	"github.com/cognicore/residue/pkg/residue/store"
)

// Run exercises st against the store.Store contract.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := st.LatestRun(ctx)
	require.NoError(t, err)
	require.False(t, found)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := store.Run{ID: "01HZX0000000000000000000A1", StartedAt: started, Rows: 2, Settings: `{"workers":2}`}
	require.NoError(t, st.BeginRun(ctx, run))
	require.NoError(t, st.BeginRun(ctx, store.Run{ID: "01HZX0000000000000000000A0", StartedAt: started.Add(-time.Hour)}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ID, got.ID)
	require.True(t, run.StartedAt.Equal(got.StartedAt))
	require.Equal(t, run.Settings, got.Settings)

	latest, found, err := st.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, run.ID, latest.ID)

	_, err = st.GetRun(ctx, "missing")
	require.True(t, errors.Is(err, internalerr.ErrNotFound))

	var hits mask.Counts
	hits[match.ENV] = 1
	recs := []mask.Record{
		{ResourceID: "r1", ResourceName: "app-prod", MaskedName: "app-⟂ENV⟂", Residual: "app", Hits: hits, PctRemoved: 0.5, EmbeddedEnv: []string{}},
		{ResourceID: "r2", ResourceName: "prodsql", IsGlued: true, EmbeddedEnv: []string{"prod"}, EnvConflict: false},
	}
	require.NoError(t, st.PutRecords(ctx, run.ID, recs))
	require.NoError(t, st.PutRecords(ctx, run.ID, recs))
	gotRecs, err := st.Records(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, recs, gotRecs)

	err = st.PutRecords(ctx, "missing", recs)
	require.True(t, errors.Is(err, internalerr.ErrNotFound))

	entries := []protect.Entry{
		{Chunk: "billing", DisplayForm: "Billing", Length: 7, SupportNames: 3, InFrequencySet: true, SampleNames: []string{"a", "b"}},
	}
	require.NoError(t, st.PutProtectSet(ctx, run.ID, store.TableFrequency, entries))
	gotEntries, err := st.ProtectSet(ctx, run.ID, store.TableFrequency)
	require.NoError(t, err)
	require.Equal(t, entries, gotEntries)
	empty, err := st.ProtectSet(ctx, run.ID, store.TableCost)
	require.NoError(t, err)
	require.Empty(t, empty)
	err = st.PutProtectSet(ctx, run.ID, "bogus", entries)
	require.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	fail := 9
	results := []glued.Result{
		{ResourceID: "r2", Name: "prodsqlbackup", FailOffset: &fail, Coverage: []glued.Segment{{Tag: "ENV", Start: 0, End: 4}}},
		{ResourceID: "r3", Name: "prodsql", Explained: true, Masked: "⟂ENV⟂⟂TECH⟂"},
	}
	require.NoError(t, st.PutGluedResults(ctx, run.ID, results))
	gotResults, err := st.GluedResults(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, results, gotResults)

	groups := []similarity.Group{
		{Canonical: "Payroll", Members: []similarity.Member{{Name: "payroll svc", Similarity: 0.85, LinkType: similarity.Related}}},
	}
	require.NoError(t, st.PutGroups(ctx, run.ID, groups))
	gotGroups, err := st.Groups(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, groups, gotGroups)
}
