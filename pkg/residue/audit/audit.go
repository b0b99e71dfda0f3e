// Package audit wires the masking, protect-set, coverage and roll-up phases
// into a single run over a billing corpus.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/residue/pkg/residue/config"
	"github.com/cognicore/residue/pkg/residue/corpus"
	"github.com/cognicore/residue/pkg/residue/entities"
	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
	"github.com/cognicore/residue/pkg/residue/parallel"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/rollup"
	"github.com/cognicore/residue/pkg/residue/store"
)

// Report is everything one audit run produced.
type Report struct {
	RunID     string
	StartedAt time.Time

	Records   []mask.Record
	Frequency []protect.Entry
	Cost      []protect.Entry
	Combined  []protect.Entry
	Glued     []glued.Result
	Rollups   []rollup.Summary

	Suggestions []entities.Candidate
	Residues    []entities.Residue
}

// Auditor runs audits against a fixed context.
type Auditor struct {
	Context *Context
	// Store is optional; when set every phase output is persisted.
	Store  store.Store
	Logger *zap.Logger
	Now    func() time.Time
}

func (a *Auditor) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *Auditor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Auditor) newID(t time.Time) string {
	return a.Context.ids.New(t)
}

// Run audits the rows. On cancellation it returns the records produced so
// far together with the context error.
func (a *Auditor) Run(ctx context.Context, rows []corpus.Row) (*Report, error) {
	if a.Context == nil {
		return nil, errors.New("audit: nil context")
	}
	log := a.logger()
	settings := a.Context.Settings
	started := a.now()
	rep := &Report{RunID: a.newID(started), StartedAt: started}
	log = log.With(zap.String("run_id", rep.RunID))
	log.Info("audit started", zap.Int("rows", len(rows)), zap.Int("workers", settings.Workers))

	records, err := a.maskRows(ctx, rows)
	rep.Records = records
	if err != nil {
		log.Warn("masking interrupted", zap.Int("produced", len(records)), zap.Error(err))
		return rep, err
	}
	failed := 0
	for _, r := range records {
		if r.Failed {
			failed++
		}
	}
	log.Info("masking complete", zap.Int("records", len(records)), zap.Int("failed", failed))

	valid := make([]corpus.Row, 0, len(rows))
	for i, r := range records {
		if !r.Failed {
			valid = append(valid, rows[i])
		}
	}
	tables := protect.Build(valid, a.Context.Catalog, settings.ProtectOptions())
	rep.Frequency, rep.Cost, rep.Combined = tables.Frequency, tables.Cost, tables.Combined
	source := tables.Frequency
	if settings.ProtectSet.CoverageSource == config.CoverageCombined {
		source = tables.Combined
	}
	frozen := protect.Freeze(source)
	log.Info("protect set frozen",
		zap.Int("frequency", len(tables.Frequency)),
		zap.Int("cost", len(tables.Cost)),
		zap.Int("combined", len(tables.Combined)),
		zap.String("coverage_source", settings.ProtectSet.CoverageSource),
		zap.Float64("corpus_cost", tables.CorpusCost))

	results, err := a.sweepGlued(ctx, records, frozen)
	rep.Glued = results
	if err != nil {
		log.Warn("coverage sweep interrupted", zap.Int("produced", len(results)), zap.Error(err))
		return rep, err
	}
	explained := 0
	coverage := make(map[string]glued.Result, len(results))
	for _, r := range results {
		coverage[r.ResourceID] = r
		if r.Explained {
			explained++
		}
	}
	log.Info("coverage sweep complete", zap.Int("glued", len(results)), zap.Int("explained", explained))

	rb := rollup.Builder{Matchers: a.Context.Matchers, TopTokens: settings.Rollup.TopTokens}
	rep.Rollups = rb.Build(records, coverage)

	rep.Suggestions = entities.FromProtectSet(tables.Frequency, distinctNames(valid))
	rep.Residues = entities.SelectResidues(records, frozen, settings.Extraction.MinResidueLen)
	log.Info("suggestions ready", zap.Int("statistical", len(rep.Suggestions)), zap.Int("residues", len(rep.Residues)))

	if a.Store != nil {
		if err := a.persist(ctx, rep, len(rows)); err != nil {
			return rep, fmt.Errorf("persist run %s: %w", rep.RunID, err)
		}
	}
	return rep, nil
}

// maskRows runs phase one on the worker pool. A row that fails validation
// or faults gets a failed record in its slot.
func (a *Auditor) maskRows(ctx context.Context, rows []corpus.Row) ([]mask.Record, error) {
	engine := a.Context.Engine()
	slots, err := parallel.Run(ctx, len(rows), a.Context.Settings.Workers, func(_ context.Context, i int) (mask.Record, error) {
		if err := rows[i].Validate(); err != nil {
			return mask.Record{}, err
		}
		return engine.MaskRow(rows[i]), nil
	})
	records := make([]mask.Record, 0, len(rows))
	for i, s := range slots {
		if !s.Done {
			continue
		}
		if s.Err != nil {
			a.logger().Warn("row failed", zap.Int("row", i), zap.String("resource_id", rows[i].ResourceID), zap.Error(s.Err))
			records = append(records, failedRecord(rows[i], s.Err))
			continue
		}
		records = append(records, s.Value)
	}
	return records, err
}

func failedRecord(row corpus.Row, err error) mask.Record {
	return mask.Record{
		ResourceID:     row.ResourceID,
		ResourceName:   row.ResourceName,
		SubAccount:     row.SubAccount,
		ResourceGroup:  row.ResourceGroup,
		BillingAccount: row.BillingAccount,
		Cost:           row.Cost,
		Failed:         true,
		Error:          err.Error(),
	}
}

type coverageAnalyzer interface {
	Analyze(resourceID, name string) glued.Result
}

var newAnalyzer = func(set *protect.Set, matchers *match.Set, sweepUnprotected bool) coverageAnalyzer {
	return glued.NewAnalyzer(set, matchers, sweepUnprotected)
}

// sweepGlued checks every glued, non-failed record against the frozen set.
func (a *Auditor) sweepGlued(ctx context.Context, records []mask.Record, frozen *protect.Set) ([]glued.Result, error) {
	var targets []mask.Record
	for _, r := range records {
		if r.IsGlued && !r.Failed {
			targets = append(targets, r)
		}
	}
	analyzer := newAnalyzer(frozen, a.Context.Matchers, a.Context.Settings.Glued.SweepUnprotected)
	slots, err := parallel.Run(ctx, len(targets), a.Context.Settings.Workers, func(_ context.Context, i int) (glued.Result, error) {
		return analyzer.Analyze(targets[i].ResourceID, targets[i].ResourceName), nil
	})
	results := make([]glued.Result, 0, len(targets))
	for i, s := range slots {
		if !s.Done {
			continue
		}
		if s.Err != nil {
			a.logger().Warn("coverage failed", zap.String("resource_id", targets[i].ResourceID), zap.Error(s.Err))
			results = append(results, glued.Result{
				ResourceID: targets[i].ResourceID,
				Name:       targets[i].ResourceName,
				Failed:     true,
				Error:      s.Err.Error(),
			})
			continue
		}
		results = append(results, s.Value)
	}
	return results, err
}

func (a *Auditor) persist(ctx context.Context, rep *Report, rows int) error {
	settings, err := json.Marshal(a.Context.Settings)
	if err != nil {
		return err
	}
	run := store.Run{ID: rep.RunID, StartedAt: rep.StartedAt, Rows: rows, Settings: string(settings)}
	if err := a.Store.BeginRun(ctx, run); err != nil {
		return err
	}
	if err := a.Store.PutRecords(ctx, rep.RunID, rep.Records); err != nil {
		return err
	}
	for table, entries := range map[string][]protect.Entry{
		store.TableFrequency: rep.Frequency,
		store.TableCost:      rep.Cost,
		store.TableCombined:  rep.Combined,
	} {
		if err := a.Store.PutProtectSet(ctx, rep.RunID, table, entries); err != nil {
			return err
		}
	}
	return a.Store.PutGluedResults(ctx, rep.RunID, rep.Glued)
}

func distinctNames(rows []corpus.Row) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, r := range rows {
		if r.ResourceName != "" && !seen[r.ResourceName] {
			seen[r.ResourceName] = true
			out = append(out, r.ResourceName)
		}
	}
	sort.Strings(out)
	return out
}
