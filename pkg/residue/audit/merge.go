package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/residue/pkg/residue/entities"
	"github.com/cognicore/residue/pkg/residue/similarity"
	"github.com/cognicore/residue/pkg/residue/store"
)

// Extract sends the residues through the extractor in batches.
func (a *Auditor) Extract(ctx context.Context, ext entities.Extractor, residues []entities.Residue) ([]entities.Candidate, error) {
	c := entities.Collector{
		Extractor: ext,
		BatchSize: a.Context.Settings.Extraction.BatchSize,
		Logger:    a.logger(),
	}
	return c.Run(ctx, residues)
}

// Merge combines statistical and inferred candidates, clusters their names
// and resolves the groups into a master document.
func (a *Auditor) Merge(ctx context.Context, statistical, inferred []entities.Candidate) (entities.Master, error) {
	if a.Context == nil {
		return entities.Master{}, fmt.Errorf("audit: nil context")
	}
	log := a.logger()
	th := a.Context.Settings.SimilarityThresholds()

	cands := entities.Merge(statistical, inferred)
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}

	clusterer := similarity.Clusterer{Thresholds: th, Workers: a.Context.Settings.Workers}
	res, err := clusterer.Cluster(ctx, names)
	if err != nil {
		return entities.Master{}, fmt.Errorf("cluster entities: %w", err)
	}

	now := a.now()
	master := entities.Resolve(cands, res, th)
	master.SnapshotID = a.newID(now)
	master.GenerationDate = now.UTC().Format("2006-01-02")
	log.Info("entities merged",
		zap.String("snapshot_id", master.SnapshotID),
		zap.Int("candidates", len(cands)),
		zap.Int("groups", len(master.Groups)),
		zap.Int("distinct", len(master.DistinctEntities)))

	if a.Store != nil {
		run := store.Run{ID: master.SnapshotID, StartedAt: now, Rows: len(cands)}
		if err := a.Store.BeginRun(ctx, run); err != nil {
			return master, fmt.Errorf("persist snapshot: %w", err)
		}
		if err := a.Store.PutGroups(ctx, master.SnapshotID, res.Groups); err != nil {
			return master, fmt.Errorf("persist groups: %w", err)
		}
	}
	return master, nil
}
