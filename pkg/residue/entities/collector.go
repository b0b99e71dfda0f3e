package entities

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
)

// Extractor asks an external model which entities a batch of chunks names.
type Extractor interface {
	Extract(ctx context.Context, chunks []string) (Outcome, error)
}

// Collector batches residues through an Extractor and aggregates the
// reported entities.
type Collector struct {
	Extractor Extractor
	BatchSize int
	Logger    *zap.Logger
}

// Run extracts entities from every residue. A batch that errors or comes
// back malformed contributes nothing; only cancellation stops the run.
func (c *Collector) Run(ctx context.Context, residues []Residue) ([]Candidate, error) {
	if c.Extractor == nil {
		return nil, errors.New("entities collector: nil extractor")
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	size := c.BatchSize
	if size <= 0 {
		size = 20
	}

	sources := make(map[string][]string, len(residues))
	for _, r := range residues {
		sources[r.Text] = r.Names
	}

	byName := make(map[string]*Candidate)
	for start := 0; start < len(residues); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(residues))
		batch := make([]string, 0, end-start)
		for _, r := range residues[start:end] {
			batch = append(batch, r.Text)
		}

		out, err := c.Extractor.Extract(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("entity extraction failed", zap.Int("batch_start", start), zap.Int("batch_size", len(batch)), zap.Error(err))
			continue
		}
		switch o := out.(type) {
		case Malformed:
			log.Warn("malformed extraction response", zap.Int("batch_start", start), zap.String("reason", o.Reason))
		case Parsed:
			for _, res := range o.Results {
				found := sources[res.Chunk]
				if len(found) == 0 {
					found = []string{res.Chunk}
				}
				for _, e := range res.Entities {
					cand, ok := byName[e.Name]
					if !ok {
						cand = &Candidate{Name: e.Name}
						byName[e.Name] = cand
					}
					cand.Abbreviations = union(cand.Abbreviations, e.Abbreviations)
					cand.FoundInChunks = union(cand.FoundInChunks, found)
				}
			}
		}
	}

	out := make([]Candidate, 0, len(byName))
	for _, cand := range byName {
		out = append(out, *cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	log.Info("entity extraction complete", zap.Int("residues", len(residues)), zap.Int("entities", len(out)))
	return out, nil
}
