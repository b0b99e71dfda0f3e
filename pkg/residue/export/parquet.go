package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
)

type parquetColumn struct {
	name  string
	ptype string
	value func(r mask.Record) any
}

func recordColumns() []parquetColumn {
	cols := []parquetColumn{
		{"resource_id", "BYTE_ARRAY", func(r mask.Record) any { return r.ResourceID }},
		{"resource_name", "BYTE_ARRAY", func(r mask.Record) any { return r.ResourceName }},
		{"sub_account", "BYTE_ARRAY", func(r mask.Record) any { return r.SubAccount }},
		{"resource_group", "BYTE_ARRAY", func(r mask.Record) any { return r.ResourceGroup }},
		{"billing_account", "BYTE_ARRAY", func(r mask.Record) any { return r.BillingAccount }},
		{"cost", "DOUBLE", func(r mask.Record) any { return r.Cost }},
		{"masked_name", "BYTE_ARRAY", func(r mask.Record) any { return r.MaskedName }},
		{"residual", "BYTE_ARRAY", func(r mask.Record) any { return r.Residual }},
	}
	for _, c := range match.Classes {
		c := c
		cols = append(cols, parquetColumn{"hits_" + strings.ToLower(c.String()), "INT64", func(r mask.Record) any { return r.Hits.Get(c) }})
	}
	return append(cols,
		parquetColumn{"orig_len", "INT64", func(r mask.Record) any { return r.OrigLen }},
		parquetColumn{"residual_len", "INT64", func(r mask.Record) any { return r.ResidualLen }},
		parquetColumn{"removed_chars", "INT64", func(r mask.Record) any { return r.RemovedChars }},
		parquetColumn{"pct_removed", "DOUBLE", func(r mask.Record) any { return r.PctRemoved }},
		parquetColumn{"entropy_orig", "DOUBLE", func(r mask.Record) any { return r.EntropyOrig }},
		parquetColumn{"entropy_resid", "DOUBLE", func(r mask.Record) any { return r.EntropyResid }},
		parquetColumn{"overstrip", "BOOLEAN", func(r mask.Record) any { return r.Overstrip }},
		parquetColumn{"acronym_only_residual", "BOOLEAN", func(r mask.Record) any { return r.AcronymOnlyResidual }},
		parquetColumn{"heavy_scaffold", "BOOLEAN", func(r mask.Record) any { return r.HeavyScaffold }},
		parquetColumn{"is_glued", "BOOLEAN", func(r mask.Record) any { return r.IsGlued }},
		parquetColumn{"env_conflict", "BOOLEAN", func(r mask.Record) any { return r.EnvConflict }},
		parquetColumn{"embedded_env", "BYTE_ARRAY", func(r mask.Record) any { return strings.Join(r.EmbeddedEnv, ListSep) }},
		parquetColumn{"embedded_tech", "BYTE_ARRAY", func(r mask.Record) any { return strings.Join(r.EmbeddedTech, ListSep) }},
		parquetColumn{"failed", "BOOLEAN", func(r mask.Record) any { return r.Failed }},
	)
}

func buildParquetSchema(cols []parquetColumn) string {
	fields := make([]map[string]string, 0, len(cols))
	for _, c := range cols {
		tag := fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", c.name, c.ptype)
		if c.ptype == "BYTE_ARRAY" {
			tag = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c.name)
		}
		fields = append(fields, map[string]string{"Tag": tag})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// WriteMaskedParquet writes the masked records as a Snappy-compressed
// Parquet file.
func WriteMaskedParquet(w io.Writer, recs []mask.Record) error {
	cols := recordColumns()
	pfw := writerfile.NewWriterFile(w)
	pw, err := writer.NewJSONWriter(buildParquetSchema(cols), pfw, 4)
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	abort := func() {
		_ = pw.WriteStop()
		_ = pfw.Close()
	}

	for _, r := range recs {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c.name] = c.value(r)
		}
		line, err := json.Marshal(row)
		if err != nil {
			abort()
			return fmt.Errorf("parquet encode %s: %w", r.ResourceID, err)
		}
		if err := pw.Write(string(line)); err != nil {
			abort()
			return fmt.Errorf("parquet write %s: %w", r.ResourceID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return fmt.Errorf("parquet finish: %w", err)
	}
	return pfw.Close()
}
