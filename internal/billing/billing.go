// Package billing reads corpus rows from JSONL exports.
package billing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/residue/pkg/residue/corpus"
)

const maxLine = 4 << 20

// LoadFromJSONL loads rows from a JSONL file. Malformed lines are skipped
// with a warning.
func LoadFromJSONL(path string, log *zap.Logger) ([]corpus.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, path, log)
}

// Decode reads JSONL rows from r. source names r in log lines and errors.
func Decode(r io.Reader, source string, log *zap.Logger) ([]corpus.Row, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var rows []corpus.Row
	skipped := 0
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var row corpus.Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			log.Warn("skipping malformed row", zap.String("source", source), zap.Int("line", n), zap.Error(err))
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no valid rows found in %s", source)
	}
	if skipped > 0 {
		log.Info("corpus loaded with skipped lines", zap.String("source", source), zap.Int("rows", len(rows)), zap.Int("skipped", skipped))
	}
	return rows, nil
}
