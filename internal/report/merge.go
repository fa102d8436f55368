package report

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bill-tracker/internal/model"
)

// ErrNothingToMerge is returned when no per-jurisdiction artifact could
// be read; no consolidated artifact is produced in that case.
var ErrNothingToMerge = eris.New("report: nothing to merge")

// MergeResult describes one consolidation run.
type MergeResult struct {
	Path       string // consolidated artifact path
	Inputs     int    // artifacts read successfully
	Skipped    int    // unreadable or empty artifacts
	Total      int    // records before dedup
	Duplicates int    // records dropped by link dedup
	Records    []model.BillRecord
}

// MergeDir consolidates every per-jurisdiction artifact under dir:
// concatenate, dedup by bill link (first occurrence wins), sort by
// (state, bill number), write a timestamp-named consolidated workbook.
// Unreadable inputs are skipped with a warning, never fatal.
func MergeDir(dir string, now time.Time) (*MergeResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "bills_*.xlsx"))
	if err != nil {
		return nil, eris.Wrapf(err, "report: glob %s", dir)
	}
	sort.Strings(paths)
	return MergeFiles(dir, paths, now)
}

// MergeFiles consolidates an explicit set of artifacts, writing the
// output under dir. The orchestrator uses this to merge exactly the
// artifacts of the run that just finished.
func MergeFiles(dir string, paths []string, now time.Time) (*MergeResult, error) {
	log := zap.L().With(zap.String("component", "report.merge"))

	result := &MergeResult{}
	var all []model.BillRecord
	for _, path := range paths {
		records, err := ReadWorkbook(path)
		if err != nil {
			log.Warn("skipping unreadable artifact", zap.String("path", path), zap.Error(err))
			result.Skipped++
			continue
		}
		if len(records) == 0 {
			log.Warn("skipping empty artifact", zap.String("path", path))
			result.Skipped++
			continue
		}
		result.Inputs++
		all = append(all, records...)
	}

	if result.Inputs == 0 {
		return nil, ErrNothingToMerge
	}

	result.Total = len(all)
	merged := dedupByLink(all)
	result.Duplicates = result.Total - len(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].State != merged[j].State {
			return merged[i].State < merged[j].State
		}
		return merged[i].BillNumber < merged[j].BillNumber
	})

	result.Records = merged
	result.Path = filepath.Join(dir, ConsolidatedName(now))
	if err := WriteWorkbook(result.Path, merged); err != nil {
		return nil, err
	}

	log.Info("merge complete",
		zap.Int("inputs", result.Inputs),
		zap.Int("skipped", result.Skipped),
		zap.Int("records", len(merged)),
		zap.Int("duplicates_removed", result.Duplicates),
		zap.String("path", result.Path),
	)
	return result, nil
}

// dedupByLink keeps the first occurrence of each bill link. Records
// without a link cannot be keyed across jurisdictions and are all kept.
func dedupByLink(records []model.BillRecord) []model.BillRecord {
	seen := make(map[string]bool, len(records))
	unique := make([]model.BillRecord, 0, len(records))
	for _, r := range records {
		key := strings.TrimSpace(r.BillLink)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		unique = append(unique, r)
	}
	return unique
}
