// Package dataprocessing runs the per-dataset cleaning for the CMS hospital
// quality exports. Each dataset kind applies the shared cleaning transforms
// in a fixed order and writes a <stem>_cleaned.csv file.
//
// # Usage
//
//	cleaner := dataprocessing.NewCleaner(paths, table.WriteOptions{}, logger)
//	result, err := cleaner.CleanDataset(ctx, spec)
//	if err != nil {
//	    return err
//	}
//
// Clean is the pure form used by tests and by callers that already hold a
// table in memory.
//
// # Step order
//
//	general_info:  tidy → drop → missing → coerce → ordinal
//	spending:      tidy → drop → missing
//	readmissions:  tidy → drop → pivot → missing
//
// Stale cleaned files from an earlier run are removed with RemoveCleanedFiles
// before the first dataset is cleaned.
package dataprocessing
