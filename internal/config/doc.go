// Package config provides configuration loading for the hospital data pipeline.
//
// # Configuration Sources
//
// Configuration is assembled in the following order, later sources winning:
//
//  1. Built-in defaults (the three CMS datasets, region lookup, paths)
//  2. A YAML file (medclean.yaml or configs/medclean.yaml, or --config)
//  3. Environment variables prefixed with MEDCLEAN_
//
// Dataset definitions and the state region table can only come from YAML:
//
//	pipeline:
//	  datasets:
//	    - name: spending
//	      kind: spending
//	      file: Medicare_Spending.csv
//	      exclude_columns: [footnote, location]
//	      na_values: ["Not Available"]
//
// Scalar settings can be overridden from the environment:
//
//	MEDCLEAN_PATHS_DATA_DIR=/srv/cms
//	MEDCLEAN_LOGGING_LEVEL=debug
//	MEDCLEAN_SERVER_PORT=9000
//	MEDCLEAN_PIPELINE_EXPORT_XLSX=true
//
// # Paths
//
// Paths derives the raw, cleaned, processed, results and logs directories
// from a single data directory.
package config
