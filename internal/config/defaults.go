package config

import "fhvclean/internal/storage"

// Default table names of the for-hire-vehicle pipeline.
const (
	DefaultJob         = "fhv_bronze_to_silver"
	DefaultSource      = "workspace.fhv_data_pipeline.raw_fhv_trips"
	DefaultDestination = "silver_clean_fhv_data"
)

// Default returns the for-hire-vehicle silver pipeline. The source lives in
// the warehouse (project.dataset.table); its DSN has no sensible default and
// is expected from the pipeline file or FHVCLEAN_SOURCE_DSN.
func Default() Pipeline {
	return Pipeline{
		Job:         DefaultJob,
		Source:      Table{Kind: "bigquery", Table: DefaultSource},
		Destination: Table{Table: DefaultDestination},
		Renames: map[string]string{
			"pickup_datetime":   "tpep_pickup_datetime",
			"drop_off_datetime": "tpep_dropoff_datetime",
		},
		DropColumns: []string{"_file", "_line", "_modified", "_fivetran_synced", "sr_flag", "affiliated_base_number"},
		Quality: Quality{
			NotNull:  []string{"pulocation_id", "dolocation_id", "tpep_pickup_datetime", "tpep_dropoff_datetime"},
			Positive: []string{"pulocation_id", "dolocation_id"},
			NotBefore: []Ordering{
				{Column: "tpep_dropoff_datetime", Reference: "tpep_pickup_datetime"},
			},
		},
		Runtime: RuntimeConfig{
			BatchSize:   storage.DefaultBatchSize,
			VerifyCount: true,
		},
		Metrics: MetricsConfig{Backend: "none"},
		Log:     LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 10, MaxAgeDays: 7},
	}
}
