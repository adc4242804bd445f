// Package metrics provides the Prometheus collectors for the miviz pipeline.
package metrics

// Operation labels for operations_total.
const (
	// OpPipelineRun represents one pipeline run.
	OpPipelineRun = "pipeline_run"
	// OpSessionSubmit represents a session submission.
	OpSessionSubmit = "session_submit"
	// OpDatasetBuild represents a dataset build.
	OpDatasetBuild = "dataset_build"
)

// Stage label values for stage duration histograms.
const (
	StageGenerate = "generate"
	StageArtifact = "artifact"
	StageSegment  = "segment"
	StageAugment  = "augment"
	StageChart    = "chart"
	StageClassify = "classify"
)

// Status label values.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCancelled = "cancelled"
	StatusStale     = "stale"
)

// Histogram bucket configuration constants.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
)

// namespace prefixes every metric name.
const namespace = "miviz"
