package config

import "time"

const (
	// MaxTitleLength is the maximum length for node and project titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxTitleLength = 255

	// MaxSynopsisLength is the maximum length for a node synopsis.
	MaxSynopsisLength = 4000

	// MaxSlugLength is the maximum length for a project slug.
	MaxSlugLength = 100

	// MaxIDLength bounds caller-supplied identifiers (tenant ids, media kind ids).
	MaxIDLength = 128

	// MaxPosition bounds sibling positions. It stays exactly representable
	// as a JSON number and leaves room to append without overflow.
	MaxPosition = int64(1) << 53

	// MaxReorderBatch is the maximum number of items in one reorder request.
	MaxReorderBatch = 500

	// MaxTxRetries is how many times a serialization failure is retried
	// before the error is returned to the caller.
	MaxTxRetries = 5

	// TxRetryBackoff is multiplied by the attempt number between retries.
	TxRetryBackoff = 20 * time.Millisecond
)
