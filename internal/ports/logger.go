package ports

import "github.com/bft-labs/volumetrize/pkg/log"

// Logger is the structured logger used across the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for adapters and the application layer.
var (
	String   = log.String
	Strings  = log.Strings
	Int      = log.Int
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
)
