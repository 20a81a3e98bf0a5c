package logger

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func Keyspace(v string) zap.Field {
	return zap.String("keyspace", v)
}

func Table(v string) zap.Field {
	return zap.String("table", v)
}

func View(v string) zap.Field {
	return zap.String("view", v)
}

// Operation takes the identifier form of a stream operation (e.g. "BULK_LOAD")
func Operation(v string) zap.Field {
	return zap.String("operation", v)
}

// Generation is the schema version a snapshot was taken at
func Generation(v uuid.UUID) zap.Field {
	return zap.Stringer("generation", v)
}

func Source(v string) zap.Field {
	return zap.String("source", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}
