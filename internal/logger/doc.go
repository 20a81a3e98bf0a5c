// Package logger provides a process-wide zap logger with context scoping.
//
// Initialize once from main:
//
//	logger.Init(logger.Config{Env: "prod", Level: "info"})
//	defer func() { _ = logger.Sync() }()
//
// Components take a named child:
//
//	log := logger.Named("election")
//	log.Debug("elected column families", logger.Keyspace(ks), logger.Operation(op.Name()))
//
// Request-scoped loggers travel through context.Context with ToContext and From.
package logger
