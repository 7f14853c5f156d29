/*
Package log provides structured logging for Chronicle using zerolog.

The log package wraps zerolog to give every collector and command a
structured, leveled logger. All logs carry timestamps and support filtering
by severity; output is JSON or human-readable console text depending on
the LogJSON setting (or --log-json), written to stdout unless
Config.Output names another writer.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     logFile,
	})

	fsLog := log.WithCollector("filesystem")
	fsLog.Info().Str("path", path).Msg("watch started")

# Component Loggers

  - WithComponent(name): generic subsystem logger (store, graph, supervisor)
  - WithCollector(name): per-collector child logger
  - WithOperation(name): per-operation child logger

# See Also

  - pkg/config for how Level/JSONOutput are derived from the environment
  - cmd/chronicle for where Init is called (cobra.OnInitialize)
*/
package log
