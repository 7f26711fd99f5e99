// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON lines on stderr
//   - Development (LOG_DEV=true): colored console output
//
// Components receive a named *zap.Logger and log with typed fields:
//
//	logger := logging.NewDefault()
//	ctrl := logger.Component("controller")
//	ctrl.Info("tab suspended", zap.Int("tab_id", 42), zap.String("scan_id", id))
package logging
