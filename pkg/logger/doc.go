// Package logger provides structured logging for the unfollow bot.
//
// It wraps zerolog behind a small interface so components can be handed a
// logger (or a TestLogger in tests) instead of reaching for a global:
//
//	log := logger.ForRun(runID).WithField("invoker", userID)
//	log.InfoWithFields("Fetched relations", map[string]interface{}{
//	    "followers": 120,
//	    "following": 150,
//	})
//
// Console output is colorized. When a log file is configured the same
// events are also appended to it as JSON.
package logger
