package logger

import (
	"fmt"
	"time"
)

// ForRun returns the global logger tagged with a workflow run ID
func ForRun(runID string) Logger {
	return GetLogger().WithField("run_id", runID)
}

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, endpoint string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogFetchProgress logs relation list paging progress
func LogFetchProgress(l Logger, relation string, loaded, page int) {
	l.DebugWithFields("Loaded relation page", map[string]interface{}{
		"relation": relation,
		"loaded":   loaded,
		"page":     page,
	})
}

// LogUnfollow logs the outcome of a single unfollow attempt
func LogUnfollow(l Logger, username, accountID string, index, total int, err error) {
	fields := map[string]interface{}{
		"username":   username,
		"account_id": accountID,
		"progress":   fmt.Sprintf("%d/%d", index, total),
	}

	if err != nil {
		l.WithError(err).WarnWithFields("Unfollow failed", fields)
		return
	}
	l.InfoWithFields("Unfollowed account", fields)
}

// LogRunSummary logs the counters of a finished run
func LogRunSummary(l Logger, following, followers, nonReciprocal, unfollowed, failed int, elapsed time.Duration) {
	l.InfoWithFields("Unfollow run finished", map[string]interface{}{
		"following":      following,
		"followers":      followers,
		"non_reciprocal": nonReciprocal,
		"unfollowed":     unfollowed,
		"failed":         failed,
		"duration":       elapsed,
	})
}
