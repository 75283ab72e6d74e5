package server

import "time"

// Version is the server build version reported in the SQL banner and by
// `datasmith version`; overridden at link time in release builds the same
// way the teacher leaves its own cmd/smf version string as a plain const.
var Version = "0.1.0-dev"

// sqlBanner builds the static banner list and prompt tag for get_sql_banner,
// grounded on original_source/core/populate/factory.py's get_sql_banner —
// its literal "Forge version"/"DataSmith Initiative" strings are not
// carried over verbatim (see SPEC_FULL.md §6), but the banner's shape and
// the DataSmith application name are.
func sqlBanner(dialect string) map[string]any {
	now := time.Now().Format("2006-01-02 15:04:05")
	prompt := dialect
	if prompt == "" {
		prompt = "sql"
	}

	banner := []string{
		"Welcome to the DataSmith monitor. Commands end with ; or \\g.",
		"Session started on " + now,
		"DataSmith server version: " + Version + " (" + prompt + ")",
		"",
		"Type 'help;' for help. Type 'clear;' to clear the screen.",
		"",
		"Query results are returned in full as tab-separated rows.",
	}
	return map[string]any{"log": banner, "prompt": prompt}
}
