package testutils

import (
	"os"
	"testing"
)

// PostgresURLEnv names the variable holding the database used by the
// Postgres integration tests.
const PostgresURLEnv = "TASKFLOW_TEST_POSTGRES_URL"

// IsIntegrationTestEnvironment reports whether a Postgres database is
// configured for integration tests.
func IsIntegrationTestEnvironment() bool {
	return os.Getenv(PostgresURLEnv) != ""
}

// PostgresURL returns the integration database URL, skipping the test when
// none is configured.
func PostgresURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping Postgres integration test", PostgresURLEnv)
	}
	return url
}
