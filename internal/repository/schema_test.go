package repository

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Columns the Postgres repositories name in their SQL. Drift between these
// lists and schema.sql breaks the storage path at statement parse time.
var repositoryColumns = map[string][]string{
	"events": {
		"id", "title", "description", "location", "starts_at", "created_by",
		"max_capacity", "waitlist_enabled", "recurrence_type",
		"recurrence_end_date", "parent_event_id", "form_fields",
		"created_at", "updated_at",
	},
	"attendees": {
		"id", "event_id", "registrant_key", "user_id", "guest_name",
		"guest_email", "status", "responded_at",
	},
	"waitlist_entries": {
		"id", "event_id", "registrant_key", "user_id", "guest_name",
		"guest_email", "position", "joined_at", "notified_at", "status",
	},
}

func loadSchema(t *testing.T) string {
	t.Helper()
	ddl, err := os.ReadFile("../../schema.sql")
	require.NoError(t, err)
	return string(ddl)
}

func tableBlock(t *testing.T, ddl, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(ddl, marker)
	require.NotEqualf(t, -1, start, "schema.sql does not create table %s", table)
	block := ddl[start:]
	end := strings.Index(block, ");")
	require.NotEqual(t, -1, end)
	return block[:end]
}

func TestSchemaDeclaresRepositoryColumns(t *testing.T) {
	ddl := loadSchema(t)
	for table, columns := range repositoryColumns {
		block := tableBlock(t, ddl, table)
		for _, column := range columns {
			require.Containsf(t, block, column, "table %s is missing column %s", table, column)
		}
	}
}

func TestSchemaAllowsUnlimitedCapacity(t *testing.T) {
	block := tableBlock(t, loadSchema(t), "events")

	// MaxCapacity is a nullable pointer in the domain; NULL means unlimited
	require.Regexp(t, regexp.MustCompile(`(?m)max_capacity\s+INTEGER,`), block)
	require.NotRegexp(t, regexp.MustCompile(`(?m)max_capacity\s+INTEGER\s+NOT NULL`), block)
}

func TestSchemaEnforcesOneLiveEntryPerRegistrant(t *testing.T) {
	ddl := loadSchema(t)

	require.Contains(t, ddl, "CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_live_registrant")
	require.Contains(t, ddl, "WHERE status IN ('waiting', 'notified')")
}
