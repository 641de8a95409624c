package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Full migration runs need a live database; only the input guards are
// covered here.
func TestRunMigrations_InputValidation(t *testing.T) {
	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations("postgres://localhost/susubox", "")
		assert.EqualError(t, err, "migrations path cannot be empty")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations("", "./migrations/postgres")
		assert.EqualError(t, err, "database URL cannot be empty")
	})
}
