package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         "mysql",
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "vysync",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "oracle"})
		assert.ErrorContains(t, err, "unsupported database driver")
		assert.Nil(t, db)
	})

	t.Run("SQLite", func(t *testing.T) {
		db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		assert.Equal(t, "sqlite", db.Dialector.Name())
	})
}

func TestDialector(t *testing.T) {
	for driver, want := range map[string]string{"": "postgres", "postgres": "postgres", "mysql": "mysql", "sqlite": "sqlite"} {
		d, err := Dialector(Config{Driver: driver, Name: "x"})
		require.NoError(t, err)
		assert.Equal(t, want, d.Name(), "driver %q", driver)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(Config{
		Host:     "db.example.supabase.co",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss:word/",
		Name:     "postgres",
	}, 10)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.example.supabase.co:5432", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:word/", pw)
	assert.Equal(t, "/postgres", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "10", u.Query().Get("connect_timeout"))
}
