package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erythu/portal/internal/config"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	units := map[string]config.UnitConfig{
		"erythu":    {Host: "primary"},
		"reporting": {Host: "replica"},
	}

	tests := []struct {
		name     string
		cfg      config.PersistenceConfig
		lookup   string
		wantName string
		wantHost string
		wantErr  error
	}{
		{
			name:     "explicit name",
			cfg:      config.PersistenceConfig{Unit: "erythu", Units: units},
			lookup:   "reporting",
			wantName: "reporting",
			wantHost: "replica",
		},
		{
			name:     "empty name uses configured unit",
			cfg:      config.PersistenceConfig{Unit: "reporting", Units: units},
			wantName: "reporting",
			wantHost: "replica",
		},
		{
			name:     "nothing configured falls back to default unit",
			cfg:      config.PersistenceConfig{Units: units},
			wantName: config.DefaultUnit,
			wantHost: "primary",
		},
		{
			name:     "name is matched case-insensitively",
			cfg:      config.PersistenceConfig{Units: units},
			lookup:   "Reporting",
			wantName: "reporting",
			wantHost: "replica",
		},
		{
			name:     "configured unit is matched case-insensitively",
			cfg:      config.PersistenceConfig{Unit: "ERYTHU", Units: units},
			wantName: "erythu",
			wantHost: "primary",
		},
		{
			name:    "missing unit",
			cfg:     config.PersistenceConfig{Units: units},
			lookup:  "billing",
			wantErr: ErrUnknownUnit,
		},
		{
			name:    "no units at all",
			cfg:     config.PersistenceConfig{},
			wantErr: ErrUnknownUnit,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			name, unit, err := Resolve(tc.cfg, tc.lookup)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantHost, unit.Host)
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	base := config.UnitConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "erythu",
		Password: "secret",
		DB:       "erythu",
		SSLMode:  "disable",
		MaxConns: 2,
	}

	tests := []struct {
		name    string
		driver  string
		wantErr error
	}{
		{name: "default driver is pgx", driver: ""},
		{name: "pgx", driver: DriverPGX},
		{name: "database/sql postgres", driver: DriverPostgres},
		{name: "driver names are case-insensitive", driver: "PGX"},
		{name: "unknown driver", driver: "mysql", wantErr: ErrUnknownDriver},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			cfg.Driver = tc.driver

			// Neither backend dials until a session or ping is requested.
			f, err := Open(context.Background(), cfg)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, f)
			f.Close()
		})
	}
}

func TestOpen_PasswordWithReservedCharacters(t *testing.T) {
	t.Parallel()

	for _, password := range []string{"p#ss", "p/ss", "p?ss", "p%zz", "p@ss:word"} {
		t.Run(password, func(t *testing.T) {
			t.Parallel()

			cfg := config.UnitConfig{
				Driver:   DriverPGX,
				Host:     "localhost",
				Port:     5432,
				User:     "erythu",
				Password: password,
				DB:       "erythu",
				SSLMode:  "disable",
			}

			f, err := Open(context.Background(), cfg)
			require.NoError(t, err)
			defer f.Close()

			pf, ok := f.(*pgxFactory)
			require.True(t, ok)
			assert.Equal(t, password, pf.pool.Config().ConnConfig.Password)
			assert.Equal(t, "erythu", pf.pool.Config().ConnConfig.User)
		})
	}
}
