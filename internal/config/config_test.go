package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	type want struct {
		runAddress    string
		seedFile      string
		sweepInterval time.Duration
	}

	tests := []struct {
		name  string
		env   map[string]string
		flags []string
		want  want
	}{
		{
			name:  "defaults",
			env:   map[string]string{},
			flags: []string{},
			want: want{
				runAddress:    "localhost:8080",
				sweepInterval: time.Minute,
			},
		},
		{
			name: "env only",
			env: map[string]string{
				"RUN_ADDRESS":            "localhost:9999",
				"SEED_FILE":              "/etc/clubledger/seed.yaml",
				"OVERDUE_SWEEP_INTERVAL": "30s",
			},
			flags: []string{},
			want: want{
				runAddress:    "localhost:9999",
				seedFile:      "/etc/clubledger/seed.yaml",
				sweepInterval: 30 * time.Second,
			},
		},
		{
			name: "flags only",
			env:  map[string]string{},
			flags: []string{
				"-a", "localhost:7777",
				"-s", "seed.yaml",
				"-i", "5m",
			},
			want: want{
				runAddress:    "localhost:7777",
				seedFile:      "seed.yaml",
				sweepInterval: 5 * time.Minute,
			},
		},
		{
			name: "env overrides flags",
			env: map[string]string{
				"RUN_ADDRESS":            "env:9000",
				"SEED_FILE":              "env.yaml",
				"OVERDUE_SWEEP_INTERVAL": "2h",
			},
			flags: []string{
				"-a", "flag:8000",
				"-s", "flag.yaml",
				"-i", "10s",
			},
			want: want{
				runAddress:    "env:9000",
				seedFile:      "env.yaml",
				sweepInterval: 2 * time.Hour,
			},
		},
		{
			name:  "sweep disabled by flag",
			env:   map[string]string{},
			flags: []string{"-i", "0s"},
			want: want{
				runAddress: "localhost:8080",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			os.Args = append([]string{"test"}, tt.flags...)

			cfg, err := Parse()
			require.NoError(t, err)

			assert.Equal(t, tt.want.runAddress, cfg.RunAddress)
			assert.Equal(t, tt.want.seedFile, cfg.SeedFile)
			assert.Equal(t, tt.want.sweepInterval, cfg.OverdueSweepInterval)
		})
	}
}

func TestParseConfig_NegativeInterval(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	os.Args = []string{"test", "-i", "-1s"}

	_, err := Parse()
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SEED_FILE=dotenv.yaml\n"), 0o600))

	t.Setenv("SEED_FILE", "")
	require.NoError(t, os.Unsetenv("SEED_FILE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "dotenv.yaml", os.Getenv("SEED_FILE"))

	require.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
