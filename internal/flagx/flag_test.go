package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "process", "a.txt"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "flag with equals",
			args:         []string{"-config=alt.json", "-m", "10"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "order preserved across forms",
			args:         []string{"-m=5", "-d", "db.sqlite", "--limit", "3"},
			allowedFlags: []string{"-m", "-d"},
			want:         []string{"-m=5", "-d", "db.sqlite"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"audit", "--limit", "20"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "value that looks like a flag is not consumed",
			args:         []string{"-c", "-q"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("short flag", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "a.json", ConfigPath([]string{"serve", "-c", "a.json"}))
	})

	t.Run("long flag with equals", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "b.json", ConfigPath([]string{"-config=b.json"}))
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "env.json")
		assert.Equal(t, "env.json", ConfigPath([]string{"audit"}))
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "env.json")
		assert.Equal(t, "flag.json", ConfigPath([]string{"-c", "flag.json"}))
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "", ConfigPath(nil))
	})
}
