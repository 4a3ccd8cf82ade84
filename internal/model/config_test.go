package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/hunterops/nbrun/internal/model"
	"github.com/spf13/viper"

	"github.com/stretchr/testify/require"
)

const testConfig = `
nb_path: /srv/hunting/nb
queue_path: /srv/hunting/queue
output_path: /srv/hunting/output
findings_path: /srv/hunting/findings
output_div: h
check_interval: "5s"
engine:
  path: /usr/local/bin/papermill
  timeout: "30m"
  env:
    home: $HOME
render:
  path: /usr/local/bin/jupyter-nbconvert
  timeout: "2m"
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	v := viper.New()
	model.SetDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(strings.NewReader(testConfig))
	require.NoError(t, err)

	cfg, err := model.LoadConfig(v)
	require.NoError(t, err)
	t.Logf("got: %+v", cfg)

	require.Equal(t, "/srv/hunting/nb", cfg.NotebookPath)
	require.Equal(t, "/srv/hunting/queue", cfg.QueuePath)
	require.Equal(t, "h", cfg.OutputDiv)
	require.Equal(t, 5*time.Second, cfg.CheckInterval)
	require.Equal(t, "/usr/local/bin/papermill", cfg.Engine.Path)
	require.Equal(t, 30*time.Minute, cfg.Engine.Timeout)
	require.Equal(t, "/usr/local/bin/jupyter-nbconvert", cfg.Render.Path)

	t.Run("environ", func(t *testing.T) {
		env := cfg.Engine.Environ()
		require.Len(t, env, 1)
		require.True(t, strings.HasPrefix(env[0], "HOME="))
		require.NotContains(t, env[0], "$")
	})

	t.Run("folders", func(t *testing.T) {
		require.Contains(t, cfg.Folders(), "/srv/hunting/queue")
		require.Len(t, cfg.Folders(), 6)
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	model.SetDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(strings.NewReader("queue_path: ./queue\ncheck_interval: 3s\n"))
	require.NoError(t, err)

	cfg, err := model.LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "papermill", cfg.Engine.Path)
	require.Equal(t, time.Hour, cfg.Engine.Timeout)
	require.Equal(t, "jupyter-nbconvert", cfg.Render.Path)
}

func TestLoadConfigRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		scenario string
		given    string
	}{
		{"zero_interval", "queue_path: ./queue\ncheck_interval: 0s\n"},
		{"empty_queue_path", "check_interval: 3s\n"},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			v := viper.New()
			model.SetDefaults(v)
			v.SetConfigType("yaml")
			err := v.ReadConfig(strings.NewReader(tc.given))
			require.NoError(t, err)

			_, err = model.LoadConfig(v)
			require.Error(t, err)
		})
	}
}
