package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Configuration){
		"empty default_path": func(c *Configuration) { c.DefaultPath = "" },
		"bad assist url":     func(c *Configuration) { c.Assist.Endpoint = "not a url" },
		"negative rate":      func(c *Configuration) { c.Assist.RatePerSec = -1 },
		"port too large":     func(c *Configuration) { c.SSH.Port = 70000 },
		"negative port":      func(c *Configuration) { c.SSH.Port = -1 },
	}
	for tn, mutate := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOpenHistoryAppends(t *testing.T) {
	cfg := Default()

	fd, err := cfg.OpenHistory()
	require.NoError(t, err)
	_, err = fd.WriteString("echo one\n")
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	fd, err = cfg.OpenHistory()
	require.NoError(t, err)
	_, err = fd.WriteString("echo two\n")
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	contents, err := afero.ReadFile(cfg.fs(), HistoryName)
	require.NoError(t, err)
	assert.Equal(t, "echo one\necho two\n", string(contents))
}

func TestHostKeyRoundTrip(t *testing.T) {
	cfg := Default()

	_, err := cfg.HostKeyPem()
	assert.Error(t, err, "no key before one is written")

	require.NoError(t, cfg.WriteHostKeyPem([]byte("pem data")))

	got, err := cfg.HostKeyPem()
	require.NoError(t, err)
	assert.Equal(t, []byte("pem data"), got)
}
