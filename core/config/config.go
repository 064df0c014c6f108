// Package config loads and validates the shell's on-disk configuration
// directory.
package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
)

const (
	// ConfigurationName is the config file inside the config directory.
	ConfigurationName = "config.yaml"
	// HistoryName is the interactive history file.
	HistoryName = "history"
	// HostKeyName is the SSH host key used by the serve command.
	HostKeyName = "host_key"
)

// Configuration is the full on-disk configuration.
type Configuration struct {
	configFs afero.Fs

	// Prompt and ContinuationPrompt seed the interactive PS1/PS2
	// variables.
	Prompt             string `json:"prompt"`
	ContinuationPrompt string `json:"continuation_prompt"`

	// DefaultPath seeds PATH when the inherited environment has none.
	DefaultPath string `json:"default_path" validate:"required"`

	Assist Assist `json:"assist"`
	SSH    SSH    `json:"ssh"`
}

// Assist configures the command-completion assistant client.
type Assist struct {
	// Endpoint receives completion queries; empty disables the assist
	// builtin.
	Endpoint string `json:"endpoint" validate:"omitempty,url"`
	// RatePerSec bounds the sustained query rate.
	RatePerSec float64 `json:"rate_per_sec" validate:"gte=0"`
}

// SSH configures the optional SSH front end.
type SSH struct {
	Port int `json:"port" validate:"gte=0,lte=65535"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// OpenHistory opens (creating if needed) the history file for appending.
func (c *Configuration) OpenHistory() (afero.File, error) {
	return c.fs().OpenFile(HistoryName, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
}

// HostKeyPem returns the bytes of the SSH host key, if present.
func (c *Configuration) HostKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), HostKeyName)
}

// WriteHostKeyPem stores a freshly generated host key.
func (c *Configuration) WriteHostKeyPem(pem []byte) error {
	return afero.WriteFile(c.fs(), HostKeyName, pem, 0600)
}

// Default returns the configuration used when no config directory
// exists.
func Default() *Configuration {
	return &Configuration{
		Prompt:             `\u@\h:\w\$ `,
		ContinuationPrompt: "> ",
		DefaultPath:        "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		Assist: Assist{
			RatePerSec: 1,
		},
		SSH: SSH{
			Port: 2222,
		},
	}
}
