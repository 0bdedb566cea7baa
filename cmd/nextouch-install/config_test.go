package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helperWriteConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConfigDefaults(t *testing.T) {
	conf := Config{}
	require.NoError(t, conf.load(filepath.Join(t.TempDir(), "missing.yaml")))

	assert.Equal(t, TransportPCSC, conf.Transport)
	assert.Equal(t, 115200, conf.Baudrate)
	assert.False(t, conf.Debug)
}

func TestConfigLoad(t *testing.T) {
	path := helperWriteConfig(t, `
transport: modem
port: /dev/ttyUSB0
baudrate: 921600
debug: true
enc_key: "404142434445464748494a4b4c4d4e4f"
`)

	conf := Config{}
	require.NoError(t, conf.load(path))

	assert.Equal(t, TransportModem, conf.Transport)
	assert.Equal(t, "/dev/ttyUSB0", conf.Port)
	assert.Equal(t, 921600, conf.Baudrate)
	assert.True(t, conf.Debug)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"unknown transport", "transport: nfc"},
		{"modem without port", "transport: modem"},
		{"key not hex", "enc_key: nothex"},
		{"key wrong length", "enc_key: \"0102\""},
		{"unknown field", "unknown: true"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := Config{}
			assert.Error(t, conf.load(helperWriteConfig(t, tc.content)))
		})
	}
}
