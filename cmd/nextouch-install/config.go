package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// transport names accepted in the configuration
const (
	TransportPCSC   = "pcsc"
	TransportGoCard = "gocard"
	TransportModem  = "modem"
)

// configuration file structure
type Config struct {
	Transport string `yaml:"transport"` // card transport: pcsc, gocard or modem	(optional, default pcsc)
	Reader    string `yaml:"reader"`    // PC/SC reader name						(optional, default first reader)
	Port      string `yaml:"port"`      // serial port of the modem					(mandatory for modem transport)
	Baudrate  int    `yaml:"baudrate"`  // serial baud rate							(optional, default 115200)
	Debug     bool   `yaml:"debug"`     // enable extended debug output				(optional)
	EncKey    string `yaml:"enc_key"`   // hex encoded static ENC key				(optional, prompted when unset)
	MacKey    string `yaml:"mac_key"`   // hex encoded static MAC key				(optional, prompted when unset)
}

// load the config file. A missing file is not an error, the defaults apply.
func (c *Config) load(fn string) error {
	content, err := os.ReadFile(fn)
	if err != nil {
		if os.IsNotExist(err) {
			c.applyDefaults()
			return nil
		}
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	c.applyDefaults()

	return c.validate()
}

func (c *Config) applyDefaults() {
	if c.Transport == "" {
		c.Transport = TransportPCSC
	}
	if c.Baudrate == 0 {
		c.Baudrate = 115200
	}
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportPCSC, TransportGoCard:
	case TransportModem:
		if c.Port == "" {
			return fmt.Errorf("config.port is required for the modem transport")
		}
	default:
		return fmt.Errorf("unknown transport %q, must be %s, %s or %s", c.Transport, TransportPCSC, TransportGoCard, TransportModem)
	}

	for _, key := range []string{c.EncKey, c.MacKey} {
		if key == "" {
			continue
		}
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("key must be hex encoded: %w", err)
		}
		if len(decoded) != 16 {
			return fmt.Errorf("key must be 16 bytes, got %d", len(decoded))
		}
	}

	return nil
}
