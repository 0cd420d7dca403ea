/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"os"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/indrora/vbf/vbf/reader"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// Config holds the defaults a --config file can set. Flags given on the
// command line win.
type Config struct {
	RingSize  int    `yaml:"ring_size"`
	RingLimit int    `yaml:"ring_limit"`
	MapIndex  bool   `yaml:"map_index"`
	Codec     string `yaml:"codec"`
	LogLevel  string `yaml:"log_level"`
	// brotli streams have no magic number and must be named
	Brotli bool `yaml:"brotli"`
}

func defaultConfig() Config {
	return Config{
		RingSize:  reader.DEFAULT_RING_SIZE,
		RingLimit: ioutil.DEFAULT_RING_LIMIT,
		MapIndex:  true,
		Codec:     "gzip",
		LogLevel:  "info",
	}
}

func loadConfig(path string) (Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err = yaml.UnmarshalStrict(b, &c); err != nil {
		return c, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return c, nil
}

func (c *Config) applyFlags(flags *pflag.FlagSet) {
	if flags.Changed("ring-size") {
		c.RingSize, _ = flags.GetInt("ring-size")
	}
	if flags.Changed("ring-limit") {
		c.RingLimit, _ = flags.GetInt("ring-limit")
	}
	if flags.Changed("map-index") {
		c.MapIndex, _ = flags.GetBool("map-index")
	}
	if flags.Changed("brotli") {
		c.Brotli, _ = flags.GetBool("brotli")
	}
	if flags.Changed("codec") {
		c.Codec, _ = flags.GetString("codec")
	}
}

// openOptions are the reader options every command starts from.
func (c *Config) openOptions() []reader.Option {
	opts := []reader.Option{reader.WithRingSize(c.RingSize), reader.WithRingLimit(c.RingLimit)}
	if c.Brotli {
		opts = append(opts, reader.WithCompression(format.COMPRESSION_BROTLI))
	}
	return opts
}
