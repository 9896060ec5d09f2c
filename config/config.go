// Package config loads bufferd configuration from the environment and an optional .env file.
//
// Every key has a default from its struct tag, and can be overridden by an environment variable named after its path,
// e.g., FEED_ADDR for feed.addr or BUFFER_DIFF_THRESHOLD for buffer.diff_threshold.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samthor/listbuf/logger"
	"github.com/spf13/viper"
)

// Config holds all configuration for bufferd.
type Config struct {
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Feed holds configuration for serving changes.
	Feed Feed `mapstructure:"feed"`
	// Buffer holds configuration for the list being served.
	Buffer Buffer `mapstructure:"buffer"`
}

// Feed holds configuration for the HTTP server and its subscribers.
type Feed struct {
	// Addr is the address the server listens on.
	Addr string `mapstructure:"addr" default:":8080"`
	// Path serves the WebSocket feed, with Server-Sent Events at Path+"/sse".
	Path string `mapstructure:"path" default:"/feed"`
	// MaxPacketSize is the largest packet accepted from a subscriber.
	MaxPacketSize int `mapstructure:"max_packet_size" default:"32768"`
	// RateLimit is the number of packets per second accepted from a subscriber.
	RateLimit int `mapstructure:"rate_limit" default:"100"`
	// RateBurst is the burst of packets accepted from a subscriber.
	RateBurst int `mapstructure:"rate_burst" default:"100"`
	// PingEvery pings WebSocket subscribers every ~duration, zero to disable.
	PingEvery time.Duration `mapstructure:"ping_every" default:"30s"`
	// SendRate limits changes sent per second to a subscriber, zero for unlimited.
	SendRate float64 `mapstructure:"send_rate" default:"0"`
	// Backlog is the number of changes a subscriber may fall behind before it is dropped.
	Backlog int `mapstructure:"backlog" default:"1024"`
}

// Buffer holds configuration for the served list.
type Buffer struct {
	// File is read as one element per line, either "key" or "key=value".
	File string `mapstructure:"file" default:"list.txt"`
	// DiffThreshold is the most inserts or deletes published as itemized changes.
	DiffThreshold int `mapstructure:"diff_threshold" default:"300"`
	// Sort orders elements by key rather than file order.
	Sort bool `mapstructure:"sort" default:"false"`
	// Unique drops repeated keys, keeping the first.
	Unique bool `mapstructure:"unique" default:"false"`
}

// Load loads configuration from environment variables and the .env file in dir, if any.
func Load(dir string) (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. FEED_ADDR -> feed.addr)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that would otherwise fail later, or silently misbehave.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, was %q", c.Log.Format))
	}
	if c.Buffer.File == "" {
		errs = append(errs, errors.New("buffer.file is required"))
	}
	if c.Buffer.DiffThreshold <= 0 {
		errs = append(errs, fmt.Errorf("buffer.diff_threshold must be positive, was %d", c.Buffer.DiffThreshold))
	}
	if !strings.HasPrefix(c.Feed.Path, "/") {
		errs = append(errs, fmt.Errorf("feed.path must start with /, was %q", c.Feed.Path))
	}
	if c.Feed.SendRate < 0 {
		errs = append(errs, fmt.Errorf("feed.send_rate must not be negative, was %v", c.Feed.SendRate))
	}

	return errors.Join(errs...)
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
