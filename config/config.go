/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config loads the §6 config surface through github.com/spf13/viper
// and exposes it as a typed, mapstructure-tagged Config, the way the
// teacher's config/viper.go components decode a section of a shared
// *viper.Viper via UnmarshalKey. A Watcher (watch.go) live-reloads the
// non-bootstrap subset (pool sizing, limits, cache policy) with
// github.com/fsnotify/fsnotify.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ContentCache mirrors the "content-cache.*" config surface.
type ContentCache struct {
	Enabled       bool  `mapstructure:"enabled" yaml:"enabled"`
	Size          int   `mapstructure:"size" yaml:"size"`
	PerEntryLimit int64 `mapstructure:"per-entry-limit" yaml:"per-entry-limit"`
	Mmap          bool  `mapstructure:"mmap" yaml:"mmap"`
}

// ADP mirrors the "adp.*" config surface.
type ADP struct {
	Cache        bool `mapstructure:"cache" yaml:"cache"`
	CacheSize    int  `mapstructure:"cache-size" yaml:"cache-size"`
	EnableDebug  bool `mapstructure:"enable-debug" yaml:"enable-debug"`
	EnableExpire bool `mapstructure:"enable-expire" yaml:"enable-expire"`
	TagLocks     bool `mapstructure:"tag-locks" yaml:"tag-locks"`
}

// LimitPolicy mirrors one named entry under "limits.*"; only "default" is
// part of the enumerated surface, but the shape is reused for any extra
// named policy a config file registers alongside it.
type LimitPolicy struct {
	MaxRun    int           `mapstructure:"maxrun" yaml:"maxrun"`
	MaxWait   int           `mapstructure:"maxwait" yaml:"maxwait"`
	MaxUpload int64         `mapstructure:"maxupload" yaml:"maxupload"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Limits mirrors "limits.default.*" plus any additional named policies.
type Limits struct {
	Default LimitPolicy            `mapstructure:"default" yaml:"default"`
	Named   map[string]LimitPolicy `mapstructure:",remain" yaml:"named,omitempty"`
}

// HTTP mirrors "http.{major,minor}".
type HTTP struct {
	Major int `mapstructure:"major" yaml:"major"`
	Minor int `mapstructure:"minor" yaml:"minor"`
}

// Keepalive mirrors "keepalive.{max,timeout}".
type Keepalive struct {
	Max     int           `mapstructure:"max" yaml:"max"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Listen is bootstrap-only bind policy; the enumerated surface names
// listen-backlog but not address/port, since the spec leaves driver
// transport as a separate collaborator (§1 "Out of scope" / driver ABI).
// A real binary still needs somewhere to read them from, so they live
// here as a natural extension of the same file.
type Listen struct {
	Address  string `mapstructure:"address" yaml:"address"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Location string `mapstructure:"location" yaml:"location"`
}

// Monitor is bootstrap-only policy for the Prometheus /metrics endpoint.
type Monitor struct {
	Address  string        `mapstructure:"address" yaml:"address"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// Config is the full §6 config surface plus the handful of bootstrap-only
// fields (name, listen address, page root, pidfile path) a running process
// needs that the enumerated list leaves to "external interfaces" elsewhere
// in the spec.
type Config struct {
	Name string `mapstructure:"name" yaml:"name"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout"`
	ListenBacklog   int           `mapstructure:"listen-backlog" yaml:"listen-backlog"`

	MinThreads     int           `mapstructure:"min-threads" yaml:"min-threads"`
	MaxThreads     int           `mapstructure:"max-threads" yaml:"max-threads"`
	ConnsPerThread int           `mapstructure:"conns-per-thread" yaml:"conns-per-thread"`
	ThreadTimeout  time.Duration `mapstructure:"thread-timeout" yaml:"thread-timeout"`

	MaxConns   int `mapstructure:"max-conns" yaml:"max-conns"`
	MaxDropped int `mapstructure:"max-dropped" yaml:"max-dropped"`

	ContentCache ContentCache `mapstructure:"content-cache" yaml:"content-cache"`
	ADP          ADP          `mapstructure:"adp" yaml:"adp"`
	Limits       Limits       `mapstructure:"limits" yaml:"limits"`
	HTTP         HTTP         `mapstructure:"http" yaml:"http"`
	Keepalive    Keepalive    `mapstructure:"keepalive" yaml:"keepalive"`

	Listen   Listen  `mapstructure:"listen" yaml:"listen"`
	Monitor  Monitor `mapstructure:"monitor" yaml:"monitor"`
	PageRoot string  `mapstructure:"page-root" yaml:"page-root"`
	PIDFile  string  `mapstructure:"pidfile" yaml:"pidfile"`
	LogLevel string  `mapstructure:"log-level" yaml:"log-level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "aolserverd")
	v.SetDefault("shutdown-timeout", "30s")
	v.SetDefault("listen-backlog", 1024)

	v.SetDefault("min-threads", 4)
	v.SetDefault("max-threads", 32)
	v.SetDefault("conns-per-thread", 0)
	v.SetDefault("thread-timeout", "30s")

	v.SetDefault("max-conns", 100)
	v.SetDefault("max-dropped", 100)

	v.SetDefault("content-cache.enabled", true)
	v.SetDefault("content-cache.size", 8*1024*1024)
	v.SetDefault("content-cache.per-entry-limit", 256*1024)
	v.SetDefault("content-cache.mmap", false)

	v.SetDefault("adp.cache", true)
	v.SetDefault("adp.cache-size", 512)
	v.SetDefault("adp.enable-debug", false)
	v.SetDefault("adp.enable-expire", true)
	v.SetDefault("adp.tag-locks", true)

	v.SetDefault("limits.default.maxrun", 100)
	v.SetDefault("limits.default.maxwait", 100)
	v.SetDefault("limits.default.maxupload", 10*1024*1000)
	v.SetDefault("limits.default.timeout", "60s")

	v.SetDefault("http.major", 1)
	v.SetDefault("http.minor", 0)

	v.SetDefault("keepalive.max", 0)
	v.SetDefault("keepalive.timeout", "0s")

	v.SetDefault("listen.address", "")
	v.SetDefault("listen.port", 8080)
	v.SetDefault("listen.location", "")

	v.SetDefault("monitor.address", "")
	v.SetDefault("monitor.interval", "5s")

	v.SetDefault("page-root", ".")
	v.SetDefault("pidfile", "aolserverd.pid")
	v.SetDefault("log-level", "info")
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.ErrorUnused = false
	dc.WeaklyTypedInput = true
	dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
}

// Load reads path (or viper's default search path when path is empty) and
// decodes it into a Config, seeded with the defaults every field falls
// back to when the key is absent.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("aolserverd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/aolserverd")
	}

	v.SetEnvPrefix("AOLSERVERD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
