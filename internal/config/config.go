// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package config

import (
	"fmt"
	"time"
)

// Config is the fully-resolved engine configuration: one entry per
// channel, the device catalogue each channel's devices are drawn from,
// the plugin supervisor's backoff parameters, and the ambient server
// concerns (HTTP adapter, scanner, logging, metrics).
type Config struct {
	Engine     EngineConfig     `koanf:"engine"`
	Channels   []ChannelConfig  `koanf:"channels"`
	Devices    []DeviceConfig   `koanf:"devices"`
	Plugin     PluginConfig     `koanf:"plugin"`
	HTTP       HTTPConfig       `koanf:"http"`
	XMLWire    XMLWireConfig    `koanf:"xmlwire"`
	Scanner    ScannerConfig    `koanf:"scanner"`
	Processors ProcessorsConfig `koanf:"processors"`
	Logging    LoggingConfig    `koanf:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	DataDir    string           `koanf:"data_dir"`
}

// EngineConfig holds the engine timing settings. Load validates
// TickInterval; the tick loop itself takes its frame period from the
// first channel's frame rate (see cmd/tarantulad), not from these fields.
type EngineConfig struct {
	TickInterval   time.Duration `koanf:"tick_interval"`
	MutexTimeout   time.Duration `koanf:"mutex_timeout"`
	SnapshotPeriod time.Duration `koanf:"snapshot_period"`
}

// ChannelConfig names one playout channel and the frame rate its
// playlist store's frame-duration rows are expressed at.
type ChannelConfig struct {
	Name      string  `koanf:"name"`
	FrameRate float64 `koanf:"frame_rate"`

	// RouterDevice/RouterOutput name the crosspoint device and output
	// port the manual-hold-release pre-processor switches this channel
	// onto when a hold is released.
	RouterDevice string `koanf:"router_device"`
	RouterOutput string `koanf:"router_output"`
}

// DeviceConfig is one configured device: which family dispatcher to
// instantiate and its config file path (handed to the family
// constructor, which is responsible for interpreting it against its
// own Transport implementation).
type DeviceConfig struct {
	Name       string `koanf:"name"`
	Family     string `koanf:"family"` // "video", "graphics", "crosspoint"
	Channel    string `koanf:"channel"`
	ConfigPath string `koanf:"config_path"`
	PollPeriod int     `koanf:"poll_period"`
	FrameRate  float64 `koanf:"frame_rate"` // video family only

	// Ports is the crosspoint family's wire-name -> port-number table,
	// split into inputs and outputs.
	Ports CrosspointPorts `koanf:"ports"`
}

// CrosspointPorts names a crosspoint device's input and output wires.
type CrosspointPorts struct {
	Inputs  map[string]Port `koanf:"inputs"`
	Outputs map[string]Port `koanf:"outputs"`
}

// Port is a physical video+audio port pair on a router.
type Port struct {
	Video int `koanf:"video"`
	Audio int `koanf:"audio"`
}

// PluginConfig parameterizes the Plugin Supervisor's crash-credit
// backoff algorithm.
type PluginConfig struct {
	CooldownSeq     []int `koanf:"cooldown_seq"`
	MaxCredits      int   `koanf:"max_credits"`
	StabiliseTicks  int   `koanf:"stabilise_ticks"`
}

// HTTPConfig is the HTTP source adapter's listener and CORS policy.
type HTTPConfig struct {
	Addr           string   `koanf:"addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// XMLWireConfig is the raw TCP/XML source adapter's listener.
type XMLWireConfig struct {
	Addr string `koanf:"addr"`
}

// ScannerConfig controls the media directory crawler.
type ScannerConfig struct {
	Root          string        `koanf:"root"`
	FrameRate     float64       `koanf:"frame_rate"`
	RescanPeriod  time.Duration `koanf:"rescan_period"`
	ScanInterval  time.Duration `koanf:"scan_interval"`
}

// ProcessorsConfig configures the Event Processors registry: every
// entry here becomes one named processor a source adapter can target
// by device name, per spec §4.8.
type ProcessorsConfig struct {
	Fillers      []FillerConfig      `koanf:"fillers"`
	Shows        []ShowConfig        `koanf:"shows"`
	GraphicPairs []GraphicPairConfig `koanf:"graphic_pairs"`
	LiveShows    []LiveShowConfig    `koanf:"live_shows"`
}

// FillSlotConfig is one step of a filler's configured device/type walk,
// plus the catalogue-path prefix that identifies which scanned files
// belong to this slot when the catalogue refresh job rebuilds candidates.
type FillSlotConfig struct {
	Type         string `koanf:"type"`
	Device       string `koanf:"device"`
	DeviceFamily string `koanf:"device_family"`
	PathPrefix   string `koanf:"path_prefix"`
}

// ScoreBracketConfig mirrors processor.ScoreBracket.
type ScoreBracketConfig struct {
	MinSeconds float64 `koanf:"min_seconds"`
	MaxSeconds float64 `koanf:"max_seconds"`
	Weight     float64 `koanf:"weight"`
}

// FillerConfig configures one Schedule Filler processor: its candidate
// slots, scoring brackets and continuity-padding target, plus how often
// its catalogue is rebuilt from the media scanner.
type FillerConfig struct {
	Name                 string               `koanf:"name"`
	Slots                []FillSlotConfig     `koanf:"slots"`
	Brackets             []ScoreBracketConfig `koanf:"brackets"`
	FileWeightScale      float64              `koanf:"file_weight_scale"`
	ResidualFromLastSlot bool                 `koanf:"residual_from_last_slot"`
	PaddingDevice        string               `koanf:"padding_device"`
	PaddingHostLayer     string               `koanf:"padding_host_layer"`
	PaddingGraphic       string               `koanf:"padding_graphic"`
	RefreshInterval      time.Duration        `koanf:"refresh_interval"`
}

// NowNextProcessorConfig mirrors processor.NowNextConfig.
type NowNextProcessorConfig struct {
	ThresholdSeconds float64 `koanf:"threshold_seconds"`
	PeriodSeconds    float64 `koanf:"period_seconds"`
	Device           string  `koanf:"device"`
	HostLayer        string  `koanf:"host_layer"`
	Graphic          string  `koanf:"graphic"`
}

// ShowConfig configures one Show processor. Filler, if set, names a
// FillerConfig.Name entry whose Filler supplies the leading continuity
// fill; left empty, Show emits no leading fill child.
type ShowConfig struct {
	Name        string                 `koanf:"name"`
	VideoDevice string                 `koanf:"video_device"`
	FrameRate   float64                `koanf:"frame_rate"`
	Filler      string                 `koanf:"filler"`
	FillSeconds float64                `koanf:"fill_seconds"`
	NowNext     NowNextProcessorConfig `koanf:"now_next"`
}

// GraphicPairConfig configures one GraphicPair processor.
type GraphicPairConfig struct {
	Name   string `koanf:"name"`
	Device string `koanf:"device"`
}

// LiveShowConfig configures one LiveShow processor.
type LiveShowConfig struct {
	Name          string `koanf:"name"`
	SwitchChannel string `koanf:"switch_channel"`
	VTDevice      string `koanf:"vt_device"`
	VTFile        string `koanf:"vt_file"`
}

// LoggingConfig matches internal/logging's expectations.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Validate checks invariants that are cheap to verify up-front instead
// of failing deep inside the engine on first tick.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("config: at least one channel is required")
	}
	seen := make(map[string]bool)
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("config: channel with empty name")
		}
		if seen[ch.Name] {
			return fmt.Errorf("config: duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = true
		if ch.FrameRate <= 0 {
			return fmt.Errorf("config: channel %q frame_rate must be positive", ch.Name)
		}
	}
	devNames := make(map[string]bool)
	for _, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("config: device with empty name")
		}
		if devNames[d.Name] {
			return fmt.Errorf("config: duplicate device name %q", d.Name)
		}
		devNames[d.Name] = true
		switch d.Family {
		case "video", "graphics", "crosspoint":
		default:
			return fmt.Errorf("config: device %q has unknown family %q", d.Name, d.Family)
		}
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("config: engine.tick_interval must be positive")
	}
	if c.Plugin.MaxCredits < 0 {
		return fmt.Errorf("config: plugin.max_credits must be >= 0")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	procNames := make(map[string]bool)
	checkProcName := func(name string) error {
		if name == "" {
			return fmt.Errorf("config: processor with empty name")
		}
		if procNames[name] {
			return fmt.Errorf("config: duplicate processor name %q", name)
		}
		procNames[name] = true
		return nil
	}
	for _, f := range c.Processors.Fillers {
		if err := checkProcName(f.Name); err != nil {
			return err
		}
	}
	for _, s := range c.Processors.Shows {
		if err := checkProcName(s.Name); err != nil {
			return err
		}
	}
	for _, g := range c.Processors.GraphicPairs {
		if err := checkProcName(g.Name); err != nil {
			return err
		}
	}
	for _, l := range c.Processors.LiveShows {
		if err := checkProcName(l.Name); err != nil {
			return err
		}
	}
	return nil
}
