// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{TickInterval: 40e6},
		Channels: []config.ChannelConfig{
			{Name: "C1", FrameRate: 25},
		},
		Devices: []config.DeviceConfig{
			{Name: "VID1", Family: "video"},
		},
		DataDir: "/tmp/tarantula",
	}
}

func TestValidateRequiresChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Channels = nil
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicateChannelName(t *testing.T) {
	cfg := validConfig()
	cfg.Channels = append(cfg.Channels, config.ChannelConfig{Name: "C1", FrameRate: 25})
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDeviceFamily(t *testing.T) {
	cfg := validConfig()
	cfg.Devices[0].Family = "teleprompter"
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsDuplicateProcessorName(t *testing.T) {
	cfg := validConfig()
	cfg.Processors.Fillers = []config.FillerConfig{{Name: "FILL"}}
	cfg.Processors.GraphicPairs = []config.GraphicPairConfig{{Name: "FILL", Device: "CG1"}}
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsConfiguredProcessors(t *testing.T) {
	cfg := validConfig()
	cfg.Processors.Fillers = []config.FillerConfig{{Name: "FILL"}}
	cfg.Processors.Shows = []config.ShowConfig{{Name: "SHOW", VideoDevice: "VID1", Filler: "FILL"}}
	require.NoError(t, cfg.Validate())
}
