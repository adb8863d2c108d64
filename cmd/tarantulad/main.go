// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Command tarantulad runs the playout engine: it loads configuration,
// opens each channel's playlist store and the media scanner's
// catalogue, constructs the configured devices and channels, and
// starts the tick engine and every source adapter under a supervisor
// tree.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/asyncjob"
	"github.com/broadcastauto/tarantula/internal/channelrunner"
	"github.com/broadcastauto/tarantula/internal/config"
	"github.com/broadcastauto/tarantula/internal/device/crosspoint"
	"github.com/broadcastauto/tarantula/internal/device/graphics"
	"github.com/broadcastauto/tarantula/internal/device/video"
	"github.com/broadcastauto/tarantula/internal/engine"
	"github.com/broadcastauto/tarantula/internal/enginelock"
	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/mousecatcher"
	"github.com/broadcastauto/tarantula/internal/playlist"
	"github.com/broadcastauto/tarantula/internal/plugin"
	"github.com/broadcastauto/tarantula/internal/processor"
	"github.com/broadcastauto/tarantula/internal/registry"
	"github.com/broadcastauto/tarantula/internal/scanner"
	"github.com/broadcastauto/tarantula/internal/source/httpapi"
	"github.com/broadcastauto/tarantula/internal/source/xmlwire"
	"github.com/broadcastauto/tarantula/internal/supervisor"
	"github.com/broadcastauto/tarantula/internal/supervisor/services"
	"github.com/broadcastauto/tarantula/internal/transport/simulated"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	log := logging.WithComponent("tarantulad")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("tarantulad exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	devices := registry.NewDevices()
	processors := registry.NewProcessors()
	channels := channelrunner.NewChannels()
	sup := plugin.New(cfg.Plugin.CooldownSeq, cfg.Plugin.MaxCredits, cfg.Plugin.StabiliseTicks)

	var sc *scanner.Scanner
	if cfg.Scanner.Root != "" {
		var err error
		sc, err = scanner.Open(filepath.Join(cfg.DataDir, "scanner"), cfg.Scanner.Root, cfg.Scanner.FrameRate, &scanner.FfprobeProber{}, cfg.Scanner.RescanPeriod)
		if err != nil {
			return fmt.Errorf("open scanner: %w", err)
		}
		defer sc.Close()
	}

	for _, dc := range cfg.Devices {
		d, err := buildDevice(dc, sc)
		if err != nil {
			return fmt.Errorf("device %s: %w", dc.Name, err)
		}
		devices.Put(d)
		sup.Register(d, buildReload(dc, sc))
	}

	var stores []*playlist.Store
	for _, cc := range cfg.Channels {
		store, err := playlist.Open(filepath.Join(cfg.DataDir, "playlists"), cc.Name)
		if err != nil {
			return fmt.Errorf("open playlist store for %s: %w", cc.Name, err)
		}
		stores = append(stores, store)

		// Pre-processors are bound to one specific *Channel (manual-hold
		// release needs the channel's own store and router binding), so
		// each channel gets its own registry rather than sharing one
		// across channels.
		chPreProcessors := registry.NewPreProcessors()
		ch := channelrunner.New(cc.Name, cc.FrameRate, store, devices, chPreProcessors)
		ch.RouterDevice = cc.RouterDevice
		ch.RouterOutput = cc.RouterOutput
		chPreProcessors.Put("manual-hold-release", channelrunner.ManualHoldRelease(ch))
		chPreProcessors.Put("populate-now-next", processor.PopulateNowNext(ch))
		channels.Put(ch)
	}
	defer func() {
		for _, store := range stores {
			store.Close()
		}
	}()

	fillers, fillerCloser, err := buildFillers(cfg, sc)
	if err != nil {
		return err
	}
	defer fillerCloser()
	for _, f := range fillers {
		processors.Put(f)
	}
	buildShows(cfg, processors, fillers)
	buildGraphicPairs(cfg, processors)
	buildLiveShows(cfg, processors)

	lock := enginelock.New()
	jobs := asyncjob.New(lock)
	core := mousecatcher.New(channels, devices, processors, sc)

	xmlAdapter, err := xmlwire.Listen("xmlwire", cfg.XMLWire.Addr)
	if err != nil {
		return fmt.Errorf("start xmlwire adapter: %w", err)
	}
	core.RegisterSource(xmlAdapter)

	primaryChannel := ""
	if len(cfg.Channels) > 0 {
		primaryChannel = cfg.Channels[0].Name
	}
	httpAdapter := httpapi.New("web", primaryChannel, cfg.HTTP.Addr)
	core.RegisterSource(httpAdapter)

	eng := engine.New(firstFrameRate(cfg), lock, channels, devices, sup, jobs, core)

	tree, err := supervisor.NewSupervisorTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("build supervisor tree: %w", err)
	}

	tree.AddJobsService(services.NewJobSystemService(jobs))
	tree.AddSourceService(services.NewXMLWireService(xmlAdapter))
	tree.AddSourceService(httpAdapter)
	tree.AddSourceService(eng)

	if sc != nil {
		tree.AddJobsService(newScanLoop(sc, cfg.Scanner.ScanInterval))
		for _, fc := range cfg.Processors.Fillers {
			f, ok := fillers[fc.Name]
			if !ok {
				continue
			}
			tree.AddJobsService(newFillerRefreshLoop(f, fc, sc, cfg.Scanner.FrameRate))
		}
	}

	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
	tree.AddAPIService(services.NewHTTPServerService(metricsSrv, 5*time.Second))

	log.Info().
		Str("http_addr", cfg.HTTP.Addr).
		Str("xmlwire_addr", cfg.XMLWire.Addr).
		Str("metrics_addr", cfg.Metrics.Addr).
		Int("channels", len(cfg.Channels)).
		Int("devices", len(cfg.Devices)).
		Msg("tarantulad starting")

	return tree.Serve(ctx)
}

func firstFrameRate(cfg *config.Config) float64 {
	if len(cfg.Channels) == 0 {
		return 25
	}
	return cfg.Channels[0].FrameRate
}

func buildDevice(dc config.DeviceConfig, sc *scanner.Scanner) (model.Device, error) {
	switch dc.Family {
	case "video":
		frameRate := dc.FrameRate
		if frameRate <= 0 {
			frameRate = 25
		}
		return video.New(dc.Name, simulated.NewVideo(dc.Name), scannerCatalogue{sc: sc}, dc.PollPeriod, dc.ConfigPath, frameRate), nil
	case "graphics":
		return graphics.New(dc.Name, simulated.NewGraphics(dc.Name), dc.PollPeriod, dc.ConfigPath), nil
	case "crosspoint":
		inputs := make(map[string]crosspoint.Port, len(dc.Ports.Inputs))
		for name, p := range dc.Ports.Inputs {
			inputs[name] = crosspoint.Port{Video: p.Video, Audio: p.Audio}
		}
		outputs := make(map[string]crosspoint.Port, len(dc.Ports.Outputs))
		for name, p := range dc.Ports.Outputs {
			outputs[name] = crosspoint.Port{Video: p.Video, Audio: p.Audio}
		}
		return crosspoint.New(dc.Name, simulated.NewCrosspoint(dc.Name), inputs, outputs, dc.PollPeriod, dc.ConfigPath), nil
	default:
		return nil, fmt.Errorf("unknown device family %q", dc.Family)
	}
}

// buildReload gives the plugin supervisor a way to re-instantiate a
// crashed device from its saved config, mirroring the device it
// replaces exactly (same transport, same catalogue).
func buildReload(dc config.DeviceConfig, sc *scanner.Scanner) plugin.ReloadFunc {
	return func(configPath string) (model.Device, error) {
		reloaded := dc
		reloaded.ConfigPath = configPath
		return buildDevice(reloaded, sc)
	}
}

// scannerCatalogue adapts *scanner.Scanner to video.Catalogue.
type scannerCatalogue struct {
	sc *scanner.Scanner
}

func (c scannerCatalogue) Lookup(name string) (video.CatalogueEntry, bool) {
	if c.sc == nil {
		return video.CatalogueEntry{}, false
	}
	r, ok := c.sc.Get(name)
	if !ok || r.Gone {
		return video.CatalogueEntry{}, false
	}
	return video.CatalogueEntry{
		Path:           r.Filename,
		DurationFrames: int(r.DurationFr),
		SizeBytes:      r.Size,
	}, true
}

// scanLoop periodically walks the scanner's media root as a supervised
// service, independent of the tick loop since a filesystem crawl can
// take far longer than one frame.
type scanLoop struct {
	sc       *scanner.Scanner
	interval time.Duration
}

func newScanLoop(sc *scanner.Scanner, interval time.Duration) *scanLoop {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &scanLoop{sc: sc, interval: interval}
}

func (s *scanLoop) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sc.Walk(ctx); err != nil {
				logging.WithComponent("scanloop").Warn().Err(err).Msg("scan walk failed")
			}
		}
	}
}

func (s *scanLoop) String() string { return "scanner-walk" }

// buildFillers opens one Filler per configured FillerConfig and returns
// it keyed by name, plus a closer that closes every opened filler's
// catalogue database regardless of where construction failed.
func buildFillers(cfg *config.Config, sc *scanner.Scanner) (map[string]*processor.Filler, func(), error) {
	fillers := make(map[string]*processor.Filler, len(cfg.Processors.Fillers))
	closer := func() {
		for _, f := range fillers {
			f.Close()
		}
	}
	for _, fc := range cfg.Processors.Fillers {
		if len(fc.Brackets) == 0 {
			closer()
			return nil, func() {}, fmt.Errorf("filler %s: bracket table must not be empty", fc.Name)
		}
		f, err := processor.OpenFiller(filepath.Join(cfg.DataDir, "fillers", fc.Name), fc.Name)
		if err != nil {
			closer()
			return nil, func() {}, fmt.Errorf("open filler %s: %w", fc.Name, err)
		}
		f.Slots = make([]processor.FillSlot, len(fc.Slots))
		for i, sl := range fc.Slots {
			f.Slots[i] = processor.FillSlot{
				Type:         sl.Type,
				Device:       sl.Device,
				DeviceFamily: deviceFamilyFromString(sl.DeviceFamily),
				PathPrefix:   sl.PathPrefix,
			}
		}
		f.Brackets = make([]processor.ScoreBracket, len(fc.Brackets))
		for i, b := range fc.Brackets {
			f.Brackets[i] = processor.ScoreBracket{MinSeconds: b.MinSeconds, MaxSeconds: b.MaxSeconds, Weight: b.Weight}
		}
		f.FileWeightScale = fc.FileWeightScale
		f.ResidualFromLastSlot = fc.ResidualFromLastSlot
		f.PaddingDevice = fc.PaddingDevice
		f.PaddingHostLayer = fc.PaddingHostLayer
		f.PaddingGraphic = fc.PaddingGraphic

		if sc != nil {
			if err := refreshFillerCatalogue(f, fc, sc, cfg.Scanner.FrameRate); err != nil {
				logging.WithComponent("filler").Warn().Err(err).Str("filler", fc.Name).Msg("initial catalogue refresh failed")
			}
		}
		fillers[fc.Name] = f
	}
	return fillers, closer, nil
}

func deviceFamilyFromString(s string) model.DeviceFamily {
	switch s {
	case "video":
		return model.FamilyVideo
	case "graphics":
		return model.FamilyGraphics
	case "crosspoint":
		return model.FamilyCrosspoint
	default:
		return model.FamilyVideo
	}
}

func buildShows(cfg *config.Config, processors *registry.Processors, fillers map[string]*processor.Filler) {
	for _, shc := range cfg.Processors.Shows {
		show := processor.NewShow(shc.Name, shc.VideoDevice, shc.FrameRate)
		show.Filler = fillers[shc.Filler]
		show.FillSeconds = shc.FillSeconds
		show.NowNext = processor.NowNextConfig{
			ThresholdSeconds: shc.NowNext.ThresholdSeconds,
			PeriodSeconds:    shc.NowNext.PeriodSeconds,
			Device:           shc.NowNext.Device,
			HostLayer:        shc.NowNext.HostLayer,
			Graphic:          shc.NowNext.Graphic,
		}
		processors.Put(show)
	}
}

func buildGraphicPairs(cfg *config.Config, processors *registry.Processors) {
	for _, gc := range cfg.Processors.GraphicPairs {
		processors.Put(processor.NewGraphicPair(gc.Name, gc.Device))
	}
}

func buildLiveShows(cfg *config.Config, processors *registry.Processors) {
	for _, lc := range cfg.Processors.LiveShows {
		processors.Put(processor.NewLiveShow(lc.Name, lc.SwitchChannel, processor.LiveShowConfig{
			VTDevice: lc.VTDevice,
			VTFile:   lc.VTFile,
		}))
	}
}

// fillerRefreshLoop periodically rebuilds a Filler's candidate
// catalogue from the media scanner's current file listing, running as
// a supervised service independent of the tick loop for the same
// reason scanLoop does: a full catalogue rebuild is too expensive to
// run on the tick thread or synchronously inside Handle.
type fillerRefreshLoop struct {
	f         *processor.Filler
	fc        config.FillerConfig
	sc        *scanner.Scanner
	frameRate float64
	interval  time.Duration
}

func newFillerRefreshLoop(f *processor.Filler, fc config.FillerConfig, sc *scanner.Scanner, frameRate float64) *fillerRefreshLoop {
	interval := fc.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &fillerRefreshLoop{f: f, fc: fc, sc: sc, frameRate: frameRate, interval: interval}
}

func (l *fillerRefreshLoop) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := refreshFillerCatalogue(l.f, l.fc, l.sc, l.frameRate); err != nil {
				logging.WithComponent("filler").Warn().Err(err).Str("filler", l.fc.Name).Msg("catalogue refresh failed")
			}
		}
	}
}

func (l *fillerRefreshLoop) String() string { return "filler-refresh:" + l.fc.Name }

// refreshFillerCatalogue reads the scanner's current file listing and
// replaces f's candidate catalogue with whatever matches its slots'
// configured path prefixes.
func refreshFillerCatalogue(f *processor.Filler, fc config.FillerConfig, sc *scanner.Scanner, frameRate float64) error {
	records, err := sc.All()
	if err != nil {
		return fmt.Errorf("list scanner catalogue: %w", err)
	}
	files := make([]processor.CatalogueFile, len(records))
	for i, r := range records {
		files[i] = processor.CatalogueFile{Filename: r.Filename, DurationFrames: r.DurationFr, Gone: r.Gone}
	}
	return f.ReplaceCatalogue(f.BuildCandidates(files, frameRate))
}
