// Package main is the entry point for terrasim, a headless terrain
// streaming simulator: it loads a map from config, flies a camera over
// it, and reports paging activity every second.
package main

import (
	"flag"
	"fmt"
	stdmath "math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/config"
	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/engine/scene"
	"github.com/openglobe3d/strata/internal/engine/terrain"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/layer"
	"github.com/openglobe3d/strata/internal/logger"
	"github.com/openglobe3d/strata/pkg/geo"
	"github.com/openglobe3d/strata/pkg/math"
)

var (
	flagDuration    = flag.Duration("duration", 30*time.Second, "how long to fly (0 = until interrupted)")
	flagFPS         = flag.Int("fps", 30, "simulated frame rate")
	flagOrbit       = flag.Float64("orbit", 60, "orbit period in seconds")
	flagWriteConfig = flag.String("write-config", "", "write the effective config to this path and exit (\"user\" writes to the user config directory)")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *flagWriteConfig != "" {
		if err := writeConfig(cfg, *flagWriteConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	m, err := buildMap(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	settings := terrain.SettingsFromConfig(cfg.Terrain, cfg.Jobs)
	sched := jobs.NewScheduler(settings.Concurrency)
	defer sched.Close()

	node, err := terrain.NewTerrainNode(m, settings, sched, nil)
	if err != nil {
		return err
	}
	defer node.Shutdown()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	clock := &scene.ManualClock{}
	frameTime := time.Second / time.Duration(*flagFPS)
	start := time.Now()
	lastReport := start

	logger.Info("flight started",
		zap.Duration("duration", *flagDuration),
		zap.Int("fps", *flagFPS))

	visible := 0
	for {
		select {
		case <-sig:
			logger.Info("interrupted")
			return nil
		default:
		}
		elapsed := time.Since(start)
		if *flagDuration > 0 && elapsed > *flagDuration {
			break
		}

		stamp := clock.Tick()
		camera := orbitCamera(m.Profile(), elapsed.Seconds())

		visible = 0
		node.Traverse(camera, stamp, func(*terrain.TileNode) { visible++ })
		node.Update(stamp)

		if time.Since(lastReport) >= time.Second {
			lastReport = time.Now()
			stats := node.Registry().Stats()
			jm := sched.Metrics()
			logger.Info("frame report",
				zap.Uint64("frame", stamp.Frame),
				zap.Int("visible", visible),
				zap.Int("resident", stats.Tracked),
				zap.Uint64("created", stats.Created),
				zap.Uint64("disposed", stats.Disposed),
				zap.Int("jobs_pending", jm.Pending),
				zap.Int("jobs_running", jm.Running))
		}
		time.Sleep(frameTime)
	}

	stats := node.Registry().Stats()
	logger.Info("flight finished",
		zap.Int("visible", visible),
		zap.Int("resident", stats.Tracked),
		zap.Uint64("tiles_created", stats.Created),
		zap.Uint64("tiles_disposed", stats.Disposed))
	return nil
}

// writeConfig persists the effective config, defaults merged with file
// and flag overrides, so a flag-tuned run can be made the new baseline.
func writeConfig(cfg *config.Config, dest string) error {
	if dest == "user" {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println("Wrote user config")
		return nil
	}
	if err := cfg.SaveTo(dest); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", dest)
	return nil
}

// buildMap assembles the map from the configured sources.
func buildMap(cfg *config.Config) (*gis.Map, error) {
	var profile *geo.Profile
	switch cfg.Terrain.Profile {
	case "", "global-geodetic":
		profile = geo.GlobalGeodetic()
	case "spherical-mercator":
		profile = geo.SphericalMercator()
	default:
		return nil, fmt.Errorf("unknown profile %q", cfg.Terrain.Profile)
	}

	m := gis.NewMap(profile)
	for _, src := range cfg.Sources {
		l, err := layer.FromConfig(src, cfg.Network, cfg.Terrain)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
		m.AddLayer(l)
	}
	return m, nil
}

// orbitCamera flies a slow circle around mid-extent, swinging close to
// the surface and back out so both paging directions get exercised.
func orbitCamera(p *geo.Profile, seconds float64) math.Vec3 {
	cx := (p.Extent.Min[0] + p.Extent.Max[0]) / 2
	cy := (p.Extent.Min[1] + p.Extent.Max[1]) / 2
	w := p.Extent.Max[0] - p.Extent.Min[0]

	angle := 2 * stdmath.Pi * seconds / *flagOrbit
	radius := w / 8 * (1 + 0.8*stdmath.Sin(angle/3))
	return math.Vec3{
		X: float32(cx + radius*stdmath.Cos(angle)),
		Y: float32(cy + radius*stdmath.Sin(angle)),
	}
}
