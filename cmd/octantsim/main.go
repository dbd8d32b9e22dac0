package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/akmonengine/octant"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

// The octantsim version number. Set at build.
var version = "v0.1.0"

// Keeps the config keys readable when the binary is obfuscated.
var _ = reflect.TypeOf(config{})

type config struct {
	SceneFile            string        `cli:""        env:"OCTANT_SCENE_FILE"             help:"YAML scene description. A generated scene is used when empty."`
	Boundary             int           `cli:""        env:"OCTANT_BOUNDARY"               help:"Half width of the world cube, when the scene file does not set it."`
	Ticks                int           `cli:""        env:"OCTANT_TICKS"                  help:"Number of ticks to simulate. 0 runs until interrupted."`
	TickDuration         time.Duration `cli:""        env:"OCTANT_TICK_DURATION"          help:"Simulated duration of a tick."`
	Realtime             bool          `cli:""        env:"OCTANT_REALTIME"               help:"Wait for the tick duration between ticks."`
	Workers              int           `cli:""        env:"OCTANT_WORKERS"                help:"Number of goroutines used by integration and clipping."`
	MaxElementsPerSector int           `cli:",hidden" env:"OCTANT_MAX_ELEMENTS_PER_SECTOR" help:"Elements a leaf holds before it subdivides."`
	MaxDepth             int           `cli:",hidden" env:"OCTANT_MAX_DEPTH"              help:"Maximum depth of the octrees."`
	StatsInterval        int           `cli:""        env:"OCTANT_STATS_INTERVAL"         help:"Number of ticks between two statistics logs."`
	MetricsAddr          string        `cli:""        env:"OCTANT_METRICS_ADDR"           help:"Listening address of the prometheus metrics. Disabled when empty."`
	LogLevel             string        `cli:""        env:"OCTANT_LOG_LEVEL"              help:"Log level (debug|info|warning|error)."`
	LogIndent            bool          `cli:""        env:"OCTANT_LOG_INDENT"             help:"Indent logs."`
	Version              bool          `cli:""        env:"-"                             help:"Show version."`
	Help                 bool          `cli:""        env:"-"                             help:"Show help."`
}

// summary is printed on exit
type summary struct {
	Ticks   uint64             `json:"ticks"`
	Elapsed string             `json:"elapsed"`
	Sweep   octant.SweepStats  `json:"sweep"`
	Physics *octant.IndexStats `json:"physics,omitempty"`
	Render  *octant.IndexStats `json:"render,omitempty"`
}

func main() {
	conf := config{
		Boundary:             100,
		Ticks:                600,
		TickDuration:         time.Second / 60,
		Workers:              4,
		MaxElementsPerSector: octant.DefaultMaxElementsPerSector,
		MaxDepth:             octant.DefaultMaxDepth,
		StatsInterval:        60,
		LogLevel:             logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Runs an octree broad phase simulation.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	desc := defaultDescription(float64(conf.Boundary))
	if conf.SceneFile != "" {
		var err error
		if desc, err = loadDescription(conf.SceneFile); err != nil {
			logs.Fatal(err)
		}
	}
	if desc.Boundary == 0 {
		desc.Boundary = float64(conf.Boundary)
	}

	scene, err := desc.build(sceneConfig(conf, desc.Boundary))
	if err != nil {
		logs.Fatal(errors.New("building scene failed").Wrap(err))
	}

	if conf.MetricsAddr != "" {
		go serveMetrics(ctx, conf.MetricsAddr)
	}

	logs.WithTag("version", version).
		WithTag("entities", len(scene.Entities)).
		WithTag("boundary", desc.Boundary).
		Info("starting simulation")

	start := time.Now()
	run(ctx, scene, conf)

	out := summary{
		Ticks:   scene.Tick(),
		Elapsed: time.Since(start).String(),
		Sweep:   scene.Totals(),
	}
	if idx := scene.Physics(); idx != nil {
		stats := idx.Stats()
		out.Physics = &stats
	}
	if idx := scene.Render(); idx != nil {
		stats := idx.Stats()
		out.Render = &stats
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logs.Fatal(errors.New("encoding summary failed").Wrap(err))
	}
	fmt.Println(string(b))
}

func validateConfig(conf config) error {
	if conf.Boundary <= 0 {
		return errors.New("boundary must be positive").WithTag("boundary", conf.Boundary)
	}
	if conf.TickDuration <= 0 {
		return errors.New("tick duration must be positive").WithTag("tick_duration", conf.TickDuration)
	}
	if conf.Ticks < 0 {
		return errors.New("ticks cannot be negative").WithTag("ticks", conf.Ticks)
	}
	return nil
}

func sceneConfig(conf config, boundary float64) octant.SceneConfig {
	sc := octant.DefaultSceneConfig(boundary)
	sc.Workers = conf.Workers

	for _, ic := range []*octant.IndexConfig{&sc.Physics, &sc.Render} {
		ic.MaxElementsPerSector = conf.MaxElementsPerSector
		ic.MaxDepth = conf.MaxDepth
	}
	return sc
}

func run(ctx context.Context, scene *octant.Scene, conf config) {
	dt := conf.TickDuration.Seconds()

	var ticker *time.Ticker
	if conf.Realtime {
		ticker = time.NewTicker(conf.TickDuration)
		defer ticker.Stop()
	}

	for conf.Ticks == 0 || scene.Tick() < uint64(conf.Ticks) {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		stats := scene.Step(dt)
		if conf.StatsInterval > 0 && stats.Tick%uint64(conf.StatsInterval) == 0 {
			logs.WithTag("tick", stats.Tick).
				WithTag("moved", stats.Moved).
				WithTag("clipped", stats.Clipped).
				WithTag("resolved", stats.Resolved).
				WithTag("pairs", stats.Sweep.Pairs).
				WithTag("tests", stats.Sweep.Tests).
				WithTag("collisions", stats.Sweep.Collisions).
				Info("tick")
		}
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logs.Warn(errors.New("shutting down the metrics server failed").Wrap(err))
		}
	}()

	logs.WithTag("addr", addr).Info("serving metrics")
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logs.Warn(errors.New("metrics server stopped").Wrap(err))
	}
}
