package handler

import (
	"fmt"
	"os"
	"time"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/Adarsh-Kmt/FairGroupMutex/worker"
	"github.com/gookit/ini/v2"
	"github.com/pkg/errors"
)

// SimulationConfig parameterizes the worker population and the status surface. None of it reaches the controller's contract.
type SimulationConfig struct {
	GroupWorkers [2]int // indexed by types.Group.Index()

	// Iterations per worker, 0 runs until interrupted.
	Iterations int
	// Seed for the think/use schedules, 0 picks a time-based seed.
	Seed        int64
	InitialTurn types.Group

	Think worker.Range
	Use   worker.Range

	Console bool

	// StatusAddr is host:port of the status API, empty disables it.
	StatusAddr string
	JWTSecret  string

	// TraceFile receives worker cycle spans, empty disables tracing.
	TraceFile string
}

// DefaultSimulationConfig mirrors the classic setup: five workers per side, 100-500ms think, 200-600ms use.
func DefaultSimulationConfig() SimulationConfig {

	return SimulationConfig{
		GroupWorkers: [2]int{5, 5},
		InitialTurn:  types.GroupA,
		Think:        worker.Range{Min: 100 * time.Millisecond, Max: 500 * time.Millisecond},
		Use:          worker.Range{Min: 200 * time.Millisecond, Max: 600 * time.Millisecond},
		Console:      true,
	}
}

/*
LoadSimulationConfig reads an ini file with [simulation], [status] and [tracing] sections.
Values may reference environment variables as ${NAME|default}. A missing file is reported as fs.ErrNotExist.
*/
func LoadSimulationConfig(cfgFilePath string) (SimulationConfig, error) {

	if _, err := os.Stat(cfgFilePath); err != nil {
		return SimulationConfig{}, errors.Wrapf(err, "config file %s", cfgFilePath)
	}

	cfg := ini.NewWithOptions(ini.ParseEnv)

	if err := cfg.LoadFiles(cfgFilePath); err != nil {
		return SimulationConfig{}, errors.Wrapf(err, "loading config %s", cfgFilePath)
	}

	sc, err := parseSimulationConfig(cfg)
	return sc, errors.Wrapf(err, "config %s", cfgFilePath)
}

func ParseSimulationConfig(data string) (SimulationConfig, error) {

	cfg := ini.NewWithOptions(ini.ParseEnv)

	if err := cfg.LoadStrings(data); err != nil {
		return SimulationConfig{}, errors.Wrap(err, "parsing config")
	}

	return parseSimulationConfig(cfg)
}

func parseSimulationConfig(cfg *ini.Ini) (SimulationConfig, error) {

	sc := DefaultSimulationConfig()

	sc.GroupWorkers[types.GroupA.Index()] = cfg.Int("simulation.group_a_workers", sc.GroupWorkers[0])
	sc.GroupWorkers[types.GroupB.Index()] = cfg.Int("simulation.group_b_workers", sc.GroupWorkers[1])
	sc.Iterations = cfg.Int("simulation.iterations", 0)
	sc.Seed = int64(cfg.Int("simulation.seed", 0))
	sc.Console = cfg.Bool("simulation.console", sc.Console)

	if turn := cfg.String("simulation.initial_turn"); turn != "" {
		g, err := types.ParseGroup(turn)
		if err != nil {
			return sc, errors.Wrap(err, "simulation.initial_turn")
		}
		sc.InitialTurn = g
	}

	sc.Think = worker.Range{
		Min: millis(cfg.Int("simulation.think_min_ms", int(sc.Think.Min/time.Millisecond))),
		Max: millis(cfg.Int("simulation.think_max_ms", int(sc.Think.Max/time.Millisecond))),
	}
	sc.Use = worker.Range{
		Min: millis(cfg.Int("simulation.use_min_ms", int(sc.Use.Min/time.Millisecond))),
		Max: millis(cfg.Int("simulation.use_max_ms", int(sc.Use.Max/time.Millisecond))),
	}

	if port := cfg.String("status.port"); port != "" {
		sc.StatusAddr = cfg.String("status.host", "localhost") + ":" + port
	}
	sc.JWTSecret = cfg.String("status.jwt_secret")
	sc.TraceFile = cfg.String("tracing.output_file")

	return sc, sc.Validate()
}

func (sc SimulationConfig) Validate() error {

	for _, g := range types.Groups {
		if sc.GroupWorkers[g.Index()] < 0 {
			return fmt.Errorf("group %s worker count cannot be negative", g)
		}
	}
	if sc.GroupWorkers[0]+sc.GroupWorkers[1] == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	if sc.Iterations < 0 {
		return fmt.Errorf("simulation.iterations cannot be negative")
	}
	if sc.Think.Min < 0 || sc.Think.Max < sc.Think.Min {
		return fmt.Errorf("invalid think time range %s-%s", sc.Think.Min, sc.Think.Max)
	}
	if sc.Use.Min < 0 || sc.Use.Max < sc.Use.Min {
		return fmt.Errorf("invalid use time range %s-%s", sc.Use.Min, sc.Use.Max)
	}
	if !sc.InitialTurn.Valid() {
		return fmt.Errorf("invalid initial turn %s", sc.InitialTurn)
	}

	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
