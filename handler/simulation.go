package handler

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Adarsh-Kmt/FairGroupMutex/controller"
	"github.com/Adarsh-Kmt/FairGroupMutex/groupmutex"
	"github.com/Adarsh-Kmt/FairGroupMutex/server"
	"github.com/Adarsh-Kmt/FairGroupMutex/tracing"
	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/Adarsh-Kmt/FairGroupMutex/worker"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

/*
Simulation owns one fair group mutex and the workers of both groups driving it.
The controller is built here and handed to every worker; there is no process-wide instance.
*/
type Simulation struct {
	RunId   string
	Config  SimulationConfig
	FGM     *groupmutex.FairGroupMutex
	Hub     *server.StatusHub
	Workers []*worker.Worker

	statusServer *http.Server
	logger       *zap.SugaredLogger
}

// ConfigureSimulation wires the controller, its observers, the workers and, when configured, the status server.
// Console status lines go to console.
func ConfigureSimulation(cfg SimulationConfig, console io.Writer) (*Simulation, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runId := uuid.NewString()
	logger := zap.S().Named("simulation").With("run", runId)

	hub := server.InitializeStatusHub(runId, 256, zap.S().Named("status_hub"))

	observers := []types.StatusObserver{hub, logTransitions(zap.S().Named("controller"))}
	if cfg.Console && console != nil {
		observers = append(observers, server.InitializeConsolePrinter(console))
	}

	fgm := groupmutex.InitializeFairGroupMutex(
		groupmutex.WithInitialTurn(cfg.InitialTurn),
		groupmutex.WithObserver(observers...),
	)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sim := &Simulation{
		RunId:  runId,
		Config: cfg,
		FGM:    fgm,
		Hub:    hub,
		logger: logger,
	}

	workerLogger := zap.S().Named("worker")
	workerId := 0
	for _, g := range types.Groups {
		for i := 0; i < cfg.GroupWorkers[g.Index()]; i++ {
			workerId++
			schedule := worker.NewRandomSchedule(seed+int64(workerId), cfg.Think, cfg.Use)

			w := worker.SpawnWorker(workerId, g, fgm, schedule, workerLogger)
			w.Iterations = cfg.Iterations
			sim.Workers = append(sim.Workers, w)
		}
	}

	if cfg.StatusAddr != "" {
		sc := &controller.StatusController{
			RunId:     runId,
			JWTSecret: cfg.JWTSecret,
			Source:    fgm,
			Events:    hub,
			Logger:    zap.S().Named("status_controller"),
		}
		sim.statusServer = &http.Server{
			Addr:    cfg.StatusAddr,
			Handler: sc.InitializeEndPoints(mux.NewRouter()),
		}
	}

	logger.Infof("configured %d group A and %d group B workers, seed %d, initial turn %s",
		cfg.GroupWorkers[0], cfg.GroupWorkers[1], seed, cfg.InitialTurn)

	return sim, nil
}

/*
Run starts every worker and blocks until they all finish their iterations or ctx ends,
then shuts the status surface down. Errors from workers, the listener and shutdown are combined.
*/
func (sim *Simulation) Run(ctx context.Context) error {

	// runContext also ends when the status server stops serving on its own.
	runContext, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	serveErr := make(chan error, 1)

	if sim.statusServer != nil {
		ln, err := net.Listen("tcp", sim.statusServer.Addr)
		if err != nil {
			sim.logger.Errorf("error while binding status server %s : %s", sim.statusServer.Addr, err.Error())
			return multierr.Append(errors.Wrapf(err, "status server %s", sim.statusServer.Addr), sim.shutdown())
		}

		go func() {
			sim.logger.Infof("status server listening on address : %s", ln.Addr().String())
			if err := sim.statusServer.Serve(ln); err != nil && err != http.ErrServerClosed {
				sim.logger.Errorf("error occured with status server %s : %s", sim.statusServer.Addr, err.Error())
				serveErr <- errors.Wrapf(err, "status server %s", sim.statusServer.Addr)
				cancelRun()
			}
		}()
	}

	g, gctx := errgroup.WithContext(runContext)
	for _, w := range sim.Workers {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err := g.Wait()
	err = multierr.Append(err, sim.shutdown())

	select {
	case serr := <-serveErr:
		err = multierr.Append(err, serr)
	default:
	}

	sim.logSummary()

	return err
}

func (sim *Simulation) shutdown() error {

	sim.Hub.Close()

	var err error

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sim.statusServer != nil {
		if serr := sim.statusServer.Shutdown(shutdownContext); serr != nil {
			err = multierr.Append(err, errors.Wrap(serr, "graceful shutdown of status server"))
		}
	}

	if terr := tracing.Shutdown(shutdownContext); terr != nil {
		err = multierr.Append(err, errors.Wrap(terr, "flushing traces"))
	}

	return err
}

func (sim *Simulation) logSummary() {

	st := sim.FGM.Status()
	sim.logger.Infow("simulation finished",
		"admitted_a", st.Admitted[0], "admitted_b", st.Admitted[1],
		"released_a", st.Released[0], "released_b", st.Released[1],
		"dropped_status_events", sim.Hub.Dropped(),
	)

	for _, w := range sim.Workers {
		sim.logger.Debugw("worker finished", "worker", w.WorkerId, "group", w.Group.String(), "cycles", w.Cycles())
	}
}

func logTransitions(lgr *zap.SugaredLogger) types.StatusObserver {

	return types.StatusObserverFunc(func(ev types.StatusEvent) {
		lgr.Debugw("transition",
			"group", ev.Group.String(),
			"action", ev.Action.String(),
			"active", ev.Status.Active,
			"waiting", ev.Status.Waiting,
			"turn", ev.Status.Turn.String(),
		)
	})
}
