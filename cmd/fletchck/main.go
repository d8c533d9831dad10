package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/config"
	"github.com/fletchck/fletchck/internal/domain"
	"github.com/fletchck/fletchck/internal/httpapi"
	"github.com/fletchck/fletchck/internal/httpapi/middleware"
	"github.com/fletchck/fletchck/internal/logging"
	"github.com/fletchck/fletchck/internal/notify"
	"github.com/fletchck/fletchck/internal/registry"
	"github.com/fletchck/fletchck/internal/scheduler"
	"github.com/fletchck/fletchck/internal/store"
)

const dispatchTimeout = 30 * time.Second

func main() {
	cfgPath := flag.String("config", "fletchck.json", "site config file")
	addr := flag.String("addr", "", "listen address override")
	debug := flag.Bool("debug", false, "verbose console logging")
	flag.Parse()

	site, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		site.Listen = *addr
	}

	logger, err := logging.NewLogger(site.LogDir, *debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	reg, err := registry.Build(logger, site)
	if err != nil {
		logger.Fatal("config_invalid", zap.Error(err))
	}

	var sink scheduler.HistorySink
	var reader httpapi.HistoryReader
	if site.Database != "" {
		hist, err := store.Open(site.Database)
		if err != nil {
			logger.Fatal("database_open", zap.Error(err))
		}
		defer hist.Close()
		sink = hist
		reader = hist
	}

	sched := scheduler.New(logger, scheduler.Config{
		Workers:     site.Workers,
		Timeout:     time.Duration(site.Timeout) * time.Second,
		Grace:       time.Duration(site.GraceSeconds) * time.Second,
		HistorySize: site.HistorySize,
	}, sink)
	hub := httpapi.NewHub(logger)
	sched.SetTransitionHook(hub.Broadcast)
	sched.Reload(reg, notify.NewDispatcher(logger, reg.Actions(), dispatchTimeout), seedData(site))

	// reload re-reads the config; an invalid file leaves the running
	// configuration untouched.
	var siteMu sync.Mutex
	reload := func() error {
		next, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		nextReg, err := registry.Build(logger, next)
		if err != nil {
			return err
		}
		siteMu.Lock()
		site = next
		siteMu.Unlock()
		sched.Reload(nextReg, notify.NewDispatcher(logger, nextReg.Actions(), dispatchTimeout), seedData(next))
		return nil
	}

	api := httpapi.NewServer(logger, sched, hub, reader, reload, middleware.Keys{
		Public: site.PublicKeys,
		Admin:  site.AdminKeys,
	})
	srv := &http.Server{Addr: site.Listen, Handler: api.Router()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api_listen", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_serve", zap.Error(err))
		}
	}()

	sched.Run(ctx)

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutCtx)
	hub.Close()

	siteMu.Lock()
	site.SetData(sched.Snapshot())
	err = site.Save(*cfgPath)
	siteMu.Unlock()
	if err != nil {
		logger.Error("config_save", zap.Error(err))
	} else {
		logger.Info("config_saved", zap.String("path", *cfgPath))
	}
}

// seedData extracts persisted runtime blocks so check status and
// history survive a restart.
func seedData(site *config.Site) map[string]domain.StateData {
	seed := make(map[string]domain.StateData, len(site.Checks))
	for name, c := range site.Checks {
		if c.Data != nil {
			seed[name] = *c.Data
		}
	}
	return seed
}
