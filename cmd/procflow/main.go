// Package main is the procflow engine's process entry point: it resolves
// configuration, boots the engine against its library roots, optionally
// serves the debug HTTP surface, and waits for a shutdown signal (§6).
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/catalogue/fsloader"
	"github.com/procflow/engine/config"
	"github.com/procflow/engine/engine"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/server/debug"
	"github.com/procflow/engine/telemetry"
)

// shutdownTimeout bounds how long main waits for Facade.Wait to observe the
// shutdown-wait flag clearing before exiting anyway.
const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("procflow: fatal: %v", r)
			exitCode = 2
		}
	}()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Errorf("procflow: invalid configuration: %v", err)
		return 1
	}
	log.SetLevel(cfg.LogLevel)

	if _, err := telemetry.Init(); err != nil {
		log.Errorf("procflow: failed to initialize tracing: %v", err)
		return 1
	}

	eng, err := engine.Boot(cfg.HelperPoolSize, libraryLoaders(cfg)...)
	if err != nil {
		log.Errorf("procflow: failed to boot engine: %v", err)
		return 1
	}
	defer eng.Shutdown()

	var srv *http.Server
	if cfg.DebugAddr != "" {
		srv = &http.Server{Addr: cfg.DebugAddr, Handler: debug.New(eng)}
		go func() {
			log.Infof("procflow: debug server listening on %s", cfg.DebugAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("procflow: debug server stopped: %v", err)
			}
		}()
	}

	waitForShutdownSignal()
	log.Infof("procflow: shutdown signal received, draining")
	eng.Facade.StopWaiting()
	eng.Facade.Wait(shutdownTimeout)
	if srv != nil {
		_ = srv.Close()
	}
	return 0
}

func waitForShutdownSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

// libraryLoaders builds the catalogue.Loader set for the configured library
// roots (§6): the primary data root always, the per-user docs root only when
// configured.
func libraryLoaders(cfg *config.Config) []catalogue.Loader {
	roots := []string{cfg.DataRoot}
	if cfg.DocsRoot != "" {
		roots = append(roots, cfg.DocsRoot)
	}
	return []catalogue.Loader{fsloader.New(roots...)}
}
