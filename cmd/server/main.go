// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/sepagate"
	"github.com/moov-io/sepagate/pkg/accounts"
	"github.com/moov-io/sepagate/pkg/database"
	"github.com/moov-io/sepagate/pkg/mandates"
	"github.com/moov-io/sepagate/pkg/payments"
	"github.com/moov-io/sepagate/pkg/pipeline"
	"github.com/moov-io/sepagate/pkg/sepa"
	"github.com/moov-io/sepagate/pkg/util"
	"github.com/moov-io/sepagate/x/route"
	"github.com/moov-io/sepagate/x/trace"

	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
)

var (
	flagConfigFile = flag.String("config", "", "Filepath for config file to load")
)

func main() {
	flag.Parse()

	cfg := readConfig(util.Or(os.Getenv("CONFIG_FILE"), *flagConfigFile))
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
	cfg.Logger.Log("startup", fmt.Sprintf("Starting sepagate server version %s", sepagate.Version))

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	// Setup tracing
	tracer, tracerCloser, err := trace.NewTracer(cfg.Logger, "sepagate", cfg.Tracing)
	if err != nil {
		panic(fmt.Sprintf("problem creating tracer: %v", err))
	}
	defer tracerCloser.Close()
	opentracing.SetGlobalTracer(tracer)

	// migrate database
	db, err := database.New(ctx, cfg.Logger, cfg.Database)
	if err != nil {
		panic(fmt.Sprintf("error creating database: %v", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			cfg.Logger.Log("exit", err)
		}
	}()

	// Listen for application termination.
	errs := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	adminServer := setupAdmin(cfg, db)
	go func() {
		cfg.Logger.Log("admin", fmt.Sprintf("listening on %s", adminServer.BindAddr()))
		if err := adminServer.Listen(); err != nil {
			errs <- fmt.Errorf("problem starting admin http: %v", err)
		}
	}()
	defer adminServer.Shutdown()

	// Setup repositories
	accountsRepo := accounts.NewRepo(cfg.Logger, db)
	defer accountsRepo.Close()

	mandatesRepo, err := setupMandates(ctx, cfg, db, accountsRepo)
	if err != nil {
		panic(err.Error())
	}
	paymentsRepo := payments.NewRepo(cfg.Logger, db, accountsRepo, mandatesRepo)

	validator, err := setupValidator(cfg.SEPA.Validation)
	if err != nil {
		panic(fmt.Sprintf("problem setting up validation: %v", err))
	}

	publisher, err := pipeline.NewPublisher(cfg.Logger, cfg.Pipeline)
	if err != nil {
		panic(fmt.Sprintf("problem setting up pipeline: %v", err))
	}
	defer publisher.Shutdown(context.Background())

	processor := payments.NewProcessor(cfg.Logger, db, paymentsRepo, mandatesRepo, sepa.NewBuilder(nil), validator).WithPublisher(publisher)

	// Create HTTP handler
	handler := mux.NewRouter()
	route.PingRoute(cfg.Logger, handler)
	mandates.NewRouter(cfg.Logger, mandatesRepo, accountsRepo).RegisterRoutes(handler)
	payments.NewRouter(cfg.Logger, paymentsRepo, processor).RegisterRoutes(handler)

	serve := newHTTPServer(cfg.Http.BindAddress, handler)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serve.Shutdown(shutdownCtx); err != nil {
			cfg.Logger.Log("shutdown", err)
		}
	}()

	go func() {
		var err error
		certFile, keyFile := os.Getenv("HTTPS_CERT_FILE"), os.Getenv("HTTPS_KEY_FILE")
		if certFile != "" && keyFile != "" {
			cfg.Logger.Log("startup", fmt.Sprintf("binding to %s for secure HTTP server", serve.Addr))
			err = serve.ListenAndServeTLS(certFile, keyFile)
		} else {
			cfg.Logger.Log("startup", fmt.Sprintf("binding to %s for HTTP server", serve.Addr))
			err = serve.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	if err := <-errs; err != nil {
		cfg.Logger.Log("exit", err)
	}
}
