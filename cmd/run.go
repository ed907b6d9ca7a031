package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	disputedash "github.com/rollupops/disputedash"
	"github.com/rollupops/disputedash/config"
	"github.com/rollupops/disputedash/cost"
	"github.com/rollupops/disputedash/etherman"
	"github.com/rollupops/disputedash/log"
	"github.com/rollupops/disputedash/rpc"
	"github.com/rollupops/disputedash/tree"
	"github.com/rollupops/disputedash/txsender"
)

const shutdownTimeout = 10 * time.Second

func start(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}

	log.Init(c.Log)

	if c.Log.Environment == log.EnvironmentDevelopment {
		disputedash.PrintVersion(os.Stdout)
		log.Info("Starting application")
	} else if c.Log.Environment == log.EnvironmentProduction {
		logVersion()
	}

	l2Client, err := etherman.NewClient(log.WithFields("module", "etherman"), c.L2)
	if err != nil {
		return fmt.Errorf("error connecting to L2 node %s: %w", c.L2.URL, err)
	}

	orchestrator := tree.NewOrchestrator(log.WithFields("module", "tree"), l2Client, c.Tree)

	sender, err := txsender.New(log.WithFields("module", "txsender"), l2Client.Client, c.TxSender)
	if err != nil {
		return fmt.Errorf("error creating tx sender: %w", err)
	}

	estimator := cost.NewEstimator(log.WithFields("module", "cost"), c.CostEstimator)

	endpoints := rpc.NewDashboardEndpoints(
		log.WithFields("module", "rpc"),
		c.RPC.ReadTimeout.Duration,
		l2Client,
		c.L2.URL,
		orchestrator,
		sender,
		estimator,
		c.CostModel,
	)
	server := rpc.NewServer(log.WithFields("module", "rpc"), c.RPC, endpoints)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal(err)
		}
	}()

	waitSignal()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("error stopping server: ", err)
	}
	return nil
}

func logVersion() {
	log.Infow("Starting application",
		// version is already logged by default
		"gitRevision", disputedash.GitRev,
		"gitBranch", disputedash.GitBranch,
		"goVersion", runtime.Version(),
		"built", disputedash.BuildDate,
		"os/arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	)
}

func waitSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	sig := <-signals
	log.Infof("received signal %s, terminating application gracefully...", sig)
}
