package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencanbus/canlink/internal/buslink"
	"github.com/opencanbus/canlink/internal/discovery"
	"github.com/opencanbus/canlink/internal/gateway"
	"github.com/opencanbus/canlink/internal/httpapi"
	"github.com/opencanbus/canlink/internal/transceiver"
	"github.com/opencanbus/canlink/pkg/can"
)

const (
	appName    = "canlinkd"
	appVersion = "0.1.0"
)

func main() {
	// Command-line flags
	var (
		nodeID      = flag.String("node-id", getDefaultNodeID(), "Unique node identifier")
		httpAddr    = flag.String("http-listen", "8081", "HTTP API listen port")
		busAddr     = flag.String("bus-listen", ":7001", "Bus link listen address for remote clients")
		connect     = flag.String("connect", "", "Comma-separated gateway seeds to uplink to (id@host:port)")
		baudRate    = flag.Uint("baud-rate", 100_000, "Bus baud rate in Hz")
		echo        = flag.Bool("echo", false, "Echo transmitted frames back to the local router")
		secretKey   = flag.String("secret", "", "JWT secret for the HTTP API")
		tokenTTL    = flag.Duration("token-ttl", 0, "Lifetime of issued API tokens (default 24h)")
		noAuth      = flag.Bool("no-auth", false, "Development mode: bypass HTTP API authentication")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	// Configure logging
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	log := logrus.WithField("node", *nodeID)

	log.WithFields(logrus.Fields{
		"version":    appVersion,
		"httpListen": *httpAddr,
		"busListen":  *busAddr,
	}).Infof("starting %s", appName)

	// Build the transceiver stack. With an uplink the gateway rides a
	// remote bus; otherwise it gets one side of a local virtual bus and
	// the bus link server gets the other.
	var (
		gatewayBus can.Transceiver
		linkServer *buslink.Server
	)

	if *connect != "" {
		client, err := dialUplink(log, *nodeID, *connect)
		if err != nil {
			log.WithError(err).Fatal("failed to dial uplink gateway")
		}
		defer client.Close()
		gatewayBus = client
	} else if *echo {
		loopback := transceiver.NewLoopback()
		loopback.SetEcho(true)
		gatewayBus = loopback
	} else {
		vb := transceiver.NewVirtualBus()
		gatewayBus = vb.Open("gateway")

		serverEndpoint := vb.Open("buslink")
		if err := serverEndpoint.BusOn(); err != nil {
			log.WithError(err).Fatal("failed to activate bus link endpoint")
		}

		linkConfig := &buslink.Config{
			NodeID:        *nodeID,
			ListenAddress: *busAddr,
		}
		linkConfig.SetDefaults()

		linkServer, err = buslink.NewServer(linkConfig, serverEndpoint)
		if err != nil {
			log.WithError(err).Fatal("failed to create bus link server")
		}
	}

	// Create the gateway
	settings := can.Settings{BaudRate: uint32(*baudRate)}
	config := gateway.NewConfig(*nodeID).WithSettings(settings)
	if err := config.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	gw, err := gateway.NewGateway(config, gatewayBus)
	if err != nil {
		log.WithError(err).Fatal("failed to create gateway")
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.WithError(err).Warn("error closing gateway")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gw.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start gateway")
	}

	// Serve the bus link for remote clients
	if linkServer != nil {
		go func() {
			log.WithField("address", *busAddr).Info("bus link listening")
			if err := linkServer.ListenAndServe(); err != nil {
				log.WithError(err).Error("bus link server stopped")
			}
		}()
		defer linkServer.Close()
	}

	// Serve the HTTP API
	apiServer := httpapi.NewServer(gw, httpapi.Config{
		Port:      *httpAddr,
		SecretKey: *secretKey,
		TokenTTL:  *tokenTTL,
		NoAuth:    *noAuth,
	}, log)
	go func() {
		log.WithField("port", *httpAddr).Info("HTTP API listening")
		if err := apiServer.Start(); err != nil {
			log.WithError(err).Error("HTTP API server stopped")
		}
	}()

	setupGracefulShutdown(cancel, apiServer, gw, log)

	health := gw.Health()
	log.WithFields(logrus.Fields{
		"healthy": health.Healthy,
		"routes":  health.Routes,
	}).Infof("%s node started", appName)

	<-ctx.Done()
	log.Infof("%s node stopped", appName)
}

// getDefaultNodeID generates a default node ID based on hostname
func getDefaultNodeID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "canlink-node-1"
	}
	return fmt.Sprintf("canlink-%s", hostname)
}

// dialUplink resolves seeds through static discovery and dials the
// first healthy gateway.
func dialUplink(log *logrus.Entry, nodeID, seeds string) (*buslink.Client, error) {
	disc := discovery.NewStaticDiscovery(strings.Split(seeds, ","))
	gateways, err := disc.FindGateways(context.Background())
	if err != nil {
		return nil, err
	}
	if len(gateways) == 0 {
		return nil, fmt.Errorf("no gateways in seed list %q", seeds)
	}

	for _, gwNode := range gateways {
		if !gwNode.IsHealthy() {
			continue
		}

		linkConfig := &buslink.Config{
			NodeID:        nodeID,
			TargetAddress: gwNode.Address(),
		}
		linkConfig.SetDefaults()

		client, err := buslink.Dial(linkConfig)
		if err != nil {
			log.WithError(err).WithField("gateway", gwNode.ID()).Warn("failed to dial gateway, trying next")
			continue
		}

		log.WithFields(logrus.Fields{
			"gateway": gwNode.ID(),
			"address": gwNode.Address(),
		}).Info("uplink established")
		return client, nil
	}

	return nil, fmt.Errorf("no reachable gateway in seed list %q", seeds)
}

// setupGracefulShutdown configures signal handling for graceful shutdown
func setupGracefulShutdown(cancel context.CancelFunc, apiServer *httpapi.Server, gw *gateway.Gateway, log *logrus.Entry) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		sig := <-sigChan
		log.WithField("signal", sig.String()).Info("shutting down gracefully")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("error stopping HTTP API")
		}
		if err := gw.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("error during graceful stop")
		}

		cancel()
	}()
}
