// Command hvacbridge is the process entrypoint (C12): it loads the
// configured devices, brings up the local HTTP facade, the notifier
// loop, and the MQTT bridge, and runs until an external stop signal,
// in the style of ap.iotd.main's flag/zap/prometheus/signal setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deiger/aircon/hvac_common/config"
	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/httpd"
	"github.com/deiger/aircon/hvac_common/mqttbridge"
	"github.com/deiger/aircon/hvac_common/notifier"
)

const pname = "hvacbridge"

var (
	configDir = flag.String("config-dir", "etc/devices",
		"Directory holding one JSON device config file per appliance")
	listenAddr = flag.String("listen-address", ":8080",
		"Address the local HTTP facade listens on for appliance and home-automation requests")
	promAddr = flag.String("promhttp-address", ":9101",
		"Address to listen on for Prometheus metrics")
	localIP = flag.String("local-ip", "",
		"IP address appliances should connect back to for local_reg keep-alive")
	mqttBroker = flag.String("mqtt-broker", "",
		"MQTT broker URI, e.g. tcp://localhost:1883 (disabled if empty)")
	mqttPrefix = flag.String("mqtt-prefix", "P",
		"MQTT topic prefix for per-device status/command topics")
	mqttDiscoveryPrefix = flag.String("mqtt-discovery-prefix", "homeassistant",
		"MQTT discovery prefix for the climate component config topic")

	levelFlag = zap.LevelFlag("log-level", zapcore.InfoLevel, "Log level [debug,info,warn,error,panic,fatal]")
	logger    *zap.Logger
	slogger   *zap.SugaredLogger

	ready int32
)

func zapSetup() {
	cfg := zap.NewProductionConfig()
	level := zap.NewAtomicLevelAt(*levelFlag)
	cfg.Level = level
	var err error
	logger, err = cfg.Build()
	if err != nil {
		log.Fatalf("can't build zap logger: %s", err)
	}
	slogger = logger.Sugar()
	_ = zap.RedirectStdLog(logger)
}

// metricsInit brings up the /metrics and /healthz endpoint; the
// counters themselves live in hvac_common/metrics and register
// themselves on import, the way a package-level promauto-style
// registration would, so every package that increments one doesn't
// need a registry handle threaded through its constructor.
func metricsInit() {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", promhttp.Handler())
	serveMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	go func() {
		if err := http.ListenAndServe(*promAddr, serveMux); err != nil {
			slogger.Errorf("prometheus listener exited: %s", err)
		}
	}()
}

func main() {
	flag.Parse()
	zapSetup()
	defer logger.Sync()

	metricsInit()

	devices, err := config.Load(*configDir)
	if err != nil {
		slogger.Fatalf("failed to load device config from %s: %s", *configDir, err)
	}
	if len(devices) == 0 {
		slogger.Warnf("no devices configured under %s", *configDir)
	}
	for _, d := range devices {
		slogger.Infow("loaded device", "name", d.Name, "model", d.Model, "ip", d.IPAddress)
	}

	srv := httpd.New(logger, devices)
	httpServer := &http.Server{Addr: *listenAddr, Handler: srv.Handler()}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slogger.Errorf("http listener exited: %s", err)
		}
	}()

	n := buildNotifier(devices)
	for _, d := range devices {
		d.AddEnqueueListener(n.Notify)
	}
	ctx, cancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		n.Run(ctx)
	}()

	var bridge *mqttbridge.Bridge
	if *mqttBroker != "" {
		mqttbridge.MQTTLogToZap(logger)
		bridge = mqttbridge.New(logger, *mqttBroker, pname, *mqttPrefix, *mqttDiscoveryPrefix, devices)
		bridge.AttachListeners()
		if err := bridge.Connect(); err != nil {
			slogger.Errorf("failed to connect to mqtt broker: %s", err)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		statusRefreshLoop(ctx, devices, n)
	}()

	atomic.StoreInt32(&ready, 1)
	slogger.Infof("%s ready: http=%s prometheus=%s devices=%d", pname, *listenAddr, *promAddr, len(devices))

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slogger.Infof("signal (%v) received, shutting down", s)

	cancel()
	n.Stop()
	if bridge != nil {
		bridge.Disconnect(250)
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	wg.Wait()
	slogger.Infof("%s exiting", pname)
}

func buildNotifier(devices []*device.Device) *notifier.Notifier {
	port := 80
	if _, err := fmt.Sscanf(*listenAddr, ":%d", &port); err != nil {
		port = 80
	}
	return notifier.New(logger, *localIP, port, devices)
}

// statusRefreshLoop periodically queues a full property refresh for
// every device and wakes the notifier.
func statusRefreshLoop(ctx context.Context, devices []*device.Device, n *notifier.Notifier) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, d := range devices {
				d.QueueStatusRefresh()
			}
			n.Notify()
		}
	}
}
