// Command osio is a commandline client of the OpenSensors API
//
// Usage: osio [flags] <command> [args]
//
// Commands:
//  whoami                 show the user the api key belongs to
//  get <path>             GET an API path, eg /v1/users/joe/devices
//  stream <path>          print the events of a real-time path until interrupted. Use -public for query auth.
//  rotate-key             generate a new api key for the configured user and save it in the config file
//  publish <topic> <json> publish a message to a topic as a device over MQTT
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/osioclient-go/pkg/eventstream"
	"github.com/wostzone/osioclient-go/pkg/osioclient"
	"github.com/wostzone/osioclient-go/pkg/osioconfig"
)

// Exit codes
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitTransport = 3
)

// cli holds the state of a single invocation
type cli struct {
	config  *osioconfig.OsioConfig
	output  string
	public  bool
	gateway *osioclient.RestGateway
	client  *osioclient.OsioClient
	out     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// serveMetrics exposes the client metrics at /metrics until the context ends
func serveMetrics(ctx context.Context, address string) error {
	reg := prometheus.NewRegistry()
	if err := osioclient.RegisterMetrics(reg); err != nil {
		return err
	}
	reg.MustRegister(collectors.NewGoCollector())
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: address, Handler: mux}
	go func() {
		logrus.Infof("serveMetrics: listening on %s", address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("serveMetrics: %s", err)
		}
	}()
	context.AfterFunc(ctx, func() { _ = srv.Close() })
	return nil
}

// run the commandline and return the exit code
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("osio", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "json", "Output format: {json|yaml}")
	metricsAddress := fs.String("metrics", "", "Serve prometheus metrics on `address`, eg :9090")
	public := fs.Bool("public", false, "Stream without credentials header, the api key is passed as query parameter")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: osio [flags] <command> [args]\n")
		fmt.Fprintf(stderr, "Commands: whoami, get <path>, stream <path>, rotate-key, publish <topic> <json>\n")
		fs.PrintDefaults()
	}

	config, err := osioconfig.LoadCommandlineConfig(fs, "", args)
	if err != nil {
		fmt.Fprintf(stderr, "osio: %s\n", err)
		return exitUsage
	}
	if *output != "json" && *output != "yaml" {
		fmt.Fprintf(stderr, "osio: unknown output format '%s'\n", *output)
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	if *metricsAddress != "" {
		if err = serveMetrics(ctx, *metricsAddress); err != nil {
			fmt.Fprintf(stderr, "osio: %s\n", err)
			return exitFailed
		}
	}

	gateway := osioclient.NewRestGateway(osioclient.GatewayConfig{
		APIVersion:      config.APIVersion,
		BaseURL:         config.BaseURL,
		RealtimeBaseURL: config.RealtimeBaseURL,
		APIKey:          config.APIKey,
		Timeout:         config.RequestTimeout(),
		CaCertFile:      config.CaCertFile,
	})
	if err = gateway.Start(); err != nil {
		fmt.Fprintf(stderr, "osio: %s\n", err)
		return exitFailed
	}
	defer gateway.Stop()

	c := &cli{
		config:  config,
		output:  *output,
		public:  *public,
		gateway: gateway,
		client: osioclient.NewOsioClient(gateway,
			eventstream.WithLogger(logrus.StandardLogger()),
			eventstream.WithIdleTimeout(config.StreamIdleTimeout())),
		out: stdout,
	}
	err = c.execute(ctx, fs.Arg(0), fs.Args()[1:])
	if err == errUsage {
		fs.Usage()
		return exitUsage
	} else if err != nil {
		fmt.Fprintf(stderr, "osio: %s\n", err)
		if isTransportError(err) {
			return exitTransport
		}
		return exitFailed
	}
	return exitOK
}
