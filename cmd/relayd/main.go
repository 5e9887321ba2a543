package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
	flags "github.com/jessevdk/go-flags"

	relayd "github.com/relayd/relayd"
	"github.com/relayd/relayd/relay"
	"github.com/relayd/relayd/tcpd"
	"github.com/relayd/relayd/wsd"
)

// Version of the binary, assigned during build.
var Version string = "dev"

// Options contains the global flag options
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Version bool   `long:"version" description:"Print version and exit."`
}

// ServerCommand bootstraps the listener and serves the relay.
type ServerCommand struct {
	Bind        string        `long:"bind" description:"Host and port to listen on." default:"127.0.0.1:27632" env:"RELAYD_BIND"`
	WsBind      string        `long:"ws-bind" description:"Optional host and port for the WebSocket transport." env:"RELAYD_WS_BIND"`
	WsOrigin    string        `long:"ws-origin" description:"Check websocket Origin headers against this scheme://host[:port]."`
	Log         string        `long:"log" description:"Write delivered messages to this file."`
	Metrics     bool          `long:"metrics" description:"Report metrics to stderr periodically."`
	MetricsTick time.Duration `long:"metrics-tick" description:"Duration between metrics reports." default:"60s"`
	NoRateLimit bool          `long:"unsafe-no-ratelimit" description:"Disable per-connection input rate limiting."`
}

var logLevels = []log.Level{
	log.Warning,
	log.Info,
	log.Debug,
}

func fail(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	parser.AddCommand("server", "Start the relay server.",
		"Listen for TCP connections and relay submitted messages between all connected peers.",
		&ServerCommand{})

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if options.Version {
			fmt.Println(Version)
			return nil
		}

		// Figure out the log level
		numVerbose := len(options.Verbose)
		if numVerbose >= len(logLevels) {
			numVerbose = len(logLevels) - 1
		}

		logLevel := logLevels[numVerbose]
		relayd.SetLogger(golog.New(os.Stderr, logLevel))

		if logLevel == log.Debug {
			// Enable logging from submodules
			relay.SetLogger(os.Stderr)
			tcpd.SetLogger(os.Stderr)
			wsd.SetLogger(os.Stderr)
		}

		return cmd.Execute(args)
	}

	p, err := parser.Parse()
	if err != nil {
		if p == nil {
			fmt.Print(err)
		}
		return
	}
}

// Execute runs the server command.
func (cmd *ServerCommand) Execute(args []string) error {
	host := relayd.NewHost()

	if cmd.Log == "-" {
		host.SetLogging(os.Stdout)
	} else if cmd.Log != "" {
		fp, err := os.OpenFile(cmd.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fail(2, "Failed to open log file for writing: %v\n", err)
		}
		defer fp.Close()
		host.SetLogging(fp)
	}

	listener, err := tcpd.Listen(cmd.Bind)
	if err != nil {
		fail(3, "Failed to listen on socket: %v\n", err)
	}
	defer listener.Close()

	if !cmd.NoRateLimit {
		listener.RateLimit = tcpd.NewInputLimiter
	}

	fmt.Printf("Listening for connections on %v\n", listener.Addr().String())

	if cmd.Metrics {
		relayd.StartMetrics(os.Stderr, cmd.MetricsTick)
		defer relayd.FinalMetrics()
	}

	if cmd.WsBind != "" {
		handler := wsd.NewHandler(func(c *wsd.Client) {
			host.Connect(c)
		}, cmd.WsOrigin)
		go func() {
			if err := http.ListenAndServe(cmd.WsBind, handler); err != nil {
				fail(4, "WebSocket listener failed: %v\n", err)
			}
		}()
		fmt.Printf("Listening for websockets on %v\n", cmd.WsBind)
	}

	go host.Serve(listener)

	// Construct interrupt handler
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	<-sig // Wait for ^C signal
	fmt.Fprintln(os.Stderr, "Interrupt signal detected, shutting down.")
	return nil
}
