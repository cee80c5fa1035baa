// Command chordnode runs a single Chord DHT node: the `run-node`
// subcommand opens a durable store, joins or creates a ring, and serves
// the RPC and status-page surfaces until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"chordring/internal/bootstrap"
	"chordring/internal/httpstatus"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/store"
	"chordring/internal/transport"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "run-node" {
		fmt.Fprintln(os.Stderr, "usage: chordnode run-node [flags] db_path")
		os.Exit(2)
	}

	fs := flag.NewFlagSet("run-node", flag.ExitOnError)
	nodeAddr := fs.String("n", "", "externally advertised node address (host:port)")
	fs.StringVar(nodeAddr, "node-address", "", "externally advertised node address (host:port)")
	bindAddr := fs.String("b", "localhost", "listen interface")
	fs.StringVar(bindAddr, "bind-address", "localhost", "listen interface")
	port := fs.Int("p", 8080, "listen port")
	fs.IntVar(port, "port", 8080, "listen port")
	remoteNode := fs.String("remote-node", "", "bootstrap peer address, optional")
	idBits := fs.Int("id-bits", 160, "identifier space width in bits")
	logFile := fs.String("log-file", "-", "log destination, - for stderr")
	verbosity := verbosityFlag(fs)
	route53Zone := fs.String("route53-zone-id", "", "Route53 hosted zone ID for peer discovery, optional")
	route53Record := fs.String("route53-record", "", "Route53 TXT record name for peer discovery, optional")

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: chordnode run-node [flags] db_path")
		os.Exit(2)
	}
	dbPath := fs.Arg(0)

	zapLog, err := logger.NewZap(logger.ZapConfig{Verbosity: *verbosity, LogFile: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chordnode: logger init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLog.Sync() }()
	lgr := logger.NewZapAdapter(zapLog)

	advertised := *nodeAddr
	if advertised == "" {
		advertised = fmt.Sprintf("%s:%d", *bindAddr, *port)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		lgr.Error("failed to open store", logger.F("path", dbPath), logger.F("err", err))
		os.Exit(1)
	}
	defer st.Close()

	space, err := ring.NewSpace(*idBits)
	if err != nil {
		lgr.Error("invalid identifier space", logger.F("err", err))
		os.Exit(1)
	}

	pool := transport.NewPool(5*time.Second, lgr.Named("transport"))
	defer pool.Close()

	node := ring.New(space, advertised, st, pool, ring.WithLogger(lgr.Named("ring")))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *bindAddr, *port))
	if err != nil {
		lgr.Error("failed to bind", logger.F("bind", *bindAddr), logger.F("port", *port), logger.F("err", err))
		os.Exit(1)
	}

	gs := grpc.NewServer(grpc.ForceServerCodec(transport.Codec))
	transport.RegisterChordServer(gs, node)

	serveErr := make(chan error, 1)
	go func() { serveErr <- gs.Serve(lis) }()
	lgr.Info("rpc server started", logger.F("addr", advertised))

	statusSrv := httpstatus.New(statusAdapter{node}, fmt.Sprintf("%s:%d", *bindAddr, *port+1), lgr.Named("status"))
	statusErr := make(chan error, 1)
	go func() { statusErr <- statusSrv.Start() }()
	lgr.Info("status server started", logger.F("port", *port+1))

	var peer bootstrap.Bootstrap
	if *route53Zone != "" && *route53Record != "" {
		ctx := context.Background()
		peer, err = bootstrap.NewRoute53(ctx, bootstrap.Route53Config{HostedZoneID: *route53Zone, RecordName: *route53Record})
		if err != nil {
			lgr.Error("failed to init route53 bootstrap", logger.F("err", err))
			os.Exit(1)
		}
	} else {
		peer = bootstrap.NewStatic(*remoteNode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	peers, err := peer.Discover(ctx)
	cancel()
	if err != nil {
		lgr.Error("bootstrap discovery failed", logger.F("err", err))
		os.Exit(1)
	}

	var bootstrapAddr string
	if len(peers) > 0 {
		bootstrapAddr = peers[0]
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := node.Initialize(initCtx, bootstrapAddr); err != nil {
		initCancel()
		lgr.Error("failed to initialize node", logger.F("err", err))
		os.Exit(1)
	}
	initCancel()

	regCtx, regCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := peer.Register(regCtx, advertised); err != nil {
		lgr.Warn("bootstrap register failed", logger.F("err", err))
	}
	regCancel()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := peer.Deregister(ctx, advertised); err != nil {
			lgr.Warn("bootstrap deregister failed", logger.F("err", err))
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		lgr.Info("shutdown signal received")
	case err := <-serveErr:
		lgr.Error("rpc server terminated unexpectedly", logger.F("err", err))
	case err := <-statusErr:
		lgr.Error("status server terminated unexpectedly", logger.F("err", err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	node.Shutdown(shutdownCtx)
	shutdownCancel()

	statusShutdownCtx, statusShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = statusSrv.Stop(statusShutdownCtx)
	statusShutdownCancel()

	gs.GracefulStop()
}

// countFlag implements flag.Value as a repeatable boolean counter, so
// -v -v -v each increment verbosity without requiring an explicit value.
// The flag package has no combined short flags: -vvv is rejected as an
// unknown flag.
type countFlag int

func (c *countFlag) String() string { return fmt.Sprintf("%d", int(*c)) }

func (c *countFlag) Set(string) error {
	*c++
	return nil
}

func (c *countFlag) IsBoolFlag() bool { return true }

func verbosityFlag(fs *flag.FlagSet) *int {
	v := new(countFlag)
	fs.Var(v, "v", "increase log verbosity, repeatable")
	return (*int)(v)
}
