package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"xdao.co/smolcert/config"
	"xdao.co/smolcert/storage"
	"xdao.co/smolcert/storage/grpccas"
	"xdao.co/smolcert/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("smolcertd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "Configuration file (YAML); defaults are used when empty")
	listen := fs.String("listen", "", "Override the listen address from the configuration")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := newLogger(cfg, errOut)

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.WithError(err).Error("listen failed")
		return 1
	}

	d, err := newDaemon(cfg, logger)
	if err != nil {
		_ = lis.Close()
		logger.WithError(err).Error("startup failed")
		return 1
	}
	defer d.Close()

	if err := d.Serve(ctx, lis); err != nil {
		logger.WithError(err).Error("serve failed")
		return 1
	}
	return 0
}

func newLogger(cfg config.Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = out
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	return logger
}

// daemon owns the certificate store, its mirror connections and the gRPC
// server.
type daemon struct {
	log     *logrus.Logger
	store   *storage.CertificateStore
	mirrors []*grpccas.Client
	server  *grpc.Server
}

func newDaemon(cfg config.Config, logger *logrus.Logger) (*daemon, error) {
	local, err := localfs.New(cfg.StoreDir)
	if err != nil {
		return nil, err
	}

	d := &daemon{log: logger}
	var backend storage.CAS = local
	if len(cfg.Mirrors) > 0 {
		backends := []storage.NamedCAS{{Name: "local", CAS: local}}
		for _, target := range cfg.Mirrors {
			c, err := grpccas.Dial(target, grpccas.DialOptions{Timeout: cfg.MirrorTimeout})
			if err != nil {
				d.Close()
				return nil, fmt.Errorf("mirror %s: %w", target, err)
			}
			d.mirrors = append(d.mirrors, c)
			backends = append(backends, storage.NamedCAS{Name: target, CAS: c})
		}
		backend = &mirrorLogger{
			ReplicatingCAS: storage.ReplicatingCAS{Backends: backends, BestEffort: cfg.MirrorBestEffort},
			log:            logger,
		}
	}

	d.store = &storage.CertificateStore{
		CAS:               backend,
		ParseOptions:      cfg.ParseOptions(),
		RequireSelfSigned: cfg.RequireSelfSigned,
	}
	d.server = grpc.NewServer(grpc.MaxRecvMsgSize(maxMessageSize(cfg)))
	grpccas.RegisterStoreServer(d.server, &grpccas.Server{Store: d.store, Log: logger})

	logger.WithFields(logrus.Fields{
		"store_dir":           cfg.StoreDir,
		"mirrors":             len(cfg.Mirrors),
		"require_self_signed": cfg.RequireSelfSigned,
	}).Info("certificate store opened")
	return d, nil
}

// maxMessageSize leaves headroom above the certificate size limit for the
// protobuf framing.
func maxMessageSize(cfg config.Config) int {
	limit := cfg.ParseOptions().MaxSize
	if limit <= 0 {
		limit = config.Default().Parse.MaxSize
	}
	return limit + 1024
}

// Serve runs the gRPC server until ctx is done, then stops it gracefully.
func (d *daemon) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- d.server.Serve(lis) }()
	d.log.WithField("addr", lis.Addr().String()).Info("smolcertd listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		d.log.Info("shutting down")
		d.server.GracefulStop()
		<-errc
		return nil
	}
}

func (d *daemon) Close() {
	for _, m := range d.mirrors {
		if err := m.Close(); err != nil {
			d.log.WithError(err).Warn("closing mirror connection")
		}
	}
	d.mirrors = nil
}

// mirrorLogger reports mirrors that missed a best-effort write.
type mirrorLogger struct {
	storage.ReplicatingCAS
	log *logrus.Logger
}

func (m *mirrorLogger) Put(b []byte) (cid.Cid, error) {
	id, res, err := m.PutAll(b)
	for name, merr := range res.Errors {
		m.log.WithError(merr).WithField("mirror", name).Warn("replication failed")
	}
	return id, err
}
