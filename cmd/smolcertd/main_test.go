package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"xdao.co/smolcert/config"
	"xdao.co/smolcert/storage"
	"xdao.co/smolcert/storage/grpccas"
	"xdao.co/smolcert/storage/testkit"
)

type running struct {
	addr   string
	daemon *daemon
}

func startDaemon(t *testing.T, cfg config.Config, log *logrus.Logger) running {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	d, err := newDaemon(cfg, log)
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
		d.Close()
	})
	return running{addr: lis.Addr().String(), daemon: d}
}

func dial(t *testing.T, addr string) *grpccas.Client {
	t.Helper()
	c, err := grpccas.Dial(addr, grpccas.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.StoreDir = t.TempDir()
	return cfg
}

func TestDaemon_StoresCertificates(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	d := startDaemon(t, testConfig(t), log)
	client := dial(t, d.addr)

	b := testkit.Certificate(t, 100)
	id, err := client.Put(b)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := client.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, b) {
		t.Fatalf("payload mismatch")
	}

	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "certificate stored" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a store log entry")
	}
}

func TestDaemon_EnforcesParseLimits(t *testing.T) {
	cfg := testConfig(t)
	b := testkit.Certificate(t, 101)
	cfg.Parse.MaxSize = len(b) - 1

	log, _ := logtest.NewNullLogger()
	d := startDaemon(t, cfg, log)
	client := dial(t, d.addr)

	if _, err := client.Put(b); !storage.IsInvalidCertificate(err) {
		t.Fatalf("got err=%v want ErrInvalidCertificate", err)
	}
}

func TestDaemon_ReplicatesToMirrors(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	mirror := startDaemon(t, testConfig(t), log)

	cfg := testConfig(t)
	cfg.Mirrors = []string{mirror.addr}
	primary := startDaemon(t, cfg, log)

	b := testkit.Certificate(t, 102)
	id, err := dial(t, primary.addr).Put(b)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !dial(t, mirror.addr).Has(id) {
		t.Fatalf("certificate not replicated to mirror")
	}
}

func TestDaemon_BestEffortMirror(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	dead := lis.Addr().String()
	_ = lis.Close()

	log, hook := logtest.NewNullLogger()
	cfg := testConfig(t)
	cfg.Mirrors = []string{dead}
	cfg.MirrorBestEffort = true
	cfg.MirrorTimeout = time.Second
	d := startDaemon(t, cfg, log)

	if _, err := dial(t, d.addr).Put(testkit.Certificate(t, 103)); err != nil {
		t.Fatalf("best-effort Put: %v", err)
	}

	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "replication failed" && e.Data["mirror"] == dead {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a replication warning for %s", dead)
	}
}

func TestRun_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	var errOut bytes.Buffer
	if code := run(context.Background(), []string{"--config", path}, &errOut); code != 2 {
		t.Fatalf("got %d want 2", code)
	}
	if !strings.Contains(errOut.String(), "log_level") {
		t.Fatalf("unexpected error output: %q", errOut.String())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smolcertd.yaml")
	doc := "listen: 127.0.0.1:0\nstore_dir: " + filepath.Join(t.TempDir(), "store") + "\nlog_level: warn\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var errOut bytes.Buffer
	if code := run(ctx, []string{"--config", path}, &errOut); code != 0 {
		t.Fatalf("got %d want 0: %s", code, errOut.String())
	}
}
