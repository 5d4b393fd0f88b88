package nats

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// serverName shows up in the NATS monitoring output so a stray
	// snapvision queue server is easy to identify on a shared host.
	serverName = "snapvision-queue"

	// readyTimeout bounds how long Start waits for the spawned server
	// to accept connections before giving up.
	readyTimeout = 10 * time.Second
	readyPoll    = 200 * time.Millisecond

	dialTimeout = 2 * time.Second
)

// Server supervises an embedded nats-server process that backs the capture
// job queue. If a server is already listening on the configured URL it is
// reused instead of spawning a second one.
type Server struct {
	binPath   string
	storeDir  string
	url       string
	cmd       *exec.Cmd
	nc        *nats.Conn
	js        jetstream.JetStream
	mu        sync.Mutex
	isRunning bool
}

// ServerConfig holds configuration for the queue server.
type ServerConfig struct {
	BinPath  string
	StoreDir string
	URL      string
	AutoDL   bool
}

// NewServer resolves the nats-server binary and prepares a supervisor,
// downloading the binary when cfg.AutoDL allows it.
func NewServer(cfg ServerConfig) (*Server, error) {
	binPath, err := EnsureServerBinary(cfg.BinPath, cfg.AutoDL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve nats-server binary: %w", err)
	}

	return &Server{
		binPath:  binPath,
		storeDir: cfg.StoreDir,
		url:      cfg.URL,
	}, nil
}

// Start launches the queue server with JetStream enabled and waits for it
// to accept connections. Idempotent.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.isReachable() {
		log.Printf("Reusing queue server already listening at %s", s.url)
		if err := s.connect(); err != nil {
			return err
		}
		s.isRunning = true
		return nil
	}

	absStoreDir, err := filepath.Abs(s.storeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve store dir: %w", err)
	}
	if err := os.MkdirAll(absStoreDir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	host, port, err := parseNatsURL(s.url)
	if err != nil {
		return err
	}

	s.cmd = exec.CommandContext(ctx, s.binPath,
		"-n", serverName,
		"-js",
		"-sd", absStoreDir,
		"-a", host,
		"-p", port,
	)
	s.cmd.Stdout = os.Stdout
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start queue server: %w", err)
	}

	if err := s.waitReady(ctx); err != nil {
		s.teardownLocked()
		return err
	}

	if err := s.connect(); err != nil {
		s.teardownLocked()
		return err
	}

	s.isRunning = true
	log.Printf("Queue server started at %s with JetStream enabled", s.url)
	return nil
}

// waitReady polls the listen port until the server accepts connections.
func (s *Server) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		if s.isReachable() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPoll):
		}
	}
	return fmt.Errorf("queue server did not become ready at %s within %s", s.url, readyTimeout)
}

// Stop closes the connection and terminates the supervised process.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.teardownLocked()
	s.isRunning = false

	log.Println("Queue server stopped")
	return nil
}

// teardownLocked releases the connection and kills the child process.
// Callers must hold s.mu.
func (s *Server) teardownLocked() {
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}

	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil {
			log.Printf("Warning: failed to kill queue server process: %v", err)
		}
		if err := s.cmd.Wait(); err != nil {
			log.Printf("Warning: failed to reap queue server process: %v", err)
		}
	}

	s.cmd = nil
	s.js = nil
}

// IsRunning reports whether the supervisor holds a live server.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// GetConnection returns the NATS connection.
func (s *Server) GetConnection() *nats.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nc
}

// GetJetStream returns the JetStream context.
func (s *Server) GetJetStream() jetstream.JetStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.js
}

func (s *Server) isReachable() bool {
	host, port, err := parseNatsURL(s.url)
	if err != nil {
		return false
	}

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (s *Server) connect() error {
	nc, err := nats.Connect(s.url, nats.Name(serverName))
	if err != nil {
		return fmt.Errorf("failed to connect to queue server: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s.nc = nc
	s.js = js
	return nil
}

// parseNatsURL extracts the listen host and port from a nats:// URL.
func parseNatsURL(natsURL string) (host, port string, err error) {
	addr := strings.TrimPrefix(natsURL, "nats://")

	host, port, err = net.SplitHostPort(addr)
	if err != nil {
		return "", "", fmt.Errorf("invalid NATS URL %q: %w", natsURL, err)
	}
	if host == "" || port == "" {
		return "", "", fmt.Errorf("invalid NATS URL %q: missing host or port", natsURL)
	}
	return host, port, nil
}
