package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"dj-backend/internal/dispatch"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "ipc").Logger()

// maxRequestBytes bounds a single request line.
const maxRequestBytes = 1 << 20

// Request is one line sent by a client.
type Request struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// Response is the line written back for each request.
type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Caller runs a named tool.
type Caller interface {
	Call(ctx context.Context, name string, args dispatch.Args) (string, error)
}

type Server struct {
	socketPath   string
	caller       Caller
	listener     net.Listener
	conns        map[net.Conn]struct{}
	connsLock    sync.Mutex
	lockFile     *os.File
	lockFilePath string
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewServer(socketPath string, caller Caller) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath:   socketPath,
		caller:       caller,
		conns:        make(map[net.Conn]struct{}),
		lockFilePath: socketPath + ".lock",
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Server) checkAndCleanOldLock() {
	if _, err := os.Stat(s.lockFilePath); os.IsNotExist(err) {
		return
	}

	content, err := os.ReadFile(s.lockFilePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pidStr := strings.TrimSpace(string(content))
	if pidStr == "" {
		logger.Warn().Msg("Lock file is empty, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		logger.Warn().Err(err).Str("pid_str", pidStr).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	if !isProcessRunning(pid) {
		logger.Info().Int("old_pid", pid).Msg("Process in lock file is not running, removing lock file")
		os.Remove(s.lockFilePath)
		return
	}

	logger.Info().Int("existing_pid", pid).Msg("Another process is still running")
}

// kill(pid, 0) probes for the process without signalling it.
func isProcessRunning(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func (s *Server) acquireLock() error {
	s.checkAndCleanOldLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("another dj server instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if err := file.Truncate(0); err == nil {
		_, err = file.WriteString(fmt.Sprintf("%d\n", os.Getpid()))
	}
	if err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	logger.Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile != nil {
		syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
		s.lockFile.Close()
		os.Remove(s.lockFilePath)
		logger.Info().Str("lock_file", s.lockFilePath).Msg("Released process lock")
		s.lockFile = nil
	}
}

func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	logger.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	s.connsLock.Lock()
	s.conns[conn] = struct{}{}
	s.connsLock.Unlock()
	logger.Debug().Msg("Client connected")

	defer func() {
		s.connsLock.Lock()
		delete(s.conns, conn)
		s.connsLock.Unlock()
		conn.Close()
		logger.Debug().Msg("Client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestBytes)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := enc.Encode(s.handle(line)); err != nil {
			logger.Error().Err(err).Msg("Failed to write to client")
			return
		}
	}
}

func (s *Server) handle(line string) Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return Response{Error: "invalid request: " + err.Error()}
	}
	logger.Info().Str("tool", req.Tool).Msg("Tool call")
	result, err := s.caller.Call(s.ctx, req.Tool, dispatch.Args(req.Args))
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Result: result}
}

func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.connsLock.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsLock.Unlock()
	s.wg.Wait()
	s.releaseLock()
}
