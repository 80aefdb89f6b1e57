package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// DefaultGracePeriod mirrors the shutdown window managed platforms give a
// container between SIGTERM and SIGKILL.
const DefaultGracePeriod = 10 * time.Second

// Supervisor runs the application server as a child process: it logs the
// bind status, forwards termination signals, and gives in-flight requests
// a grace period before forcing the child down. There is no restart
// policy; a dead server ends the instance and recovery belongs to the
// hosting platform.
type Supervisor struct {
	params Params
	grace  time.Duration
	log    zerolog.Logger

	// argv overrides the server command in tests; nil means the real
	// command built from params.
	argv []string
}

func NewSupervisor(params Params, grace time.Duration, log zerolog.Logger) *Supervisor {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Supervisor{params: params, grace: grace, log: log}
}

func (s *Supervisor) command() []string {
	if s.argv != nil {
		return s.argv
	}
	return s.params.Command()
}

// LoadEnvFile loads a dotenv file into the process environment for local
// runs. Missing files are not an error; a managed environment injects its
// variables directly.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Run starts the server and blocks until it exits or a termination signal
// arrives. The child's exit status is the supervisor's result.
func (s *Supervisor) Run(ctx context.Context) error {
	argv := s.command()

	// Not CommandContext: cancellation must go through the graceful
	// SIGTERM path below, not an immediate kill.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	s.log.Info().
		Str("bind", s.params.BindAddr()).
		Int("workers", s.params.Workers()).
		Int("threads", s.params.Threads()).
		Str("timeout", s.params.Timeout().String()).
		Msg("starting application server")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case err := <-done:
		// Single worker, no restart policy: a server exit ends the instance.
		if err != nil {
			s.log.Error().Err(err).Msg("application server exited")
			return fmt.Errorf("server exited: %w", err)
		}
		s.log.Info().Msg("application server exited cleanly")
		return nil

	case sig := <-sigCh:
		s.log.Info().Str("signal", sig.String()).Dur("grace", s.grace).Msg("forwarding termination signal")
		return s.shutdown(cmd, done)

	case <-ctx.Done():
		s.log.Info().Dur("grace", s.grace).Msg("context cancelled, stopping server")
		return s.shutdown(cmd, done)
	}
}

// shutdown forwards SIGTERM and waits out the grace period before killing.
func (s *Supervisor) shutdown(cmd *exec.Cmd, done <-chan error) error {
	// The child may already be gone by the time the signal fires; that is
	// a normal exit, not a signalling failure.
	select {
	case err := <-done:
		if err != nil {
			s.log.Info().Err(err).Msg("server stopped")
		}
		return nil
	default:
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-done
			return nil
		}
		_ = cmd.Process.Kill()
		return fmt.Errorf("failed to signal server: %w", err)
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			s.log.Info().Err(err).Msg("server stopped")
		}
		return nil
	case <-timer.C:
		s.log.Warn().Msg("grace period expired, killing server")
		_ = cmd.Process.Kill()
		<-done
		return nil
	}
}
