// Package launcher builds and supervises the container entry command for a
// WSGI application: a pre-fork server with a fixed worker/thread shape,
// bound to the port the hosting platform injects at start.
package launcher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PortEnvVar is the variable managed platforms use to hand the container
// its listen port.
const PortEnvVar = "PORT"

// ErrPortUnset is returned when the platform did not supply a port and the
// configuration defines no local fallback. Binding elsewhere silently would
// leave the instance unreachable, so this is a startup failure.
var ErrPortUnset = errors.New("PORT is not set and no local fallback port is configured")

// Settings is the validated launch configuration before port resolution.
// Worker and thread counts are process-lifetime constants.
type Settings struct {
	BindHost string
	Workers  int
	Threads  int
	Timeout  RequestTimeout

	// App is the WSGI entry point in module:callable form.
	App string

	// LocalPort, when non-zero, is used only if the platform supplies no
	// PORT. Meant for local runs outside a managed environment.
	LocalPort int
}

// DefaultSettings returns the production launch shape: all interfaces, one
// worker process, eight threads. The timeout is deliberately absent; it is
// a required configuration input.
func DefaultSettings(timeout RequestTimeout) Settings {
	return Settings{
		BindHost: "0.0.0.0",
		Workers:  1,
		Threads:  8,
		Timeout:  timeout,
		App:      "app:app",
	}
}

func (s Settings) validate() error {
	if s.BindHost == "" {
		return errors.New("bind host must not be empty")
	}
	if s.Workers < 1 {
		return fmt.Errorf("worker count must be >= 1, got %d", s.Workers)
	}
	if s.Threads < 1 {
		return fmt.Errorf("thread count must be >= 1, got %d", s.Threads)
	}
	if s.App == "" {
		return errors.New("WSGI entry point must not be empty")
	}
	if !strings.Contains(s.App, ":") {
		return fmt.Errorf("WSGI entry point %q must be in module:callable form", s.App)
	}
	if s.LocalPort < 0 || s.LocalPort > 65535 {
		return fmt.Errorf("local fallback port %d out of range", s.LocalPort)
	}
	return nil
}

// Params is the immutable launch record: Settings plus the resolved port.
// Constructed once at process start and never mutated afterwards.
type Params struct {
	settings Settings
	port     int
}

// NewParams validates the settings and resolves the listen port from the
// environment via lookup (usually os.LookupEnv). The platform-supplied
// PORT always wins; the local fallback applies only when it is absent.
func NewParams(settings Settings, lookup func(string) (string, bool)) (Params, error) {
	if err := settings.validate(); err != nil {
		return Params{}, err
	}

	raw, ok := lookup(PortEnvVar)
	if !ok || raw == "" {
		if settings.LocalPort == 0 {
			return Params{}, ErrPortUnset
		}
		return Params{settings: settings, port: settings.LocalPort}, nil
	}

	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return Params{}, fmt.Errorf("invalid PORT value %q", raw)
	}

	return Params{settings: settings, port: port}, nil
}

// Port returns the resolved listen port.
func (p Params) Port() int {
	return p.port
}

// Workers returns the worker process count.
func (p Params) Workers() int {
	return p.settings.Workers
}

// Threads returns the per-worker thread count.
func (p Params) Threads() int {
	return p.settings.Threads
}

// Timeout returns the request timeout.
func (p Params) Timeout() RequestTimeout {
	return p.settings.Timeout
}

// BindAddr returns the host:port the server binds to.
func (p Params) BindAddr() string {
	return fmt.Sprintf("%s:%d", p.settings.BindHost, p.port)
}

// Command returns the exact server argv, e.g.
//
//	gunicorn --bind 0.0.0.0:8080 --workers 1 --threads 8 --timeout 300 app:app
func (p Params) Command() []string {
	return []string{
		"gunicorn",
		"--bind", p.BindAddr(),
		"--workers", strconv.Itoa(p.settings.Workers),
		"--threads", strconv.Itoa(p.settings.Threads),
		"--timeout", p.settings.Timeout.Arg(),
		p.settings.App,
	}
}

// CommandTemplate returns the entry command with the port left as a shell
// expansion, for baking into an image whose port is injected at start.
func (s Settings) CommandTemplate() (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("exec gunicorn --bind %s:$PORT --workers %d --threads %d --timeout %s %s",
		s.BindHost, s.Workers, s.Threads, s.Timeout.Arg(), s.App), nil
}

func (p Params) String() string {
	return strings.Join(p.Command(), " ")
}
