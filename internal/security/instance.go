package security

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrNoHardwareID is returned when the platform exposes no stable machine identifier.
var ErrNoHardwareID = errors.New("hardware identifier unavailable")

var platformUUIDPattern = regexp.MustCompile(`"IOPlatformUUID"\s*=\s*"([^"]+)"`)

// ProbeFunc returns a raw hardware identifier for the current machine.
type ProbeFunc func(ctx context.Context) (string, error)

// InstanceIdentifier resolves the hardware UUID of the machine. The first
// successful probe is cached for the life of the process.
type InstanceIdentifier struct {
	probe  ProbeFunc
	logger *slog.Logger

	mu     sync.Mutex
	cached string
}

// NewInstanceIdentifier creates an identifier using the platform probe.
func NewInstanceIdentifier(logger *slog.Logger) *InstanceIdentifier {
	return NewInstanceIdentifierWithProbe(platformProbe, logger)
}

// NewInstanceIdentifierWithProbe creates an identifier with a custom probe.
func NewInstanceIdentifierWithProbe(probe ProbeFunc, logger *slog.Logger) *InstanceIdentifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstanceIdentifier{
		probe:  probe,
		logger: logger.With(slog.String("component", "instance_identifier")),
	}
}

// HardwareUUID returns the machine's hardware UUID.
func (ii *InstanceIdentifier) HardwareUUID(ctx context.Context) (string, error) {
	ii.mu.Lock()
	defer ii.mu.Unlock()

	if ii.cached != "" {
		return ii.cached, nil
	}

	start := time.Now()
	id, err := ii.probe(ctx)
	if err != nil {
		ii.logger.DebugContext(ctx, "Hardware UUID probe failed",
			slog.String("os", runtime.GOOS),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNoHardwareID
	}

	ii.cached = id
	ii.logger.DebugContext(ctx, "Hardware UUID resolved",
		slog.String("os", runtime.GOOS),
		slog.Duration("probe_time", time.Since(start)),
	)
	return id, nil
}

func platformProbe(ctx context.Context) (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return probeDarwin(ctx)
	case "linux":
		return probeLinux()
	default:
		return "", fmt.Errorf("%w: unsupported os %s", ErrNoHardwareID, runtime.GOOS)
	}
}

// probeDarwin reads IOPlatformUUID from the IOPlatformExpertDevice registry entry
func probeDarwin(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", fmt.Errorf("%w: ioreg: %v", ErrNoHardwareID, err)
	}
	return ParseIORegUUID(out)
}

// ParseIORegUUID extracts IOPlatformUUID from ioreg output.
func ParseIORegUUID(out []byte) (string, error) {
	m := platformUUIDPattern.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("%w: IOPlatformUUID not present", ErrNoHardwareID)
	}
	return string(bytes.TrimSpace(m[1])), nil
}

func probeLinux() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: machine-id not readable", ErrNoHardwareID)
}
