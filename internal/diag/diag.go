// Package diag implements process-level diagnostics: ping, DNS lookup,
// disk usage, and service status checks. All inputs come from the model
// and are validated before touching the system.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// hostPattern allows only characters that are safe to pass to a
// subprocess or resolver. Covers hostnames, IPv4 literals, and service
// names.
var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// DefaultTimeout bounds each diagnostic operation.
const DefaultTimeout = 10 * time.Second

// maxPIDs caps how many process IDs a service check reports.
const maxPIDs = 5

// Runner executes diagnostics with a shared timeout policy.
type Runner struct {
	logger   *slog.Logger
	timeout  time.Duration
	resolver *net.Resolver
}

// NewRunner creates a diagnostics runner. A zero timeout selects
// DefaultTimeout.
func NewRunner(logger *slog.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		logger:   logger,
		timeout:  timeout,
		resolver: net.DefaultResolver,
	}
}

// ValidateHost checks that host is a plausible hostname or IP address
// and safe to hand to a subprocess. Returns the trimmed host.
func ValidateHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" || len(host) > 253 {
		return "", fmt.Errorf("invalid host: %q", host)
	}
	if !hostPattern.MatchString(host) {
		return "", fmt.Errorf("host contains invalid characters: %q", host)
	}
	return host, nil
}

// PingResult is the outcome of a ping check.
type PingResult struct {
	Status string `json:"status"` // reachable, unreachable, timeout, error
	Host   string `json:"host"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Ping sends count ICMP echo requests to host via the system ping
// binary. Count is clamped to 1..10. A timed-out ping still returns a
// well-formed result, never an error.
func (r *Runner) Ping(ctx context.Context, host string, count int) (*PingResult, error) {
	host, err := ValidateHost(host)
	if err != nil {
		return nil, err
	}
	if count < 1 {
		count = 1
	}
	if count > 10 {
		count = 10
	}

	// Each packet can take up to its own 5s wait; pad the deadline.
	deadline := r.timeout + time.Duration(count)*2*time.Second
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	r.logger.Debug("ping", "host", host, "count", count)

	cmd := exec.CommandContext(ctx, "ping", "-c", strconv.Itoa(count), "-W", "5", host)
	out, err := cmd.CombinedOutput()
	output := string(out)

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return &PingResult{Status: "timeout", Host: host, Error: "ping timed out"}, nil
	case err == nil:
		return &PingResult{Status: "reachable", Host: host, Output: output}, nil
	default:
		if _, ok := err.(*exec.ExitError); ok {
			return &PingResult{Status: "unreachable", Host: host, Output: output}, nil
		}
		return &PingResult{Status: "error", Host: host, Error: err.Error()}, nil
	}
}

// validRecordTypes are the DNS record types a lookup accepts. Anything
// else falls back to A.
var validRecordTypes = map[string]bool{
	"A": true, "AAAA": true, "MX": true, "CNAME": true, "TXT": true, "NS": true,
}

// NormalizeRecordType upper-cases the record type and substitutes "A"
// for unrecognized values.
func NormalizeRecordType(recordType string) string {
	rt := strings.ToUpper(strings.TrimSpace(recordType))
	if !validRecordTypes[rt] {
		return "A"
	}
	return rt
}

// DNSResult is the outcome of a DNS lookup.
type DNSResult struct {
	Hostname   string   `json:"hostname"`
	RecordType string   `json:"record_type"`
	Records    []string `json:"records"`
	Error      string   `json:"error,omitempty"`
}

// DNSLookup resolves hostname for the given record type. Resolution
// failures are reported in the result, not as an error: the model can
// reason about NXDOMAIN the same way a human would.
func (r *Runner) DNSLookup(ctx context.Context, hostname, recordType string) (*DNSResult, error) {
	hostname, err := ValidateHost(hostname)
	if err != nil {
		return nil, err
	}
	rt := NormalizeRecordType(recordType)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Debug("dns lookup", "hostname", hostname, "record_type", rt)

	result := &DNSResult{Hostname: hostname, RecordType: rt, Records: []string{}}

	switch rt {
	case "A", "AAAA":
		ips, err := r.resolver.LookupIP(ctx, ipNetwork(rt), hostname)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		for _, ip := range ips {
			result.Records = append(result.Records, ip.String())
		}

	case "MX":
		mxs, err := r.resolver.LookupMX(ctx, hostname)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		for _, mx := range mxs {
			result.Records = append(result.Records, fmt.Sprintf("%d %s", mx.Pref, mx.Host))
		}

	case "CNAME":
		cname, err := r.resolver.LookupCNAME(ctx, hostname)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		result.Records = append(result.Records, cname)

	case "TXT":
		txts, err := r.resolver.LookupTXT(ctx, hostname)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		result.Records = append(result.Records, txts...)

	case "NS":
		nss, err := r.resolver.LookupNS(ctx, hostname)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		for _, ns := range nss {
			result.Records = append(result.Records, ns.Host)
		}
	}

	return result, nil
}

// ipNetwork maps a record type to the network argument of LookupIP.
func ipNetwork(recordType string) string {
	if recordType == "AAAA" {
		return "ip6"
	}
	return "ip4"
}

// ServiceResult is the outcome of a service status check.
type ServiceResult struct {
	Service string   `json:"service"`
	Status  string   `json:"status"` // running, not_running
	PIDs    []string `json:"pids,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ServiceStatus checks whether a process matching name is running,
// using pgrep. The service name is validated with the same character
// set as hostnames before reaching the subprocess.
func (r *Runner) ServiceStatus(ctx context.Context, name string) (*ServiceResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || !hostPattern.MatchString(name) {
		return nil, fmt.Errorf("invalid service name: %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Debug("service status", "service", name)

	cmd := exec.CommandContext(ctx, "pgrep", "-f", name)
	out, err := cmd.Output()

	if ctx.Err() == context.DeadlineExceeded {
		return &ServiceResult{Service: name, Error: "check timed out"}, nil
	}

	pids := strings.Fields(strings.TrimSpace(string(out)))
	if len(pids) > maxPIDs {
		pids = pids[:maxPIDs]
	}

	if len(pids) > 0 {
		return &ServiceResult{Service: name, Status: "running", PIDs: pids}, nil
	}

	// pgrep exits 1 when nothing matches; that's a clean "not running".
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return &ServiceResult{Service: name, Error: err.Error()}, nil
		}
	}
	return &ServiceResult{Service: name, Status: "not_running"}, nil
}
