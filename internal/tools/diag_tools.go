package tools

import (
	"context"
	"fmt"
)

func (r *Registry) pingHost(ctx context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Diag == nil {
		return nil, fmt.Errorf("diagnostics not configured")
	}
	host := stringArg(args, "host")
	count := intArg(args, "count", 4)
	return r.deps.Diag.Ping(ctx, host, count)
}

func (r *Registry) dnsLookup(ctx context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Diag == nil {
		return nil, fmt.Errorf("diagnostics not configured")
	}
	hostname := stringArg(args, "hostname")
	recordType := stringArg(args, "record_type")
	return r.deps.Diag.DNSLookup(ctx, hostname, recordType)
}

func (r *Registry) checkDiskUsage(_ context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Diag == nil {
		return nil, fmt.Errorf("diagnostics not configured")
	}
	path := stringArg(args, "path")
	return r.deps.Diag.DiskUsage(path)
}

func (r *Registry) checkServiceStatus(ctx context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Diag == nil {
		return nil, fmt.Errorf("diagnostics not configured")
	}
	name := stringArg(args, "service_name")
	return r.deps.Diag.ServiceStatus(ctx, name)
}
