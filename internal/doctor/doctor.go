// Package doctor runs connectivity diagnostics against the bot API: DNS
// resolution through the system resolver and explicit fallback nameservers,
// then HTTP reachability of the health endpoint. Every check runs even when
// earlier ones fail so the report shows the whole picture at once.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/opteee-ai/opteee/internal/botapi"
)

const dnsDialTimeout = 5 * time.Second

// Result is the outcome of one diagnostic check.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Runner executes the diagnostic sequence.
type Runner struct {
	api         *botapi.Client
	host        string
	nameservers []string

	// Injectable for tests.
	lookupHost func(ctx context.Context, host string) ([]string, error)
	lookupVia  func(ctx context.Context, nameserver, host string) ([]string, error)
}

// New creates a Runner for the API at baseURL.
func New(api *botapi.Client, baseURL string, nameservers []string) (*Runner, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("api base url %q has no host", baseURL)
	}

	return &Runner{
		api:         api,
		host:        host,
		nameservers: nameservers,
		lookupHost: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
		lookupVia: lookupVia,
	}, nil
}

func lookupVia(ctx context.Context, nameserver, host string) ([]string, error) {
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: dnsDialTimeout}
			return d.DialContext(ctx, network, net.JoinHostPort(nameserver, "53"))
		},
	}
	return resolver.LookupHost(ctx, host)
}

// Run executes all checks and reports whether every one passed.
func (r *Runner) Run(ctx context.Context) ([]Result, bool) {
	results := make([]Result, 0, len(r.nameservers)+2)

	results = append(results, r.checkSystemDNS(ctx))
	for _, ns := range r.nameservers {
		results = append(results, r.checkNameserver(ctx, ns))
	}
	results = append(results, r.checkHealth(ctx))

	allOK := true
	for _, res := range results {
		if !res.OK {
			allOK = false
		}
	}
	return results, allOK
}

func (r *Runner) checkSystemDNS(ctx context.Context) Result {
	name := "dns (system resolver)"
	addrs, err := r.lookupHost(ctx, r.host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("resolve %s: %v", r.host, err)}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%s -> %s", r.host, strings.Join(addrs, ", "))}
}

func (r *Runner) checkNameserver(ctx context.Context, nameserver string) Result {
	name := "dns @" + nameserver
	addrs, err := r.lookupVia(ctx, nameserver, r.host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("resolve %s: %v", r.host, err)}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%s -> %s", r.host, strings.Join(addrs, ", "))}
}

func (r *Runner) checkHealth(ctx context.Context) Result {
	name := "api health"
	status, err := r.api.Health(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !status.Healthy() {
		return Result{Name: name, Detail: fmt.Sprintf("api reachable but reports status %q", status.Status)}
	}
	return Result{Name: name, OK: true, Detail: "api reports " + status.Status}
}
