// Package health periodically probes the bot API and raises an alert after
// repeated failures, so an unattended bridge notices API outages.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opteee-ai/opteee/internal/botapi"
	"github.com/opteee-ai/opteee/internal/logging"
)

const probeTimeout = 15 * time.Second

// AlertFunc is invoked once when consecutive failures reach the threshold.
type AlertFunc func(consecutive int, err error)

// Monitor runs health probes on a cron schedule.
type Monitor struct {
	api        *botapi.Client
	schedule   string
	alertAfter int
	alert      AlertFunc
	cron       *cron.Cron

	mu       sync.Mutex
	failures int
	alerted  bool
	started  bool
}

// NewMonitor creates a monitor probing api on the given cron schedule.
func NewMonitor(api *botapi.Client, schedule string, alertAfter int, alert AlertFunc) *Monitor {
	return &Monitor{
		api:        api,
		schedule:   schedule,
		alertAfter: alertAfter,
		alert:      alert,
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// Start registers the probe and begins cron execution.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("health monitor already started")
	}

	if _, err := m.cron.AddFunc(m.schedule, func() { m.Probe(ctx) }); err != nil {
		return fmt.Errorf("register health probe %q: %w", m.schedule, err)
	}
	m.cron.Start()
	m.started = true
	return nil
}

// Stop halts cron execution, waiting for a running probe to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// Probe performs one health check and updates failure accounting.
func (m *Monitor) Probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, err := m.api.Health(probeCtx)
	if err == nil && !status.Healthy() {
		err = fmt.Errorf("api reports status %q", status.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		if m.failures > 0 {
			logging.Logger().Info("api recovered", "after_failures", m.failures)
		}
		m.failures = 0
		m.alerted = false
		return
	}

	m.failures++
	logging.Logger().Warn("health probe failed", "consecutive", m.failures, "err", err)
	if m.failures >= m.alertAfter && !m.alerted {
		m.alerted = true
		if m.alert != nil {
			m.alert(m.failures, err)
		}
	}
}
