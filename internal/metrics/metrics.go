// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "villagebank"

// Invite resolution outcomes.
const (
	OutcomeJoined        = "joined"
	OutcomeSuspended     = "suspended"
	OutcomeAlreadyMember = "already_member"
	OutcomeInvalid       = "invalid"
	OutcomeConflict      = "conflict"
	OutcomeError         = "error"
)

// Metrics is a private registry with the service's collectors. Each server
// (and each test) gets its own so registrations never collide.
type Metrics struct {
	Registry *prometheus.Registry

	RPCRequests       *prometheus.CounterVec
	RPCDuration       *prometheus.HistogramVec
	GroupsCreated     prometheus.Counter
	InvitesIssued     prometheus.Counter
	InviteResolutions *prometheus.CounterVec
	LedgerEntries     *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		GroupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_created_total",
			Help:      "Groups created.",
		}),
		InvitesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_issued_total",
			Help:      "Invite tokens issued.",
		}),
		InviteResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_resolutions_total",
			Help:      "Invite resolutions by outcome.",
		}, []string{"outcome"}),
		LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Savings and loans recorded.",
		}, []string{"kind"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RPCRequests,
		m.RPCDuration,
		m.GroupsCreated,
		m.InvitesIssued,
		m.InviteResolutions,
		m.LedgerEntries,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
