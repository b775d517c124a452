// Copyright 2025 Certen Protocol
//
// Prometheus metrics for the PoJ node (§10.5). Grounded on pkg/server's
// convention of mounting HTTP handlers onto one mux alongside application
// logic; this package owns its own prometheus.Registry rather than using
// the global default one, so a node embedding this package never collides
// with another component's metric names.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/poj-chain/pkg/chainmgr"
	"github.com/certen/poj-chain/pkg/chainstore"
	"github.com/certen/poj-chain/pkg/registry"
)

// Metrics holds one counter/gauge per stats field named in §4B/§4D/§4E.
// The chain manager, registry and store report cumulative snapshot
// counters (Stats() structs), not deltas; Metrics tracks the last-seen
// value per counter so Sample can Add() the difference into a genuine
// Prometheus counter.
type Metrics struct {
	registry *prometheus.Registry

	operatorsRegistered counterTracker
	operatorsRemoved    counterTracker
	blocksValidated     counterTracker
	signaturesVerified  counterTracker
	signaturesFailed    counterTracker

	totalBlocks    prometheus.Gauge
	headSlot       prometheus.Gauge
	totalJudgments prometheus.Gauge

	blocksCreated    counterTracker
	blocksReceived   counterTracker
	blocksRejected   counterTracker
	blocksAnchored   counterTracker
	anchorsFailed    counterTracker
	blocksFinalized  counterTracker
	finalityTimeouts counterTracker
}

// counterTracker pairs a Prometheus counter with the last cumulative value
// observed, so repeated snapshot reads translate into correct Add() deltas.
type counterTracker struct {
	counter prometheus.Counter
	last    float64
}

func newCounterTracker(opts prometheus.CounterOpts) counterTracker {
	return counterTracker{counter: prometheus.NewCounter(opts)}
}

// observe advances the tracker to want, adding only the positive delta.
func (t *counterTracker) observe(want float64) {
	if delta := want - t.last; delta > 0 {
		t.counter.Add(delta)
		t.last = want
	}
}

// New constructs a Metrics instance with its own registry, registering
// every counter/gauge.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operatorsRegistered: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "registry", Name: "operators_registered_total",
			Help: "Operators registered, including the self operator.",
		}),
		operatorsRemoved: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "registry", Name: "operators_removed_total",
			Help: "Operators removed from the registry.",
		}),
		blocksValidated: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "registry", Name: "blocks_validated_total",
			Help: "Blocks passed to VerifyBlock.",
		}),
		signaturesVerified: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "registry", Name: "signatures_verified_total",
			Help: "Signature verifications that succeeded.",
		}),
		signaturesFailed: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "registry", Name: "signatures_failed_total",
			Help: "Signature verifications that failed.",
		}),
		totalBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poj", Subsystem: "store", Name: "total_blocks",
			Help: "Blocks currently held by the chain store.",
		}),
		headSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poj", Subsystem: "store", Name: "head_slot",
			Help: "Slot of the current head block, -1 if the store is empty.",
		}),
		totalJudgments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poj", Subsystem: "store", Name: "total_judgments",
			Help: "Judgments committed across all blocks in the store.",
		}),
		blocksCreated: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "blocks_created_total",
			Help: "Blocks this manager created from its own pending queue.",
		}),
		blocksReceived: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "blocks_received_total",
			Help: "Foreign blocks accepted via ReceiveBlock.",
		}),
		blocksRejected: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "blocks_rejected_total",
			Help: "Foreign blocks rejected via ReceiveBlock.",
		}),
		blocksAnchored: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "blocks_anchored_total",
			Help: "Blocks confirmed ANCHORED by the anchor queue.",
		}),
		anchorsFailed: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "anchors_failed_total",
			Help: "Anchor attempts that failed.",
		}),
		blocksFinalized: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "blocks_finalized_total",
			Help: "Blocks confirmed finalized over the optional P2P path.",
		}),
		finalityTimeouts: newCounterTracker(prometheus.CounterOpts{
			Namespace: "poj", Subsystem: "manager", Name: "finality_timeouts_total",
			Help: "Pending-finality waiters that expired before confirmation.",
		}),
	}

	reg.MustRegister(
		m.operatorsRegistered.counter, m.operatorsRemoved.counter, m.blocksValidated.counter,
		m.signaturesVerified.counter, m.signaturesFailed.counter,
		m.totalBlocks, m.headSlot, m.totalJudgments,
		m.blocksCreated.counter, m.blocksReceived.counter, m.blocksRejected.counter,
		m.blocksAnchored.counter, m.anchorsFailed.counter, m.blocksFinalized.counter, m.finalityTimeouts.counter,
	)
	return m
}

// Handler returns the promhttp handler serving this Metrics' registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Sample reads the current counters off reg, mgr and store and updates
// every metric. Counters only move forward, so Sample computes deltas
// against the last observed value; gauges are set directly.
func (m *Metrics) Sample(reg *registry.Registry, mgr *chainmgr.Manager, store chainstore.Store) {
	rs := reg.Stats()
	m.operatorsRegistered.observe(float64(rs.OperatorsRegistered))
	m.operatorsRemoved.observe(float64(rs.OperatorsRemoved))
	m.blocksValidated.observe(float64(rs.BlocksValidated))
	m.signaturesVerified.observe(float64(rs.SignaturesVerified))
	m.signaturesFailed.observe(float64(rs.SignaturesFailed))

	ms := mgr.Stats()
	m.blocksCreated.observe(float64(ms.BlocksCreated))
	m.blocksReceived.observe(float64(ms.BlocksReceived))
	m.blocksRejected.observe(float64(ms.BlocksRejected))
	m.blocksAnchored.observe(float64(ms.BlocksAnchored))
	m.anchorsFailed.observe(float64(ms.AnchorsFailed))
	m.blocksFinalized.observe(float64(ms.BlocksFinalized))
	m.finalityTimeouts.observe(float64(ms.FinalityTimeouts))

	if store != nil {
		if ss, err := store.Stats(); err == nil {
			m.totalBlocks.Set(float64(ss.TotalBlocks))
			m.headSlot.Set(float64(ss.HeadSlot))
			m.totalJudgments.Set(float64(ss.TotalJudgments))
		}
	}
}
