package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	VaultsCreated prometheus.Counter
	CheckIns      *prometheus.CounterVec
	Attestations  *prometheus.CounterVec
	CycleResets   prometheus.Counter
	Cancellations prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		VaultsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vaults_created_total",
				Help: "Total vaults created.",
			},
		),
		CheckIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_check_ins_total",
				Help: "Check-in attempts by source and result.",
			},
			[]string{"source", "result"},
		),
		Attestations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_attestations_total",
				Help: "Attestation submissions by result.",
			},
			[]string{"result"},
		),
		CycleResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vault_cycle_resets_total",
				Help: "Warning cycles invalidated by an owner check-in.",
			},
		),
		Cancellations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vault_cancellations_total",
				Help: "Vaults cancelled by their owner.",
			},
		),
	}

	registry.MustRegister(
		m.VaultsCreated,
		m.CheckIns,
		m.Attestations,
		m.CycleResets,
		m.Cancellations,
	)
	return m
}
