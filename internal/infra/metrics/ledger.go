package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(ledgerOpsTotal)
}

var ledgerOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger debits/credits by result (ok/insufficient/error).",
	},
	[]string{"op", "result"},
)

func IncLedgerOp(op, result string) {
	ledgerOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
