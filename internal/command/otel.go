package command

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "swarmops-sim/internal/command"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
