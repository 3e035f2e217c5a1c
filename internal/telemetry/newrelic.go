package telemetry

import (
	"time"

	"example.com/backstage/services/interactions/config"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// connectTimeout bounds the wait for the agent's first handshake
const connectTimeout = 5 * time.Second

// InitNewRelic initializes the New Relic application. It returns nil, nil
// when monitoring is disabled or no license key is configured.
func InitNewRelic(cfg config.NewRelicConfig) (*newrelic.Application, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, err
	}

	// Wait for the application to connect
	if err := app.WaitForConnection(connectTimeout); err != nil {
		app.Shutdown(time.Second)
		return nil, err
	}

	return app, nil
}
