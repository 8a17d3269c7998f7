package api

import "time"

type Config struct {
	HTTPAddr        string        `envconfig:"WSD_HTTP_ADDR" default:"0.0.0.0:3121"`
	MetricsAddr     string        `envconfig:"WSD_METRICS_ADDR" default:"0.0.0.0:9090"`
	DBPath          string        `envconfig:"WSD_DB_PATH"`
	LogLevel        string        `envconfig:"WSD_LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"WSD_SHUTDOWN_TIMEOUT" default:"30s"`

	ProvisionerInterval time.Duration `envconfig:"WSD_PROVISIONER_INTERVAL" default:"10s"`
	ProvisionTimeout    time.Duration `envconfig:"WSD_PROVISION_TIMEOUT" default:"10m"`
	ProvisionFanout     int           `envconfig:"WSD_PROVISION_FANOUT" default:"8"`
	JanitorInterval     time.Duration `envconfig:"WSD_JANITOR_INTERVAL" default:"5m"`

	HetznerToken      string `envconfig:"WSD_HCLOUD_TOKEN"`
	HetznerServerType string `envconfig:"WSD_HCLOUD_SERVER_TYPE" default:"cx22"`
	HetznerLocation   string `envconfig:"WSD_HCLOUD_LOCATION" default:"fsn1"`
}
