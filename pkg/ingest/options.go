package ingest

import (
	"github.com/peekapi-dev/telemetry-go/pkg/config"
)

// OptionsFromConfig builds an Options value from the ambient ClientConfig,
// layering apiKey on top since credentials are never baked into config
// files. Per-call fields passed directly to New still take precedence over
// whatever this function returns, since callers construct the Options
// value themselves and may further override it before calling New.
func OptionsFromConfig(cfg config.ClientConfig, apiKey string) Options {
	return Options{
		APIKey:          apiKey,
		Endpoint:        cfg.Endpoint,
		FlushInterval:   cfg.FlushInterval,
		BatchSize:       cfg.BatchSize,
		MaxBufferSize:   cfg.MaxBufferSize,
		MaxEventBytes:   cfg.MaxEventBytes,
		MaxStorageBytes: cfg.MaxStorageBytes,
		StoragePath:     cfg.StoragePath,
		RequestTimeout:  cfg.RequestTimeout,
		TLS: TLSConfig{
			CertFile:           cfg.TLS.CertFile,
			KeyFile:            cfg.TLS.KeyFile,
			CAFile:             cfg.TLS.CAFile,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		},
	}
}
