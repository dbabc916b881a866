package ports

import (
	"context"
	"net/url"
)

// DevServerConfig describes the watch mode HTTP front end.
type DevServerConfig struct {
	Port         int
	Upstream     *url.URL
	AssetsPrefix string
	DestRoot     string
	LiveReload   bool
}

// DevServer is the HTTP front end of watch mode.
//
//go:generate mockgen -source=dev_server.go -destination=mocks/mock_dev_server.go -package=mocks
type DevServer interface {
	// Serve listens until ctx is cancelled, then shuts down gracefully.
	Serve(ctx context.Context, cfg DevServerConfig) error

	// Reload notifies connected live reload clients that destinations changed.
	Reload(destinations []string)
}
