package ports

import "go.trai.ch/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds kiln.yaml by walking up from cwd and returns the validated configuration.
	Load(cwd string) (*domain.Config, error)

	// LoadFile reads the configuration from an explicit file path.
	LoadFile(path string) (*domain.Config, error)

	// DiscoverRoot walks up from cwd and returns the directory containing kiln.yaml.
	DiscoverRoot(cwd string) (string, error)
}
