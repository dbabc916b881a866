package ports

// ModuleResolver locates the runtime file of an installed node module.
//
//go:generate mockgen -source=module_resolver.go -destination=mocks/mock_module_resolver.go -package=mocks
type ModuleResolver interface {
	// Resolve returns the slash separated path of the module's runtime file, relative to
	// nodeModulesDir and starting with the module name.
	Resolve(nodeModulesDir, module string) (string, error)
}
