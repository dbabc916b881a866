package config

// Kilnfile represents the structure of the kiln.yaml configuration file.
// Pointer and nil slice fields distinguish "not set" from an explicit zero value.
type Kilnfile struct {
	SourceRoot string `yaml:"sourceRoot"`
	DestRoot   string `yaml:"destRoot"`

	StyleEntry         string  `yaml:"styleEntry"`
	StyleOutput        string  `yaml:"styleOutput"`
	BundleEntry        string  `yaml:"bundleEntry"`
	BundleOutput       string  `yaml:"bundleOutput"`
	BundleAssetPattern *string `yaml:"bundleAssetPattern"`

	StyleExtensions     []string `yaml:"styleExtensions"`
	TranspileExtensions []string `yaml:"transpileExtensions"`
	StaticExtensions    []string `yaml:"staticExtensions"`
	Ignore              []string `yaml:"ignore"`
	AllowUnclassified   bool     `yaml:"allowUnclassified"`

	NodeModulesDir    string   `yaml:"nodeModulesDir"`
	ServerSideModules []string `yaml:"serverSideModules"`

	UpstreamOrigin string `yaml:"upstreamOrigin"`
	ServerPort     *int   `yaml:"serverPort"`
	AssetsPrefix   string `yaml:"assetsPrefix"`
	LiveReload     *bool  `yaml:"liveReload"`
	SourceMaps     *bool  `yaml:"sourceMaps"`

	Targets    []string `yaml:"targets"`
	SassBinary string   `yaml:"sassBinary"`
}
