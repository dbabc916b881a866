package domain

import "go.trai.ch/zerr"

// ErrConfiguration is the cause of every configuration problem detected before a build starts.
// Use errors.Is(err, ErrConfiguration) to tell them apart from task failures.
var ErrConfiguration = zerr.New("configuration error")

var (
	// ErrEntryNotFound is returned when an entry glob matches no discovered file.
	ErrEntryNotFound = zerr.Wrap(ErrConfiguration, "entry point matches no source file")

	// ErrAmbiguousEntry is returned when an entry glob matches more than one discovered file.
	ErrAmbiguousEntry = zerr.Wrap(ErrConfiguration, "entry point matches more than one source file")

	// ErrSatelliteWithoutEntry is returned when a satellite file exists but its aggregate entry is not configured.
	ErrSatelliteWithoutEntry = zerr.Wrap(ErrConfiguration, "satellite file has no entry point to build it")

	// ErrDestinationCollision is returned when two sources derive the same destination path.
	ErrDestinationCollision = zerr.Wrap(ErrConfiguration, "destination is produced by more than one source")

	// ErrDuplicateSource is returned when a source file is bound in the watch map twice.
	ErrDuplicateSource = zerr.Wrap(ErrConfiguration, "source is already bound to a task")

	// ErrUnclassifiedSources is returned when sources match no classification rule.
	ErrUnclassifiedSources = zerr.Wrap(ErrConfiguration, "source files match no classification rule")

	// ErrModuleNotInstalled is returned when a server-side module is missing from the node modules directory.
	ErrModuleNotInstalled = zerr.Wrap(ErrConfiguration, "server-side module is not installed")

	// ErrModuleEntryMissing is returned when a server-side module's main file does not exist.
	ErrModuleEntryMissing = zerr.Wrap(ErrConfiguration, "server-side module entry file not found")

	// ErrInvalidPattern is returned when a glob pattern does not compile.
	ErrInvalidPattern = zerr.Wrap(ErrConfiguration, "invalid glob pattern")

	// ErrInvalidUpstream is returned when the upstream origin is not an absolute http(s) URL.
	ErrInvalidUpstream = zerr.Wrap(ErrConfiguration, "upstream origin must be an absolute http or https URL")

	// ErrInvalidPort is returned when the server port is out of range.
	ErrInvalidPort = zerr.Wrap(ErrConfiguration, "server port must be between 1 and 65535")

	// ErrInvalidAssetsPrefix is returned when the assets prefix is not an absolute URL path.
	ErrInvalidAssetsPrefix = zerr.Wrap(ErrConfiguration, "assets prefix must start with '/' and must not be '/'")

	// ErrOverlappingExtensions is returned when an extension is both transpiled and copied.
	ErrOverlappingExtensions = zerr.Wrap(ErrConfiguration, "extension is configured for more than one action")

	// ErrDestinationOverlapsSource is returned when the destination root equals or contains the source root.
	ErrDestinationOverlapsSource = zerr.Wrap(ErrConfiguration, "destination root must not equal or contain the source root")

	// ErrInvalidModuleName is returned when a server-side module name is not a plain package name.
	ErrInvalidModuleName = zerr.Wrap(ErrConfiguration, "invalid server-side module name")

	// ErrPathOutsideRoot is returned when a configured output override escapes the destination root.
	ErrPathOutsideRoot = zerr.Wrap(ErrConfiguration, "path escapes its root directory")

	// ErrSourceRootMissing is returned when the source root does not exist or is not a directory.
	ErrSourceRootMissing = zerr.Wrap(ErrConfiguration, "source root is not a directory")

	// ErrConfigNotFound is returned when no configuration file can be found.
	ErrConfigNotFound = zerr.Wrap(ErrConfiguration, "could not find "+ConfigFileName)

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.Wrap(ErrConfiguration, "failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.Wrap(ErrConfiguration, "failed to parse config file")
)

var (
	// ErrBuildExecutionFailed is returned when one or more tasks of a build fail.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a single task fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrTransformFailed is returned when a compiler, bundler or preprocessor rejects a source.
	ErrTransformFailed = zerr.New("transform failed")

	// ErrUnsupportedAction is returned when no transformer handles an action.
	ErrUnsupportedAction = zerr.New("unsupported action")

	// ErrSourceReadFailed is returned when a source file cannot be read.
	ErrSourceReadFailed = zerr.New("failed to read source file")

	// ErrDestinationWriteFailed is returned when a destination file cannot be written.
	ErrDestinationWriteFailed = zerr.New("failed to write destination file")

	// ErrCommandFailed is returned when an external compiler exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")

	// ErrStoreOpenFailed is returned when the build state database cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open build state database")

	// ErrStoreReadFailed is returned when build info cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info")

	// ErrStoreUnmarshalFailed is returned when build info cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal build info")

	// ErrStoreMarshalFailed is returned when build info cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal build info")

	// ErrStoreWriteFailed is returned when build info cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info")

	// ErrInputHashComputationFailed is returned when input hash computation fails.
	ErrInputHashComputationFailed = zerr.New("failed to compute input hash")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrWriteHashFailed is returned when writing the hash to the digest fails.
	ErrWriteHashFailed = zerr.New("failed to write hash to digest")

	// ErrWalkFailed is returned when the source tree cannot be walked.
	ErrWalkFailed = zerr.New("failed to walk source tree")

	// ErrWatcherStartFailed is returned when the file system watcher cannot start.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")

	// ErrServerFailed is returned when the development server stops unexpectedly.
	ErrServerFailed = zerr.New("development server failed")
)
