package zlog

import "fmt"

// OutputMode is a bitmask selecting which sinks are active and whether
// console output is colorized.
type OutputMode uint8

const (
	ConsoleOut OutputMode = 1 << iota
	FileOut
	ColorOut
)

// FileMode selects how the File Sink Manager holds its underlying streams
// open.
type FileMode uint8

const (
	// AlwaysOpen keeps every active path's stream open for the service's
	// lifetime (subject to rotation reopens).
	AlwaysOpen FileMode = iota
	// OpenOnWrite opens, writes, flushes if needed, and closes on every
	// write; no handle is held between writes.
	OpenOnWrite
)

// RotatePolicy selects the Rotator's trigger condition.
type RotatePolicy uint8

const (
	// NoRotate never rotates.
	NoRotate RotatePolicy = iota
	// SizeRotate rotates once the active file reaches MaxLogSize bytes.
	SizeRotate
	// TimeRotate rotates on the first write after the local calendar day
	// changes. Synonym of DailyRotate in this implementation (spec.md's
	// Open Question leaves the two indistinguishable; see DESIGN.md).
	TimeRotate
	// DailyRotate is the synonym described above.
	DailyRotate
)

// Config holds every runtime-mutable setting described by the data model.
// It is populated by the embedding application (no file or environment
// parsing happens inside this package) and passed to Initialize, or applied
// incrementally through the Service's Set* methods.
type Config struct {
	ProgramName      string
	OutputDir        string
	MaxLogSize       int64
	MaxCacheSize     int
	MaxBufferSize    int
	MinLevel         Level
	OutputMode       OutputMode
	FileMode         FileMode
	RotatePolicy     RotatePolicy
	SingleFileOutput bool
	SingleFileLevel  Level
	SingleFilePath   string
	LevelPaths       map[Level]string

	// ShutdownTimeout is the default used by Shutdown when called with a
	// zero timeout argument.
	ShutdownTimeout int64 // milliseconds
}

const (
	defaultProgramName   = "main"
	defaultOutputDir     = "./zlog"
	defaultOutputFile    = "log.txt"
	defaultMaxLogSize    = 100 * 1024 * 1024
	defaultMaxCacheSize  = 1000
	defaultMaxBufferSize = 10 * 1024
	defaultShutdownMS    = 3000
)

// applyDefaults fills zero-value fields of cfg with the package defaults,
// mirroring the teacher's config-struct-plus-apply-defaults-function
// pattern (handler/filehandler.applyFileDefaults, handler/consolehandler.applyConsoleDefaults).
func applyDefaults(cfg *Config) {
	if cfg.ProgramName == "" {
		cfg.ProgramName = defaultProgramName
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.MaxLogSize <= 0 {
		cfg.MaxLogSize = defaultMaxLogSize
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = defaultMaxCacheSize
	}
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = defaultMaxBufferSize
	}
	if cfg.OutputMode == 0 {
		cfg.OutputMode = ConsoleOut | FileOut | ColorOut
	}
	if cfg.MinLevel == 0 {
		// TraceLevel is also the zero value, so an explicit request for
		// TraceLevel is indistinguishable from an unset field; original_source
		// always defaults minLevel_ to ZLOG_INFO in its constructor, so an
		// un-set Config follows the same default here.
		cfg.MinLevel = InfoLevel
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownMS
	}
	if cfg.LevelPaths == nil {
		cfg.LevelPaths = defaultLevelPaths(cfg.OutputDir)
	}
	if cfg.SingleFilePath == "" {
		cfg.SingleFilePath = cfg.OutputDir + "/" + defaultOutputFile
	}
}

func defaultLevelPaths(outputDir string) map[Level]string {
	paths := make(map[Level]string, len(allLevels))
	for _, lvl := range allLevels {
		paths[lvl] = outputDir + "/" + lvl.fileStem() + "_log.txt"
	}
	return paths
}

// relocatePath rewrites path's directory component to dir while preserving
// its filename, matching original_source's setOutputDirectory (it rewrites
// each known path's directory but keeps the existing filename rather than
// regenerating a default one).
func relocatePath(path, dir string) string {
	return dir + "/" + basename(path)
}

// relocateLevelPaths relocates every entry of paths under dir, preserving
// filenames (including any custom ones set via SetLevelFile).
func relocateLevelPaths(paths map[Level]string, dir string) map[Level]string {
	relocated := make(map[Level]string, len(paths))
	for lvl, p := range paths {
		relocated[lvl] = relocatePath(p, dir)
	}
	return relocated
}

// adoptLevelPath resolves the path single-file output should adopt for
// level, matching original_source's setOutputMode(mode, singleFile, level)
// overload: adopt the level's own path if known, else fall back to the
// default unified file name under outputDir.
func adoptLevelPath(levelPaths map[Level]string, level Level, outputDir string) string {
	if p, ok := levelPaths[level]; ok && p != "" {
		return p
	}
	return outputDir + "/" + defaultOutputFile
}

func validateConfig(cfg Config) error {
	if cfg.ProgramName == "" {
		return fmt.Errorf("%w: program_name must not be empty", ErrInvalidConfig)
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	}
	if cfg.MaxLogSize <= 0 {
		return fmt.Errorf("%w: max_log_size must be > 0", ErrInvalidConfig)
	}
	if cfg.MaxCacheSize <= 0 {
		return fmt.Errorf("%w: max_cache_size must be > 0", ErrInvalidConfig)
	}
	if cfg.MaxBufferSize <= 0 {
		return fmt.Errorf("%w: max_buffer_size must be > 0", ErrInvalidConfig)
	}
	return nil
}
