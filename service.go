package zlog

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	stateUninit int32 = iota
	stateInitialized
	stateStopping
	stateStopped
)

// Service is the Facade of spec.md §4.1: the single process-global logging
// service. Its lifecycle follows the state machine of §4.9
// (Uninit→Initialized→Stopping→Stopped). configMu is the "configuration"
// lock of §5; it is always acquired before the file lock held inside
// fileSinkManager, and never after the queue lock, matching the
// configuration→file→queue ordering.
type Service struct {
	configMu sync.Mutex
	cfg      Config

	state           atomic.Int32
	outputMode      atomic.Uint32
	minLevel        atomic.Int32
	shutdownTimeout atomic.Int64

	queue   *recordQueue
	console *consoleSink
	fileMgr *fileSinkManager
	metrics *Metrics
	clock   *coarseClock

	workerWG sync.WaitGroup
}

// New constructs an uninitialized Service. Most applications should use
// Default instead, per Design Note "Process-wide singleton".
func New() *Service {
	clock := newCoarseClock()
	s := &Service{
		queue:   newRecordQueue(defaultMaxCacheSize),
		console: newConsoleSink(),
		fileMgr: newFileSinkManager(clock),
		metrics: newMetrics(),
		clock:   clock,
	}
	s.fileMgr.onInternalError = s.selfLog
	return s
}

var (
	defaultOnce sync.Once
	defaultSvc  *Service
)

// Default returns the lazily-constructed process-wide singleton, mirroring
// the teacher's logger.Default()/SetDefault pair (logger/default.go).
func Default() *Service {
	defaultOnce.Do(func() {
		defaultSvc = New()
	})
	return defaultSvc
}

// Initialize transitions Uninit→Initialized: it creates the output
// directory, builds the default level paths, opens active files if
// FileMode is AlwaysOpen, and starts the Async Worker. It is idempotent:
// calling it again while already initialized returns nil without effect.
func (s *Service) Initialize(cfg Config) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	if s.state.Load() != stateUninit {
		return nil
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("zlog: create output directory: %w", err)
	}

	s.cfg = cfg
	s.outputMode.Store(uint32(cfg.OutputMode))
	s.minLevel.Store(int32(cfg.MinLevel))
	s.shutdownTimeout.Store(cfg.ShutdownTimeout)
	s.queue.setCapacity(cfg.MaxCacheSize)

	if err := s.fileMgr.reconfigure(cfg); err != nil {
		return err
	}

	s.clock.start()
	s.workerWG.Add(1)
	go s.runWorker()

	s.state.Store(stateInitialized)
	return nil
}

// ShouldLog is the predicate of spec.md §6: true iff the service is
// initialized and level is at or above the configured minimum. The
// call-site builder/Stream types use this to short-circuit argument
// evaluation for rejected levels, the language-idiomatic substitute for
// the omitted macro front-end (Design Note "Macros → language-idiomatic
// alternatives").
func (s *Service) ShouldLog(level Level) bool {
	return s.state.Load() == stateInitialized && level >= Level(s.minLevel.Load())
}

// Submit is the Facade's submission entry point (spec.md §4.1/§6). It is
// non-blocking except for the queue lock: the fast path rejects by
// min_level/initialized before touching the queue at all, and on overflow
// it increments the drop counter and returns without error.
func (s *Service) Submit(level Level, message, filePath, functionName string, lineNumber int) {
	if !s.ShouldLog(level) {
		return
	}

	rec := getRecord()
	rec.Level = level
	rec.Message = message
	rec.FilePath = filePath
	rec.FunctionName = functionName
	rec.LineNumber = lineNumber
	rec.Timestamp = s.clock.Now()
	rec.ThreadID = callerGoroutineID()

	// The sequence is stamped under the queue lock so that queue order, and
	// therefore delivery order, follows sequence order across producers.
	q := s.queue
	q.mu.Lock()
	rec.Sequence = s.metrics.acceptRecord(level)
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		s.metrics.addDropped(1)
		putRecord(rec)
		return
	}
	q.items = append(q.items, rec)
	q.mu.Unlock()
	q.cond.Signal()
}

// Flush waits up to one second for the queue to empty, then flushes any
// open file streams. It does not guarantee emptiness if submissions
// continue concurrently.
func (s *Service) Flush() {
	deadline := time.Now().Add(time.Second)
	for s.queue.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	s.fileMgr.flushAll()
}

// Shutdown transitions Initialized→Stopping immediately (new submissions
// are rejected from this point on), waits up to timeoutMs for the queue to
// drain, then discards any residual records as dropped, stops and joins
// the worker, and closes every open file. It is safe to call multiple
// times; calls after the first have no effect and return ErrAlreadyShutdown
// once shutdown has completed (nil while another call is still draining).
// Called on a service that was never initialized it returns
// ErrNotInitialized.
func (s *Service) Shutdown(timeoutMs int64) error {
	if timeoutMs <= 0 {
		timeoutMs = s.shutdownTimeout.Load()
	}
	if timeoutMs <= 0 {
		timeoutMs = defaultShutdownMS
	}

	if !s.state.CompareAndSwap(stateInitialized, stateStopping) {
		switch s.state.Load() {
		case stateUninit:
			return ErrNotInitialized
		case stateStopped:
			return ErrAlreadyShutdown
		default:
			return nil // currently stopping: a concurrent Shutdown owns the drain
		}
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for s.queue.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	residual := s.queue.drainAll()
	if len(residual) > 0 {
		s.metrics.addDropped(uint64(len(residual)))
		for _, r := range residual {
			putRecord(r)
		}
	}

	s.queue.stop()
	s.workerWG.Wait()
	s.fileMgr.closeAll()

	s.state.Store(stateStopped)
	return nil
}

// RotateNow forces rotation of the active routing set under the file
// lock, regardless of the configured policy.
func (s *Service) RotateNow() {
	s.fileMgr.rotateNow()
}

// MetricsSnapshot returns a point-in-time copy of every counter in
// spec.md §4.8, with QueueSize sampled under the queue lock.
func (s *Service) MetricsSnapshot() Snapshot {
	return s.metrics.snapshot(s.queue.len())
}

// selfLog is the guarded self-logging path of spec.md §7/§9: internal
// component failures report through the service itself only while it is
// fully initialized, preventing re-entry during bring-up or tear-down.
func (s *Service) selfLog(level Level, msg string) {
	if s.state.Load() != stateInitialized {
		return
	}
	s.Submit(level, msg, "", "", 0)
}

// mutateConfig applies fn to a copy of the current configuration, validates
// the result, installs it, and pushes any routing/mode-affecting fields
// through to the file sink manager, all under the configuration lock,
// which is acquired before the file lock inside fileMgr.reconfigure,
// matching §5's configuration→file ordering.
func (s *Service) mutateConfig(fn func(*Config) error) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	cfg := s.cfg
	if err := fn(&cfg); err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	s.cfg = cfg
	s.outputMode.Store(uint32(cfg.OutputMode))
	s.minLevel.Store(int32(cfg.MinLevel))
	s.shutdownTimeout.Store(cfg.ShutdownTimeout)
	s.queue.setCapacity(cfg.MaxCacheSize)

	if s.state.Load() == stateUninit {
		return nil
	}
	return s.fileMgr.reconfigure(cfg)
}

// SetProgramName sets the configured program name.
func (s *Service) SetProgramName(name string) error {
	return s.mutateConfig(func(c *Config) error {
		if name == "" {
			return fmt.Errorf("%w: program_name must not be empty", ErrInvalidConfig)
		}
		c.ProgramName = name
		return nil
	})
}

// SetOutputDirectory changes the output directory, relocating every
// existing level path and the single-file path under it while preserving
// their filenames (custom names set via SetLevelFile/SetSingleFilePath
// survive the move). Records already enqueued are not retargeted: the file
// sink resolves a record's path when it is dispatched, so records submitted
// before the change may land in the files under the new directory.
func (s *Service) SetOutputDirectory(dir string) error {
	return s.mutateConfig(func(c *Config) error {
		if dir == "" {
			return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
		}
		c.OutputDir = dir
		// Pre-Initialize, LevelPaths is still nil: leave it for applyDefaults
		// to populate fresh under the new directory rather than relocating an
		// empty map.
		if len(c.LevelPaths) > 0 {
			c.LevelPaths = relocateLevelPaths(c.LevelPaths, dir)
		}
		if c.SingleFilePath != "" {
			c.SingleFilePath = relocatePath(c.SingleFilePath, dir)
		}
		return nil
	})
}

// SetMaxLogSize sets the size-rotation threshold in bytes.
func (s *Service) SetMaxLogSize(n int64) error {
	return s.mutateConfig(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max_log_size must be > 0", ErrInvalidConfig)
		}
		c.MaxLogSize = n
		return nil
	})
}

// SetMaxCacheSize sets the queue capacity. Per spec.md §4.2 this does not
// trim an already-longer queue; the excess drains naturally.
func (s *Service) SetMaxCacheSize(n int) error {
	return s.mutateConfig(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max_cache_size must be > 0", ErrInvalidConfig)
		}
		c.MaxCacheSize = n
		return nil
	})
}

// SetMaxBufferSize sets the underlying file stream buffer size.
func (s *Service) SetMaxBufferSize(n int) error {
	return s.mutateConfig(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max_buffer_size must be > 0", ErrInvalidConfig)
		}
		c.MaxBufferSize = n
		return nil
	})
}

// SetMinLevel sets the severity floor applied at submission.
func (s *Service) SetMinLevel(level Level) error {
	return s.mutateConfig(func(c *Config) error {
		c.MinLevel = level
		return nil
	})
}

// SetOutputMode sets the CONSOLE/FILE/COLOR bitmask.
func (s *Service) SetOutputMode(mode OutputMode) error {
	return s.mutateConfig(func(c *Config) error {
		c.OutputMode = mode
		return nil
	})
}

// SetFileMode switches between AlwaysOpen and OpenOnWrite.
func (s *Service) SetFileMode(mode FileMode) error {
	return s.mutateConfig(func(c *Config) error {
		c.FileMode = mode
		return nil
	})
}

// SetRotatePolicy sets the Rotator's trigger condition.
func (s *Service) SetRotatePolicy(policy RotatePolicy) error {
	return s.mutateConfig(func(c *Config) error {
		c.RotatePolicy = policy
		return nil
	})
}

// SetLevelFile overrides the file path for a single level.
func (s *Service) SetLevelFile(level Level, path string) error {
	return s.mutateConfig(func(c *Config) error {
		if path == "" {
			return fmt.Errorf("%w: level path must not be empty", ErrInvalidConfig)
		}
		paths := make(map[Level]string, len(c.LevelPaths))
		for k, v := range c.LevelPaths {
			paths[k] = v
		}
		paths[level] = path
		c.LevelPaths = paths
		return nil
	})
}

// SetSingleFileOutput toggles unified-file routing. Enabling it adopts
// SingleFileLevel's own per-level path as the unified path, matching
// original_source's setOutputMode(mode, singleFile, level) overload; call
// SetSingleFilePath afterward to override with an explicit path.
func (s *Service) SetSingleFileOutput(enabled bool) error {
	return s.mutateConfig(func(c *Config) error {
		c.SingleFileOutput = enabled
		if enabled {
			c.SingleFilePath = adoptLevelPath(c.LevelPaths, c.SingleFileLevel, c.OutputDir)
		}
		return nil
	})
}

// SetSingleFileLevel sets which level's path the unified file adopts when
// single-file output is enabled, re-adopting it immediately if single-file
// output is already on (original_source's setOutputMode re-resolves
// singleFilePath_ from filePaths_[level] every time level changes).
func (s *Service) SetSingleFileLevel(level Level) error {
	return s.mutateConfig(func(c *Config) error {
		c.SingleFileLevel = level
		if c.SingleFileOutput {
			c.SingleFilePath = adoptLevelPath(c.LevelPaths, level, c.OutputDir)
		}
		return nil
	})
}

// SetSingleFilePath sets the explicit unified-file path.
func (s *Service) SetSingleFilePath(path string) error {
	return s.mutateConfig(func(c *Config) error {
		if path == "" {
			return fmt.Errorf("%w: single_file_path must not be empty", ErrInvalidConfig)
		}
		c.SingleFilePath = path
		return nil
	})
}
