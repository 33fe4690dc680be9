package inspector

import (
	"fmt"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level string, format string, args ...any) string {
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.prefixf("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

// ZapLogger adapts a zap logger to Logger. Debug output follows the zap
// level; SetDebug moves the level between debug and the configured one.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
	base  zapcore.Level
}

// NewZapLogger builds a zap logger. format is "json" or "console"; an
// unparsable level falls back to info.
func NewZapLogger(level string, format string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return WrapZap(z, zapCfg.Level), nil
}

// WrapZap adapts an existing zap logger whose level is controlled by level.
func WrapZap(z *zap.Logger, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{sugar: z.Sugar(), level: level, base: level.Level()}
}

func (l *ZapLogger) DebugEnabled() bool { return l.level.Enabled(zapcore.DebugLevel) }

func (l *ZapLogger) SetDebug(enabled bool) {
	if enabled {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	l.level.SetLevel(l.base)
}

func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Zap returns the underlying zap logger for packages that log with zap
// directly.
func (l *ZapLogger) Zap() *zap.Logger { return l.sugar.Desugar() }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

// LoggingModule installs a logger as a resource and makes it the package
// logger used by the stateless hierarchy helpers. An empty Format selects
// DefaultLogger, "console" or "json" select zap.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Level  string
	Format string
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	var logger Logger
	if m.Format == "" {
		logger = NewDefaultLogger(m.Prefix, m.Debug)
	} else {
		level := m.Level
		if m.Debug {
			level = "debug"
		}
		zl, err := NewZapLogger(level, m.Format)
		if err != nil {
			fallback := NewDefaultLogger(m.Prefix, m.Debug)
			fallback.Warnf("falling back to default logger: %v", err)
			logger = fallback
		} else {
			logger = zl
		}
	}
	app.addResources(logger)
	SetPackageLogger(logger)
}

// Nop logger and App helper accessor

type nopLogger struct{}

func NewNopLogger() Logger                             { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// Logger returns the first Logger resource if present, otherwise a no-op logger.
// Safe to call at any time; never returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	if app.resources != nil {
		for _, r := range app.resources {
			if l, ok := r.(Logger); ok {
				return l
			}
		}
	}
	return NewNopLogger()
}

var (
	packageLoggerMu sync.RWMutex
	packageLogger   Logger = NewNopLogger()
)

// SetPackageLogger sets the logger used by functions that have no App at
// hand (WorldPose, ScopedName, AsFullPath, ...). nil restores the no-op logger.
func SetPackageLogger(l Logger) {
	if l == nil {
		l = NewNopLogger()
	}
	packageLoggerMu.Lock()
	packageLogger = l
	packageLoggerMu.Unlock()
}

func pkgLog() Logger {
	packageLoggerMu.RLock()
	defer packageLoggerMu.RUnlock()
	return packageLogger
}
