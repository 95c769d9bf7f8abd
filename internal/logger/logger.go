// Package logger wraps a zap SugaredLogger with key/value redaction so that
// connection strings and credentials never reach the log stream.
package logger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured key/value logger.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for mode: "prod" gives JSON at info level, anything
// else a console logger at debug level. verbose lowers prod to debug.
func New(mode string, verbose bool) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		if !verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// FromCore wraps a zap core, e.g. an observer core in tests.
func FromCore(core zapcore.Core) *Logger {
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return &Logger{SugaredLogger: zap.NewNop().Sugar()} }

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

const redacted = "[REDACTED]"

func sanitizeKVs(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := fmt.Sprint(kv[i])
		out = append(out, key, sanitizeValue(strings.ToLower(key), kv[i+1]))
	}
	return out
}

func sanitizeValue(key string, val any) any {
	switch {
	case strings.Contains(key, "password"),
		strings.Contains(key, "secret"),
		strings.Contains(key, "token"):
		return redacted
	case strings.Contains(key, "dsn"):
		if s, ok := val.(string); ok {
			return RedactDSN(s)
		}
	}
	return val
}

// kvPassword matches password=... in key/value connection strings
// (libpq, ADO). Values end at whitespace or a semicolon.
var kvPassword = regexp.MustCompile(`(?i)(password|pwd)\s*=\s*[^\s;]*`)

// mysqlUserinfo matches user:pass@ in go-sql-driver DSNs, which are not URLs.
var mysqlUserinfo = regexp.MustCompile(`^([^:@/]+):[^@]*@`)

// RedactDSN masks the password of a connection string. It understands URL
// forms (postgres://, sqlserver://), key/value forms and MySQL DSNs; other
// strings are returned unchanged.
func RedactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil && u.User != nil {
			if _, has := u.User.Password(); has {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
			}
			q := u.Query()
			for k := range q {
				if lk := strings.ToLower(k); lk == "password" || lk == "pwd" {
					q.Set(k, "xxxxx")
				}
			}
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	if kvPassword.MatchString(dsn) {
		return kvPassword.ReplaceAllString(dsn, "${1}=xxxxx")
	}
	return mysqlUserinfo.ReplaceAllString(dsn, "${1}:xxxxx@")
}
