package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrObj описывает ошибку в записи лога
type ErrObj struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// Entry — единая схема записи лога для всех сервисов
type Entry struct {
	Action     string         // имя события, например booking_created
	Message    string         // человекочитаемое описание
	RequestID  string         // correlation id запроса
	CarID      string         // когда применимо
	BookingID  string         // когда применимо
	Error      *ErrObj        // только для ошибок
	Additional map[string]any // дополнительные поля
}

// Logger — структурированный JSON логгер поверх zap
type Logger struct {
	z *zap.Logger
}

// ParseLevel переводит строку уровня в zapcore.Level, по умолчанию INFO
func ParseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger создает логгер сервиса, уровень берется из LOG_LEVEL
func NewLogger(service string) *Logger {
	return NewLoggerWithLevel(service, os.Getenv("LOG_LEVEL"))
}

// NewLoggerWithLevel создает логгер с явным минимальным уровнем.
// LOG_PRETTY=true переключает вывод на человекочитаемый console encoder.
func NewLoggerWithLevel(service, level string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.LevelKey = "level"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(os.Getenv("LOG_PRETTY"), "true") {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	min := ParseLevel(level)
	out := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= min && l < zapcore.ErrorLevel
	}))
	errOut := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= min && l >= zapcore.ErrorLevel
	}))

	host, _ := os.Hostname()
	z := zap.New(zapcore.NewTee(out, errOut), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("service", service), zap.String("hostname", host))

	return &Logger{z: z}
}

// New оборачивает готовый *zap.Logger (используется в тестах с observer)
func New(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// NewNop возвращает логгер, который ничего не пишет
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// With возвращает дочерний логгер с постоянными полями
func (l *Logger) With(fields map[string]any) *Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{z: l.z.With(zf...)}
}

// Sync сбрасывает буферы
func (l *Logger) Sync() {
	_ = l.z.Sync()
}

func (l *Logger) Debug(e Entry) { l.z.Debug(e.Message, fields(e)...) }
func (l *Logger) Info(e Entry)  { l.z.Info(e.Message, fields(e)...) }
func (l *Logger) Warn(e Entry)  { l.z.Warn(e.Message, fields(e)...) }
func (l *Logger) Error(e Entry) { l.z.Error(e.Message, fields(e)...) }

// Fatal пишет запись со стеком и завершает процесс
func (l *Logger) Fatal(e Entry) {
	if e.Error == nil {
		e.Error = &ErrObj{Msg: e.Message}
	}
	l.z.Fatal(e.Message, append(fields(e), zap.Stack("stack"))...)
}

func fields(e Entry) []zap.Field {
	f := make([]zap.Field, 0, 6+len(e.Additional))
	f = append(f, zap.String("action", e.Action))
	if e.RequestID != "" {
		f = append(f, zap.String("request_id", e.RequestID))
	}
	if e.CarID != "" {
		f = append(f, zap.String("car_id", e.CarID))
	}
	if e.BookingID != "" {
		f = append(f, zap.String("booking_id", e.BookingID))
	}
	if e.Error != nil {
		f = append(f, zap.Dict("error",
			zap.String("msg", e.Error.Msg),
			zap.String("stack", e.Error.Stack),
		))
	}
	if len(e.Additional) > 0 {
		f = append(f, zap.Any("additional", e.Additional))
	}
	return f
}
