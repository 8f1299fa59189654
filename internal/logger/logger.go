package logger

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/vendussync/internal/logger/config"
)

const (
	defaultBodyLimit = 512
	HeaderRequestID  = "X-Request-Id"
)

func NewZapLog(cfg config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zapcfg := zap.NewProductionConfig()
	if cfg.Development {
		zapcfg = zap.NewDevelopmentConfig()
	}
	zapcfg.Level = lvl
	return zapcfg.Build()
}

// RequestLogMdlw логирует входящий запрос и ответ.
// Тело обрезается: файлы SAF-T бывают большими.
func RequestLogMdlw(h http.HandlerFunc, zaplog *zap.Logger, bodyLimit int) http.HandlerFunc {
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		log := zaplog.With(zap.String("request", requestID))

		// читаем только начало тела, остаток отдаем обработчику как есть
		var prefix []byte
		if r.Body != nil {
			prefix, _ = io.ReadAll(io.LimitReader(r.Body, int64(bodyLimit)))
			r.Body = body{Reader: io.MultiReader(bytes.NewReader(prefix), r.Body), Closer: r.Body}
		}

		log.Info("got incoming HTTP request",
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("method", r.Method),
			zap.Int64("size", r.ContentLength),
			zap.ByteString("body", prefix),
		)

		wl := newResponseWriterLogger(w, bodyLimit)

		handlerStart := time.Now()
		h(wl, r)

		log.Info("send HTTP response",
			zap.Int("code", wl.statusCode),
			zap.Int("length", wl.length),
			zap.ByteString("body", wl.body),
			zap.Duration("duration", time.Since(handlerStart)),
		)
	}
}

type body struct {
	io.Reader
	io.Closer
}

func truncate(b []byte, limit int) []byte {
	if len(b) > limit {
		return b[:limit]
	}
	return b
}

type responseWriterLogger struct {
	http.ResponseWriter
	statusCode int
	length     int
	limit      int
	body       []byte
}

func newResponseWriterLogger(w http.ResponseWriter, limit int) *responseWriterLogger {
	return &responseWriterLogger{ResponseWriter: w, statusCode: http.StatusOK, limit: limit}
}

func (wl *responseWriterLogger) WriteHeader(code int) {
	wl.statusCode = code
	wl.ResponseWriter.WriteHeader(code)
}

func (wl *responseWriterLogger) Write(b []byte) (n int, err error) {
	if room := wl.limit - len(wl.body); room > 0 {
		wl.body = append(wl.body, truncate(b, room)...)
	}
	n, err = wl.ResponseWriter.Write(b)
	wl.length += n
	return
}
