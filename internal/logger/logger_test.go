package logger

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iurnickita/vendussync/internal/logger/config"
)

func TestNewZapLog(t *testing.T) {
	zl, err := NewZapLog(config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, zl.Core().Enabled(zapcore.DebugLevel))

	zl, err = NewZapLog(config.Config{})
	require.NoError(t, err)
	assert.False(t, zl.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, zl.Core().Enabled(zapcore.InfoLevel))

	_, err = NewZapLog(config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestRequestLogMdlw(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zl := zap.New(core)

	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		// тело доступно обработчику целиком
		assert.Equal(t, strings.Repeat("x", 100), string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"synced":3}`))
	}, zl, 10)

	r := httptest.NewRequest(http.MethodPost, "/api/sync/products?page=2", strings.NewReader(strings.Repeat("x", 100)))
	w := httptest.NewRecorder()
	h(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	request := entries[0].ContextMap()
	assert.Equal(t, "/api/sync/products", request["path"])
	assert.Equal(t, "page=2", request["query"])
	assert.Equal(t, int64(100), request["size"])
	assert.Equal(t, strings.Repeat("x", 10), request["body"])

	response := entries[1].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), response["code"])
	assert.Equal(t, `{"synced":`, response["body"])
	assert.Equal(t, int64(12), response["length"])
}

// countingReader отдает n байт 'x' и считает прочитанное
type countingReader struct {
	n, read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.read >= c.n {
		return 0, io.EOF
	}
	k := min(len(p), c.n-c.read)
	for i := range p[:k] {
		p[i] = 'x'
	}
	c.read += k
	return k, nil
}

func TestRequestLogMdlwReadsOnlyPrefix(t *testing.T) {
	src := &countingReader{n: 1 << 20}
	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, zap.NewNop(), 10)

	r := httptest.NewRequest(http.MethodPost, "/api/saft/import", io.NopCloser(src))
	h(httptest.NewRecorder(), r)

	assert.Equal(t, 10, src.read)
}
