package logging

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestFromCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, Base(), FromCtx(context.Background()))

	l := slog.New(slog.NewTextHandler(httptest.NewRecorder(), nil))
	ctx := WithCtx(context.Background(), l)
	assert.Same(t, l, FromCtx(ctx))
}

func TestWithPropagatesToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	l := slog.New(slog.NewTextHandler(httptest.NewRecorder(), nil)).With("req_id", "abc")
	With(c, l)

	assert.Same(t, l, From(c))
	assert.Same(t, l, FromCtx(c.Request.Context()))
}
