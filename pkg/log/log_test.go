package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestInitLoggerWithWriteSyncer(t *testing.T) {
	buf := &bufferSyncer{}
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "info", Format: FormatJSON}, buf)
	require.NoError(t, err)
	require.NotNil(t, props)

	lg.Debug("hidden")
	lg.Info("relay started", FieldConnID(7), FieldEvent("Identify"))
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"relay started"`)
	assert.Contains(t, out, `"connID":7`)
	assert.Contains(t, out, `"event":"Identify"`)
}

func TestInitLoggerBadLevel(t *testing.T) {
	_, _, err := InitLoggerWithWriteSyncer(&Config{Level: "loud"}, &bufferSyncer{})
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)

	SetLevel(zapcore.WarnLevel)
	assert.Equal(t, zapcore.WarnLevel, GetLevel())
	assert.False(t, Ctx(context.TODO()).Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Ctx(context.TODO()).Core().Enabled(zapcore.ErrorLevel))
}

func TestWithFields(t *testing.T) {
	buf := &bufferSyncer{}
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "debug", Format: FormatJSON}, buf)
	require.NoError(t, err)

	oldL, oldP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg, props)
	replaceLeveledLoggers(lg)
	defer func() {
		ReplaceGlobals(oldL, oldP)
		replaceLeveledLoggers(oldL)
	}()

	ctx := WithConnID(context.Background(), 42)
	ctx = WithModule(ctx, "acceptor")
	Ctx(ctx).Info("closed", zap.String("reason", "eof"))

	out := buf.String()
	assert.Contains(t, out, `"connID":42`)
	assert.Contains(t, out, `"module":"acceptor"`)
	assert.Contains(t, out, `"reason":"eof"`)
}

func TestRatedLogging(t *testing.T) {
	l := With(FieldModule("test")).WithRateGroup("log_test", 1, 1)
	assert.True(t, l.RatedInfo(1, "first"))
	assert.False(t, l.RatedInfo(1, "second"))
}

func TestRateGroupInherited(t *testing.T) {
	parent := With().WithRateGroup("log_test_inherit", 1, 1)
	child := parent.With(FieldConnID(1))
	assert.True(t, parent.RatedWarn(1, "first"))
	assert.False(t, child.RatedWarn(1, "shared budget"))
}

func TestParseLevel(t *testing.T) {
	for text, want := range map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"trace": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		got, err := parseLevel(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
}

func TestInitLoggerWithoutOutputs(t *testing.T) {
	defer replaceLeveledLoggers(L())
	lg, props, err := InitLogger(&Config{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, props.Level.Level())
	lg.Warn("discarded")
}

func TestBinder(t *testing.T) {
	var b Binder
	assert.NotNil(t, b.Logger())

	l := With(FieldComponent("bus"))
	b.SetLogger(l)
	assert.Same(t, l, b.Logger())

	buf := &bufferSyncer{}
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "info", Format: FormatJSON}, buf)
	require.NoError(t, err)
	oldL, oldP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg, props)
	defer ReplaceGlobals(oldL, oldP)

	b.BindComponent("acceptor", FieldConnID(3))
	b.Logger().Info("bound")
	assert.Contains(t, buf.String(), `"component":"acceptor"`)
	assert.Contains(t, buf.String(), `"connID":3`)
}
