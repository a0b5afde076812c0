package log_test

import (
	"log/slog"
	"testing"

	"github.com/ghettovoice/gophone/log"
)

type point struct{ X, Y int }

func TestFmtValue(t *testing.T) {
	t.Parallel()

	if got := log.FmtValue(point{1, 2}, false).LogValue().String(); got != "{X:1 Y:2}" {
		t.Errorf("FmtValue(false) = %q, want {X:1 Y:2}", got)
	}
	if got := log.FmtValue(point{1, 2}, true).LogValue().String(); got != "log_test.point{X:1, Y:2}" {
		t.Errorf("FmtValue(true) = %q, want log_test.point{X:1, Y:2}", got)
	}
}

func TestCalcValue(t *testing.T) {
	t.Parallel()

	calls := 0
	v := log.CalcValue(func() any {
		calls++
		return 42
	})
	if calls != 0 {
		t.Fatal("value computed before logging")
	}
	if got := v.LogValue(); got.Kind() != slog.KindInt64 || got.Int64() != 42 {
		t.Errorf("CalcValue() = %v, want 42", got)
	}

	v = log.CalcValue(func() any { return slog.StringValue("ready") })
	if got := v.LogValue(); got.Kind() != slog.KindString || got.String() != "ready" {
		t.Errorf("CalcValue() = %v, want ready", got)
	}
}
