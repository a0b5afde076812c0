package connectivity_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/gophone/connectivity"
	"github.com/ghettovoice/gophone/log"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prev, next connectivity.Status
		want       connectivity.Change
	}{
		{
			name: "wifi lost",
			prev: connectivity.StatusWiFi, next: connectivity.StatusNone,
			want: connectivity.Change{Kind: connectivity.ChangeOffline, Status: connectivity.StatusNone},
		},
		{
			name: "cellular lost",
			prev: connectivity.StatusCellular, next: connectivity.StatusNone,
			want: connectivity.Change{Kind: connectivity.ChangeOffline, Status: connectivity.StatusNone},
		},
		{
			name: "wifi appears",
			prev: connectivity.StatusNone, next: connectivity.StatusWiFi,
			want: connectivity.Change{Kind: connectivity.ChangeOnline, Status: connectivity.StatusWiFi},
		},
		{
			name: "ethernet appears",
			prev: connectivity.StatusNone, next: connectivity.StatusEthernet,
			want: connectivity.Change{Kind: connectivity.ChangeOnline, Status: connectivity.StatusEthernet},
		},
		{
			name: "wifi to cellular",
			prev: connectivity.StatusWiFi, next: connectivity.StatusCellular,
			want: connectivity.Change{Kind: connectivity.ChangeHandover, Status: connectivity.StatusCellular},
		},
		{
			name: "cellular to ethernet",
			prev: connectivity.StatusCellular, next: connectivity.StatusEthernet,
			want: connectivity.Change{Kind: connectivity.ChangeHandover, Status: connectivity.StatusEthernet},
		},
		{
			name: "unknown status treated as none",
			prev: connectivity.Status(42), next: connectivity.StatusWiFi,
			want: connectivity.Change{Kind: connectivity.ChangeOnline, Status: connectivity.StatusWiFi},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := connectivity.Classify(tt.prev, tt.next)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyEqualStatuses(t *testing.T) {
	t.Parallel()

	// classify(x, x) never yields a change, for every status.
	statuses := []connectivity.Status{
		connectivity.StatusNone,
		connectivity.StatusWiFi,
		connectivity.StatusCellular,
		connectivity.StatusEthernet,
	}
	for _, s := range statuses {
		if got := connectivity.Classify(s, s); got.Kind != connectivity.ChangeNone {
			t.Errorf("Classify(%v, %v).Kind = %v, want none", s, s, got.Kind)
		}
	}
}

type fakeSource struct {
	mu     sync.Mutex
	status connectivity.Status
	subs   []func(connectivity.Status)
}

func (s *fakeSource) Status() connectivity.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *fakeSource) Subscribe(fn func(connectivity.Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	return func() {}
}

func (s *fakeSource) report(status connectivity.Status) {
	s.mu.Lock()
	s.status = status
	subs := append([]func(connectivity.Status){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(status)
	}
}

func TestMonitorSuppressesDuplicates(t *testing.T) {
	t.Parallel()

	src := &fakeSource{status: connectivity.StatusWiFi}
	m := connectivity.NewMonitor(src, &connectivity.MonitorOptions{Log: log.Noop})
	defer m.Close()

	var changes []connectivity.Change
	m.OnChange(func(ch connectivity.Change) { changes = append(changes, ch) })

	src.report(connectivity.StatusWiFi) // duplicate, suppressed
	src.report(connectivity.StatusCellular)
	src.report(connectivity.StatusCellular) // duplicate, suppressed
	src.report(connectivity.StatusNone)

	want := []connectivity.Change{
		{Kind: connectivity.ChangeHandover, Status: connectivity.StatusCellular},
		{Kind: connectivity.ChangeOffline, Status: connectivity.StatusNone},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestMonitorCurrent(t *testing.T) {
	t.Parallel()

	src := &fakeSource{status: connectivity.StatusCellular}
	m := connectivity.NewMonitor(src, &connectivity.MonitorOptions{Log: log.Noop})
	defer m.Close()

	if got := m.Current(); got != connectivity.StatusCellular {
		t.Errorf("Current() = %v, want cellular", got)
	}
	if !m.HasConnectivity() {
		t.Error("HasConnectivity() = false, want true")
	}

	src.report(connectivity.StatusNone)
	if got := m.Current(); got != connectivity.StatusNone {
		t.Errorf("Current() after offline = %v, want none", got)
	}
	if m.HasConnectivity() {
		t.Error("HasConnectivity() = true, want false")
	}
}
