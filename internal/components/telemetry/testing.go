package telemetry

import (
	"fmt"
	"sync"
	"testing"
)

// TestAPI writes every report to the test log and remembers broken ids so tests can assert on them.
type TestAPI struct {
	t      testing.TB
	mu     *sync.Mutex
	broken *[]string
}

func NewTestAPI(t testing.TB) TestAPI {
	return TestAPI{t: t, mu: &sync.Mutex{}, broken: &[]string{}}
}

func (a TestAPI) ReportBroken(id string, params ...any) {
	a.mu.Lock()
	*a.broken = append(*a.broken, id)
	a.mu.Unlock()
	a.t.Log("BROKEN", id, fmt.Sprint(params...))
}

func (a TestAPI) ReportWarning(id string, params ...any) {
	a.t.Log("WARN", id, fmt.Sprint(params...))
}

func (a TestAPI) ReportDebug(msg string, params ...any) {
	a.t.Log("DEBUG", msg, fmt.Sprint(params...))
}

func (a TestAPI) ReportCount(id string, count int64) {
	a.t.Log("COUNT", id, count)
}

// Broken returns the ids passed to ReportBroken so far.
func (a TestAPI) Broken() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(*a.broken))
	copy(out, *a.broken)
	return out
}
