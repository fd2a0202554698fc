package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"melcloud_bridge/internal/types"
)

// fakeSession records every request and replays canned responses.
type fakeSession struct {
	calls     []recordedCall
	status    int
	body      []byte
	err       error
	responses []fakeResponse
}

type recordedCall struct {
	method  string
	path    string
	payload []byte
}

type fakeResponse struct {
	status int
	body   []byte
}

func (f *fakeSession) Request(_ context.Context, method, path string, payload []byte) (int, []byte, error) {
	f.calls = append(f.calls, recordedCall{method: method, path: path, payload: payload})
	if f.err != nil {
		return 0, nil, f.err
	}
	if len(f.responses) > 0 {
		r := f.responses[0]
		f.responses = f.responses[1:]
		return r.status, r.body, nil
	}
	return f.status, f.body, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchAccountSnapshot(t *testing.T) {
	session := &fakeSession{status: 200, body: []byte(`{"buildings":[]}`)}
	g := NewGateway(session, testLogger())

	body, err := g.FetchAccountSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchAccountSnapshot() error = %v", err)
	}
	if string(body) != `{"buildings":[]}` {
		t.Errorf("body = %s", body)
	}
	if len(session.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(session.calls))
	}
	if c := session.calls[0]; c.method != "GET" || c.path != accountContextPath {
		t.Errorf("request = %s %s", c.method, c.path)
	}
}

func TestFetchAccountSnapshot_NonOK(t *testing.T) {
	session := &fakeSession{status: 503, body: []byte("maintenance")}
	g := NewGateway(session, testLogger())

	_, err := g.FetchAccountSnapshot(context.Background())
	var apiErr *types.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *types.APIError", err)
	}
	if apiErr.Status != 503 {
		t.Errorf("Status = %d, want 503", apiErr.Status)
	}
}

func TestFetchAccountSnapshot_SessionErrorPassesThrough(t *testing.T) {
	session := &fakeSession{err: types.ErrConnectivity}
	g := NewGateway(session, testLogger())

	_, err := g.FetchAccountSnapshot(context.Background())
	if !errors.Is(err, types.ErrConnectivity) {
		t.Errorf("error = %v, want ErrConnectivity", err)
	}
}

func TestFetchEnergyInterval(t *testing.T) {
	body := `{"points":[
		{"time":"2026-03-01T09:00:00Z","value":300},
		{"time":"2026-03-01T10:00:00Z","value":"450.5"},
		{"time":"not-a-time","value":100},
		{"time":"2026-03-01T11:00:00Z","value":"lots"}
	]}`
	session := &fakeSession{status: 200, body: []byte(body)}
	g := NewGateway(session, testLogger())

	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	points, err := g.FetchEnergyInterval(context.Background(), "unit-1", from, to, MeasureEnergyConsumed)
	if err != nil {
		t.Fatalf("FetchEnergyInterval() error = %v", err)
	}

	// The bad-timestamp and bad-value samples are dropped, not fatal.
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].ValueWh != 300 {
		t.Errorf("points[0].ValueWh = %v, want 300", points[0].ValueWh)
	}
	if points[1].ValueWh != 450.5 {
		t.Errorf("points[1].ValueWh = %v, want 450.5 (quoted number)", points[1].ValueWh)
	}

	u, err := url.Parse(session.calls[0].path)
	if err != nil {
		t.Fatalf("request path does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("measure") != "energy-consumed" {
		t.Errorf("measure = %q", q.Get("measure"))
	}
	if q.Get("from") != "2026-03-01T08:00:00Z" || q.Get("to") != "2026-03-01T12:00:00Z" {
		t.Errorf("window = %q..%q", q.Get("from"), q.Get("to"))
	}
}

func TestFetchEnergyInterval_EmptyResponses(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"no content", 204, ""},
		{"not modified", 304, ""},
		{"empty body", 200, ""},
		{"whitespace body", 200, "  \n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			session := &fakeSession{status: tc.status, body: []byte(tc.body)}
			g := NewGateway(session, testLogger())

			points, err := g.FetchEnergyInterval(context.Background(), "u", time.Now().Add(-time.Hour), time.Now(), MeasureEnergyConsumed)
			if err != nil {
				t.Fatalf("FetchEnergyInterval() error = %v", err)
			}
			if points != nil {
				t.Errorf("points = %v, want nil", points)
			}
		})
	}
}

func TestFetchEnergyInterval_UnparseableBody(t *testing.T) {
	session := &fakeSession{status: 200, body: []byte("<html>error</html>")}
	g := NewGateway(session, testLogger())

	_, err := g.FetchEnergyInterval(context.Background(), "u", time.Now().Add(-time.Hour), time.Now(), MeasureEnergyConsumed)
	var apiErr *types.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *types.APIError", err)
	}
}
