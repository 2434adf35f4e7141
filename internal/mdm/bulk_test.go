package mdm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/martinsuchenak/mdmkit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubsForIDs(ids ...int) []model.DeviceStub {
	stubs := make([]model.DeviceStub, 0, len(ids))
	for _, id := range ids {
		stubs = append(stubs, model.DeviceStub{ID: id})
	}
	return stubs
}

// detailHandler serves a detail record per device id, with optional
// per-id failure statuses.
func detailHandler(failures map[int]int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice/{id}/detail", func(w http.ResponseWriter, r *http.Request) {
		var id int
		fmt.Sscanf(r.PathValue("id"), "%d", &id)
		if status, ok := failures[id]; ok {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"id": %d, "name": "device-%d"}`, id, id)
	})
	return mux
}

func TestFetchDetailsReturnsOneResultPerStub(t *testing.T) {
	c := newTestClient(t, detailHandler(nil))

	stubs := stubsForIDs(1, 2, 3, 4, 5, 6, 7, 8)
	results := c.FetchDetails(context.Background(), stubs, BulkOptions{MaxConnections: 3})

	require.Len(t, results, len(stubs))
	seen := map[int]bool{}
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Detail)
		assert.Equal(t, fmt.Sprintf("device-%d", r.ID), r.Detail.String("name"))
		seen[r.ID] = true
	}
	assert.Len(t, seen, len(stubs))
}

func TestFetchDetailsToleratesIndividualFailure(t *testing.T) {
	// Device 2's detail call answers 500; the batch still completes
	// with three results and device 2 marked absent.
	c := newTestClient(t, detailHandler(map[int]int{2: http.StatusInternalServerError}))

	results := c.FetchDetails(context.Background(), stubsForIDs(1, 2, 3), BulkOptions{})

	require.Len(t, results, 3)
	byID := map[int]DetailResult{}
	for _, r := range results {
		byID[r.ID] = r
	}
	assert.NotNil(t, byID[1].Detail)
	assert.Nil(t, byID[2].Detail)
	assert.NotNil(t, byID[3].Detail)
}

func TestFetchDetailsSequentialEquivalence(t *testing.T) {
	handler := detailHandler(map[int]int{4: http.StatusNotFound})
	concurrent := newTestClient(t, handler)
	sequential := newTestClient(t, handler)

	stubs := stubsForIDs(1, 2, 3, 4, 5)
	a := concurrent.FetchDetails(context.Background(), stubs, BulkOptions{MaxConnections: 4})
	b := sequential.FetchDetails(context.Background(), stubs, BulkOptions{Sequential: true})

	require.Len(t, a, len(stubs))
	require.Len(t, b, len(stubs))

	names := func(results []DetailResult) map[int]string {
		out := map[int]string{}
		for _, r := range results {
			if r.Detail != nil {
				out[r.ID] = r.Detail.String("name")
			} else {
				out[r.ID] = ""
			}
		}
		return out
	}
	// Same content modulo ordering.
	assert.Equal(t, names(b), names(a))
}

func TestFetchDetailsRespectsConnectionBound(t *testing.T) {
	const bound = 3

	inflight := &atomic.Int32{}
	peak := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice/{id}/detail", func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte(`{"id": 1}`))
	})

	c := newTestClient(t, mux)
	results := c.FetchDetails(context.Background(), stubsForIDs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12), BulkOptions{MaxConnections: bound})

	require.Len(t, results, 12)
	assert.LessOrEqual(t, peak.Load(), int32(bound))
}

func TestFetchDetailsProgress(t *testing.T) {
	c := newTestClient(t, detailHandler(nil))

	var mu sync.Mutex
	var completed []int
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 6, total)
		completed = append(completed, done)
	}

	c.FetchDetails(context.Background(), stubsForIDs(1, 2, 3, 4, 5, 6), BulkOptions{
		MaxConnections: 2,
		Progress:       progress,
	})

	mu.Lock()
	defer mu.Unlock()
	// Callbacks can arrive out of order, but every count shows up once.
	require.Len(t, completed, 6)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, completed)
}

func TestFetchDetailsEmptyBatch(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	assert.Nil(t, c.FetchDetails(context.Background(), nil, BulkOptions{}))
}

func TestListDevicesDetailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1}, {"id": 2}]`))
	})
	mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice/{id}/detail", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": %s}`, r.PathValue("id"))
	})

	c := newTestClient(t, mux)
	results, err := c.ListDevicesDetailed(context.Background(), 100, BulkOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
