package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"drug-risk-service/internal/models"
)

// Route keys used for call counting and fault injection
const (
	RouteDrugs = "drugs"
	RouteQr    = "qr"
)

// TrustRoute is the route key of one manufacturer's trust lookup
func TrustRoute(manufacturerID string) string { return "trust:" + manufacturerID }

// ReviewRoute is the route key of one drug's review lookup
func ReviewRoute(drugID string) string { return "review:" + drugID }

type failure struct {
	status int
	body   interface{}
}

// FakeUpstream is an httptest catalog answering the four endpoints the
// enrichment service reads. Unknown trust or review ids answer 404.
type FakeUpstream struct {
	server *httptest.Server

	mu         sync.Mutex
	drugs      []models.Drug
	pagination interface{}
	bareList   bool
	trust      map[string]interface{}
	reviews    map[string]interface{}
	qrRecent   []map[string]interface{}
	failures   map[string]failure
	latency    func(route string) time.Duration
	calls      map[string]int
	auth       []string
}

// NewFakeUpstream starts the fake catalog. Callers Close it.
func NewFakeUpstream() *FakeUpstream {
	f := &FakeUpstream{
		trust:    map[string]interface{}{},
		reviews:  map[string]interface{}{},
		failures: map[string]failure{},
		calls:    map[string]int{},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/drugs", f.handleDrugs).Methods(http.MethodGet)
	api.HandleFunc("/reports/module/qr-scans", f.handleQr).Methods(http.MethodGet)
	api.HandleFunc("/trust-scores/{id}", f.handleTrust).Methods(http.MethodGet)
	api.HandleFunc("/reviews/stats/drug/{id}", f.handleReview).Methods(http.MethodGet)

	f.server = httptest.NewServer(r)
	return f
}

// URL is the base URL to hand to the upstream client
func (f *FakeUpstream) URL() string {
	return f.server.URL + "/api"
}

func (f *FakeUpstream) Close() {
	f.server.Close()
}

// SetDrugs sets the drug list answered by /drugs
func (f *FakeUpstream) SetDrugs(drugs ...models.Drug) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drugs = drugs
	return f
}

// SetPagination sets the pagination object nested in the drug page
func (f *FakeUpstream) SetPagination(p interface{}) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pagination = p
	return f
}

// UseBareList makes /drugs answer data as a plain array
func (f *FakeUpstream) UseBareList() *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bareList = true
	return f
}

// SetTrust sets the data payload of one manufacturer's trust score
func (f *FakeUpstream) SetTrust(manufacturerID string, data interface{}) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trust[manufacturerID] = data
	return f
}

// SetReviews sets the data payload of one drug's review statistics
func (f *FakeUpstream) SetReviews(drugID string, data interface{}) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews[drugID] = data
	return f
}

// AddScan appends an entry to the QR report's recent list
func (f *FakeUpstream) AddScan(drugID, result string) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qrRecent = append(f.qrRecent, map[string]interface{}{"drugId": drugID, "result": result})
	return f
}

// Fail makes route answer status with body until cleared by Recover
func (f *FakeUpstream) Fail(route string, status int, body interface{}) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status: status, body: body}
	return f
}

// Recover clears an injected failure
func (f *FakeUpstream) Recover(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, route)
}

// SetLatency delays each answer by fn(route); requests whose context ends
// first are abandoned.
func (f *FakeUpstream) SetLatency(fn func(route string) time.Duration) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = fn
	return f
}

// Calls returns how many requests route received
func (f *FakeUpstream) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// TotalCalls returns the number of requests across all routes
func (f *FakeUpstream) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Authorizations returns every Authorization header received, in arrival order
func (f *FakeUpstream) Authorizations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

// begin records the call and applies latency and failures. It returns false
// when the response has already been written.
func (f *FakeUpstream) begin(w http.ResponseWriter, r *http.Request, route string) bool {
	f.mu.Lock()
	f.calls[route]++
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	fail, failing := f.failures[route]
	latency := f.latency
	f.mu.Unlock()

	if latency != nil {
		if d := latency(route); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return false
			}
		}
	}

	if failing {
		writeJSON(w, fail.status, fail.body)
		return false
	}
	return true
}

func (f *FakeUpstream) handleDrugs(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, RouteDrugs) {
		return
	}

	f.mu.Lock()
	drugs := append([]models.Drug{}, f.drugs...)
	pagination := f.pagination
	bare := f.bareList
	f.mu.Unlock()

	if bare {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": drugs})
		return
	}
	data := map[string]interface{}{"drugs": drugs}
	if pagination != nil {
		data["pagination"] = pagination
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func (f *FakeUpstream) handleQr(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, RouteQr) {
		return
	}

	f.mu.Lock()
	recent := append([]map[string]interface{}{}, f.qrRecent...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"total": len(recent), "recent": recent},
	})
}

func (f *FakeUpstream) handleTrust(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !f.begin(w, r, TrustRoute(id)) {
		return
	}

	f.mu.Lock()
	data, ok := f.trust[id]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "trust score not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func (f *FakeUpstream) handleReview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !f.begin(w, r, ReviewRoute(id)) {
		return
	}

	f.mu.Lock()
	data, ok := f.reviews[id]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "review stats not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
