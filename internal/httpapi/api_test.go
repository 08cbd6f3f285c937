// internal/httpapi/api_test.go
//
// HTTP-level tests for the router: organization auth, the manual sync
// trigger, invite endpoints, and listing-cache behaviour.
//
// Context
// -------
// The database is sqlmock behind sqlx; the orchestrator runs for real but
// against an in-memory fetcher and store, so the tests exercise the same
// code path a dashboard request takes without any network or MySQL.
//
// Each test:
//
//   1. Seeds sqlmock with the organization row orgAuth will resolve.
//   2. Builds an API value and fires httptest requests at Router().
//   3. Asserts status codes and decoded JSON bodies.

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/stationhouse/citysync/internal/citizen"
	"github.com/stationhouse/citysync/internal/gameapi"
	"github.com/stationhouse/citysync/internal/org"
	"github.com/stationhouse/citysync/internal/sync"
	"github.com/stationhouse/citysync/internal/vehicle"
)

/*──────────────────────────────── fakes ───────────────────────────────────*/

type fakeFetcher struct {
	esx      []gameapi.ESXCitizen
	fetchErr error
}

func (f *fakeFetcher) ESXCitizens(context.Context) ([]gameapi.ESXCitizen, error) {
	return f.esx, f.fetchErr
}

func (f *fakeFetcher) QBCitizens(context.Context) ([]gameapi.QBCitizen, error) {
	return nil, f.fetchErr
}

func (f *fakeFetcher) CitizenVehicles(context.Context, string) ([]gameapi.RawVehicle, error) {
	return nil, nil
}

type memStore struct {
	mu       stdsync.Mutex
	citizens map[string]bool
}

func (s *memStore) UpsertCitizen(_ context.Context, rec *citizen.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.citizens == nil {
		s.citizens = make(map[string]bool)
	}
	created := !s.citizens[rec.CitizenID]
	s.citizens[rec.CitizenID] = true
	return created, nil
}

func (s *memStore) UpsertVehicle(context.Context, *vehicle.Record) (bool, error) {
	return false, nil
}

/*─────────────────────────────── helpers ──────────────────────────────────*/

var orgCols = []string{
	"id", "name", "slug", "api_url", "api_key", "metadata",
	"sync_interval_s", "last_synced_at", "suspended_at", "deleted_at",
	"created_at", "updated_at",
}

func orgRow(metadata string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orgCols).AddRow(
		"org-1", "Test PD", "test-pd", "http://bridge", "key-123", metadata,
		0, nil, nil, nil, now, now,
	)
}

func expectOrgLookup(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM organization")).
		WithArgs("org-1").
		WillReturnRows(rows)
}

func newTestAPI(t *testing.T, f sync.Fetcher) (*API, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })

	db := sqlx.NewDb(raw, "sqlmock")
	orch := sync.New(&memStore{}, sync.Options{
		NewFetcher: func(*org.SyncConfig) (sync.Fetcher, error) { return f, nil },
		RunTimeout: 5 * time.Second,
	})
	return &API{
		DB:              db,
		Orch:            orch,
		DefaultInterval: 15 * time.Minute,
	}, mock
}

func doRequest(api *API, method, path, apiKey string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	return rr
}

/*──────────────────────────────── tests ───────────────────────────────────*/

func TestOrgAuth_UnknownOrg(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	// Neither primary key nor vanity slug matches.
	expectOrgLookup(mock, sqlmock.NewRows(orgCols))
	expectOrgLookup(mock, sqlmock.NewRows(orgCols))

	rr := doRequest(api, http.MethodGet, "/api/orgs/org-1/citizens", "key-123", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestOrgAuth_SlugFallback(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	// The id lookup misses; the slug lookup resolves the same row, so
	// vanity URLs reach the same authenticated surface.
	mock.ExpectQuery(regexp.QuoteMeta("FROM organization")).
		WithArgs("test-pd").
		WillReturnRows(sqlmock.NewRows(orgCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM organization")).
		WithArgs("test-pd").
		WillReturnRows(orgRow(`{"syncSystem":"esx"}`))
	citizenCols := []string{"id", "citizen_id", "org_id", "display_name"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM citizen")).
		WillReturnRows(sqlmock.NewRows(citizenCols).AddRow(1, "c1", "org-1", "Avery Cole"))

	rr := doRequest(api, http.MethodGet, "/api/orgs/test-pd/citizens", "key-123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestOrgAuth_BadKey(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))

	rr := doRequest(api, http.MethodGet, "/api/orgs/org-1/citizens", "wrong-key", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestTriggerSync_OK(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{
		esx: []gameapi.ESXCitizen{{Identifier: "c1"}, {Identifier: "c2"}},
	})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE organization SET last_synced_at = NOW()")).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := doRequest(api, http.MethodPost, "/api/orgs/org-1/sync", "key-123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	var res sync.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != sync.StatusIdle || res.Stats.Citizens.Created != 2 {
		t.Fatalf("result = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestTriggerSync_BadSettings(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	expectOrgLookup(mock, orgRow(`{}`)) // no syncSystem configured

	rr := doRequest(api, http.MethodPost, "/api/orgs/org-1/sync", "key-123", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
}

func TestTriggerSync_RunFailure(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{fetchErr: errors.New("bridge down")})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))

	rr := doRequest(api, http.MethodPost, "/api/orgs/org-1/sync", "key-123", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}

	var res sync.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != sync.StatusError || res.Error == "" {
		t.Fatalf("result = %+v", res)
	}
}

// deadlineRecorder reports the write deadlines a handler sets, so a test
// can verify long-running routes opt out of the server-wide WriteTimeout.
type deadlineRecorder struct {
	*httptest.ResponseRecorder
	deadlines []time.Time
}

func (d *deadlineRecorder) SetWriteDeadline(t time.Time) error {
	d.deadlines = append(d.deadlines, t)
	return nil
}

func TestTriggerSync_LiftsWriteDeadline(t *testing.T) {
	// A run longer than the server's 30 s WriteTimeout must still deliver
	// its statistics, so the handler clears the connection deadline before
	// starting the run.
	api, mock := newTestAPI(t, &fakeFetcher{
		esx: []gameapi.ESXCitizen{{Identifier: "c1"}},
	})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE organization SET last_synced_at = NOW()")).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/api/orgs/org-1/sync", nil)
	req.Header.Set("X-Api-Key", "key-123")
	rec := &deadlineRecorder{ResponseRecorder: httptest.NewRecorder()}
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if len(rec.deadlines) == 0 {
		t.Fatal("handler never adjusted the write deadline")
	}
	if !rec.deadlines[0].IsZero() {
		t.Fatalf("deadline = %v, want zero (no deadline)", rec.deadlines[0])
	}
}

func TestListCitizens_CacheRoundTrip(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	api.Listings = NewListingCache(16)

	citizenCols := []string{"id", "citizen_id", "org_id", "display_name"}

	// First request: org lookup, then the listing query.
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM citizen")).
		WillReturnRows(sqlmock.NewRows(citizenCols).AddRow(1, "c1", "org-1", "Avery Cole"))

	// Second request: org lookup only; the body comes from the cache.
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))

	first := doRequest(api, http.MethodGet, "/api/orgs/org-1/citizens", "key-123", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := doRequest(api, http.MethodGet, "/api/orgs/org-1/citizens", "key-123", "")
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatal("cached body must match the rendered one")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("second request hit the store: %v", err)
	}

	// After invalidation the listing query runs again.
	api.Listings.Invalidate("org-1", "citizens")
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM citizen")).
		WillReturnRows(sqlmock.NewRows(citizenCols))

	third := doRequest(api, http.MethodGet, "/api/orgs/org-1/citizens", "key-123", "")
	if third.Code != http.StatusOK {
		t.Fatalf("third status = %d", third.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations after invalidation: %v", err)
	}
}

func TestGetVehicle_ByPlate(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle")).
		WithArgs("org-1", "ABC123").
		WillReturnRows(sqlmock.NewRows([]string{"plate", "citizen_id", "org_id", "model"}).
			AddRow("ABC123", "c1", "org-1", "sultan"))

	rr := doRequest(api, http.MethodGet, "/api/orgs/org-1/vehicles/ABC123", "key-123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	var veh vehicle.Record
	if err := json.NewDecoder(rr.Body).Decode(&veh); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if veh.Plate != "ABC123" || veh.CitizenID != "c1" {
		t.Fatalf("vehicle = %+v", veh)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestGetVehicle_UnknownPlate(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle")).
		WillReturnRows(sqlmock.NewRows([]string{"plate"}))

	rr := doRequest(api, http.MethodGet, "/api/orgs/org-1/vehicles/NOPE", "key-123", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestCheckMember(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM member_role")).
		WithArgs("org-1", "officer", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	rr := doRequest(api, http.MethodGet, "/api/orgs/org-1/permissions/officer/members/m1", "key-123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	var res struct {
		Member  string `json:"member"`
		HasRole bool   `json:"hasRole"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Member != "m1" || !res.HasRole {
		t.Fatalf("result = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCheckMember_NoRole(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	expectOrgLookup(mock, orgRow(`{"syncSystem":"esx"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM member_role")).
		WillReturnRows(sqlmock.NewRows([]string{"1"})) // no membership row

	rr := doRequest(api, http.MethodGet, "/api/orgs/org-1/permissions/officer/members/m9", "key-123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var res struct {
		HasRole bool `json:"hasRole"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.HasRole {
		t.Fatal("member must not hold the role")
	}
}

func TestResolveInvite_Dead(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	mock.ExpectQuery(regexp.QuoteMeta("FROM invite")).
		WillReturnRows(sqlmock.NewRows([]string{"id"})) // unknown token

	rr := doRequest(api, http.MethodGet, "/api/invites/deadbeef", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestResolveInvite_StoreFailure(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	mock.ExpectQuery(regexp.QuoteMeta("FROM invite")).
		WillReturnError(errors.New("connection refused"))

	// An outage is a 500; only genuinely dead links get the 404.
	rr := doRequest(api, http.MethodGet, "/api/invites/deadbeef", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestAcceptInvite_Gone(t *testing.T) {
	api, mock := newTestAPI(t, &fakeFetcher{})
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invite SET use_count")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rr := doRequest(api, http.MethodPost, "/api/invites/deadbeef/accept", "", "")
	if rr.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	api, _ := newTestAPI(t, &fakeFetcher{})

	rr := doRequest(api, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}
