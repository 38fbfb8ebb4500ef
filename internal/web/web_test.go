package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bcnelson/host-dashboard/internal/auth"
	"github.com/bcnelson/host-dashboard/internal/cluster"
	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/storage/memory"
	"github.com/bcnelson/host-dashboard/internal/task"
)

const bootstrapKey = "test-bootstrap-key"

// failingDirectory lists fine but rejects every write.
type failingDirectory struct {
	cluster.Directory
}

func (failingDirectory) Create(context.Context, string, domain.HostStatus) error {
	return errors.New("orchestrator unavailable")
}

// unlistableDirectory cannot list hosts but still accepts writes.
type unlistableDirectory struct {
	cluster.Directory
}

func (unlistableDirectory) List(context.Context) ([]domain.Host, error) {
	return nil, errors.New("orchestrator unavailable")
}

// blockingDirectory holds every create until release is closed.
type blockingDirectory struct {
	cluster.Directory
	started chan struct{}
	release chan struct{}
	creates atomic.Int32
}

func newBlockingDirectory() *blockingDirectory {
	return &blockingDirectory{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (d *blockingDirectory) Create(ctx context.Context, hostname string, status domain.HostStatus) error {
	d.creates.Add(1)
	d.started <- struct{}{}
	<-d.release
	return d.Directory.Create(ctx, hostname, status)
}

type testServer struct {
	handler http.Handler
	shim    *cluster.FileShim
	tasks   *task.Wrapper
}

func newTestServer(t *testing.T, wrap func(cluster.Directory) cluster.Directory) *testServer {
	t.Helper()
	store := memory.New()
	shim := cluster.NewFileShim(filepath.Join(t.TempDir(), "hosts.json"))
	var dir cluster.Directory = shim
	if wrap != nil {
		dir = wrap(shim)
	}
	tasks := task.NewWrapper(store)

	handler := NewRouter(Deps{
		Directory: dir,
		Tasks:     tasks,
		Labels:    i18n.Default(),
		Keys:      auth.NewKeyVerifier(store, bootstrapKey),
	})
	return &testServer{handler: handler, shim: shim, tasks: tasks}
}

func (ts *testServer) do(method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: bootstrapKey})

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/hosts", nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Expected redirect to /login, got %s", loc)
	}

	req = httptest.NewRequest("POST", "/hosts", nil)
	req.Header.Set("HX-Request", "true")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || rr.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("Expected htmx 401 with HX-Redirect, got %d %q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	form := url.Values{"api_key": {bootstrapKey}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("Expected redirect to /, got %d %s", rr.Code, rr.Header().Get("Location"))
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName {
		t.Fatalf("Expected session cookie, got %v", cookies)
	}

	form = url.Values{"api_key": {"wrong"}}
	req = httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "error=Invalid+API+key") {
		t.Errorf("Expected invalid key error, got %s", loc)
	}
}

func TestLoginPage(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/login?error=Nope", nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `name="api_key"`) || !strings.Contains(body, "Nope") {
		t.Errorf("Login page missing form or flash: %s", body)
	}
	if strings.Contains(body, "/auth/login") {
		t.Error("SSO link shown while OIDC is disabled")
	}
}

func TestRootRedirectsToHosts(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do("GET", "/", nil, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/hosts" {
		t.Errorf("Expected redirect to /hosts, got %d %s", rr.Code, rr.Header().Get("Location"))
	}
}

func TestHostsList(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	if err := ts.shim.Create(ctx, "node-a", domain.HostStatusAvailable); err != nil {
		t.Fatal(err)
	}
	if err := ts.shim.Create(ctx, "node-b", domain.HostStatusMaintenance); err != nil {
		t.Fatal(err)
	}

	rr := ts.do("GET", "/hosts", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"node-a", "node-b", "Enter maintenance", "Exit maintenance", "Create host"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected hosts page to contain %q", want)
		}
	}
}

func TestHostFormPage(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do("GET", "/hosts/new", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `name="hostname"`) || !strings.Contains(body, "Create host") {
		t.Errorf("Form page missing fields: %s", body)
	}
	if strings.Contains(body, `data-state="loading"`) {
		t.Error("Form should be ready after the host list loaded")
	}
}

func TestHostCreate(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	form := url.Values{"hostname": {"node-c"}, "maintenance": {"on"}}
	rr := ts.do("POST", "/hosts", form, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("HX-Redirect") != "/hosts" {
		t.Errorf("Expected HX-Redirect /hosts, got %q", rr.Header().Get("HX-Redirect"))
	}

	hosts, err := ts.shim.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(hosts) != 1 || hosts[0].Hostname != "node-c" || !hosts[0].InMaintenance() {
		t.Errorf("Expected node-c in maintenance, got %+v", hosts)
	}

	finished, err := ts.tasks.Finished(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(finished) != 1 || finished[0].Name != "host/create" || !finished[0].Success {
		t.Errorf("Expected one successful host/create task, got %+v", finished)
	}

	// plain form posts get a 303
	rr = ts.do("POST", "/hosts", url.Values{"hostname": {"node-d"}}, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/hosts" {
		t.Errorf("Expected 303 to /hosts, got %d %s", rr.Code, rr.Header().Get("Location"))
	}
}

func TestHostCreateValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	if err := ts.shim.Create(context.Background(), "node-a", domain.HostStatusAvailable); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		hostname string
		want     string
	}{
		{"empty", "", "This field is required."},
		{"duplicate", "node-a", "The chosen hostname is already in use."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do("POST", "/hosts", url.Values{"hostname": {tt.hostname}}, true)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("Expected status 422, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("Expected %q in %s", tt.want, rr.Body.String())
			}
			if rr.Header().Get("HX-Redirect") != "" {
				t.Error("Validation failure must not navigate")
			}
		})
	}

	hosts, _ := ts.shim.List(context.Background())
	if len(hosts) != 1 {
		t.Errorf("Expected no new hosts, got %d", len(hosts))
	}
}

func TestHostCreateSubmitFailure(t *testing.T) {
	ts := newTestServer(t, func(d cluster.Directory) cluster.Directory { return failingDirectory{d} })

	rr := ts.do("POST", "/hosts", url.Values{"hostname": {"node-c"}}, true)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `data-error="submit-failed"`) {
		t.Errorf("Expected submit-failed flag in %s", body)
	}
	if !strings.Contains(body, `value="node-c"`) {
		t.Error("Form should keep the entered hostname for retry")
	}

	finished, _ := ts.tasks.Finished(context.Background(), 0)
	if len(finished) != 1 || finished[0].Success {
		t.Errorf("Expected one failed task, got %+v", finished)
	}
}

func TestHostMaintenance(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	if err := ts.shim.Create(ctx, "node-a", domain.HostStatusAvailable); err != nil {
		t.Fatal(err)
	}

	rr := ts.do("POST", "/hosts/node-a/maintenance", url.Values{"enabled": {"true"}}, true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/hosts" {
		t.Fatalf("Expected HX-Redirect /hosts, got %d %q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
	hosts, _ := ts.shim.List(ctx)
	if !hosts[0].InMaintenance() {
		t.Error("Expected node-a in maintenance")
	}

	rr = ts.do("POST", "/hosts/node-z/maintenance", url.Values{"enabled": {"true"}}, true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	rr = ts.do("POST", "/hosts/node-a/maintenance", url.Values{"enabled": {"maybe"}}, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestTasksPage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do("POST", "/hosts", url.Values{"hostname": {"node-c"}}, true)

	rr := ts.do("GET", "/tasks", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "host/create") || !strings.Contains(body, "hostname=node-c") {
		t.Errorf("Expected finished task in %s", body)
	}
	if !strings.Contains(body, "Nothing is running.") {
		t.Error("Expected no executing tasks")
	}
}

func TestOIDCDisabled(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/auth/login", "/auth/callback"} {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, rr.Code)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestHostFormPageWithoutHostList(t *testing.T) {
	ts := newTestServer(t, func(d cluster.Directory) cluster.Directory { return unlistableDirectory{d} })

	rr := ts.do("GET", "/hosts/new", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `data-state="loading"`) {
		t.Error("Form should stay in the loading state when the host list fails")
	}
	if !strings.Contains(body, "flash-info") || !strings.Contains(body, "Existing hostnames could not be loaded") {
		t.Errorf("Expected info flash in %s", body)
	}

	// A missing host list does not block submission.
	rr = ts.do("POST", "/hosts", url.Values{"hostname": {"node-c"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("HX-Redirect") != "/hosts" {
		t.Errorf("Expected HX-Redirect /hosts, got %q", rr.Header().Get("HX-Redirect"))
	}
	hosts, err := ts.shim.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(hosts) != 1 || hosts[0].Hostname != "node-c" {
		t.Errorf("Expected node-c to be created, got %+v", hosts)
	}
}

func TestHostCreateWhileSameHostInFlight(t *testing.T) {
	bd := newBlockingDirectory()
	ts := newTestServer(t, func(d cluster.Directory) cluster.Directory {
		bd.Directory = d
		return bd
	})

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- ts.do("POST", "/hosts", url.Values{"hostname": {"node-c"}}, true) }()

	select {
	case <-bd.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first create never reached the directory")
	}

	rr := ts.do("POST", "/hosts", url.Values{"hostname": {"node-c"}}, true)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for a second submit, got %d", rr.Code)
	}

	close(bd.release)
	if rr := <-first; rr.Code != http.StatusOK {
		t.Errorf("Expected first submit to succeed, got %d", rr.Code)
	}
	if n := bd.creates.Load(); n != 1 {
		t.Errorf("Expected 1 create call, got %d", n)
	}

	// After the first finishes, the hostname is simply a duplicate.
	rr = ts.do("POST", "/hosts", url.Values{"hostname": {"node-c"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for duplicate, got %d", rr.Code)
	}
}

func TestHostsListEscapesHostnameInPath(t *testing.T) {
	ts := newTestServer(t, nil)
	if err := ts.shim.Create(context.Background(), "rack 1/node?a", domain.HostStatusAvailable); err != nil {
		t.Fatal(err)
	}

	rr := ts.do("GET", "/hosts", nil, false)
	body := rr.Body.String()
	if !strings.Contains(body, `hx-post="/hosts/rack%201%2Fnode%3Fa/maintenance"`) {
		t.Errorf("Expected escaped maintenance path in %s", body)
	}
}
