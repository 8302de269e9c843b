package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"maintline/internal/config"
	"maintline/internal/db"
	"maintline/internal/domain"
	"maintline/internal/engine"
	"maintline/internal/events"
	"maintline/internal/mail"
	"maintline/internal/media"
	"maintline/internal/migrate"
	"maintline/internal/repo"
	"maintline/internal/server"
	maintlinesdk "maintline/sdk/go"
)

var pdfBytes = []byte("%PDF-1.4 test document")

const testSecret = "test-secret-0123456789"

type testServer struct {
	t    *testing.T
	ts   *httptest.Server
	repo *repo.Repo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	r := repo.New(conn)
	store := &media.Store{Root: filepath.Join(dir, "media")}
	e := engine.New(conn, r, events.NewWriter(nil), mail.LogMailer{}, store, config.Default())

	handler, err := server.New(server.Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     server.AuthConfig{JWTSecret: testSecret, TokenTTLHours: 1},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	srv := &testServer{t: t, ts: ts, repo: r}
	srv.addUser("bob", domain.RoleAgent, "bob@example.com")
	srv.addUser("alice", domain.RoleAgent, "alice@example.com")
	srv.addUser("manie", domain.RoleManie, "manie@example.com")
	srv.addUser("admin", domain.RoleAdmin, "admin@example.com")
	return srv
}

func (s *testServer) addUser(username string, role domain.Role, email string) domain.User {
	s.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw-"+username), bcrypt.MinCost)
	require.NoError(s.t, err)
	u := domain.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		EmailVerified: true,
		PasswordHash:  string(hash),
		Role:          role,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(s.t, s.repo.InsertUser(context.Background(), u))
	return u
}

// login returns a client authenticated as the named user.
func (s *testServer) login(t *testing.T, username string) *maintlinesdk.Client {
	t.Helper()
	c := maintlinesdk.New(s.ts.URL)
	_, err := c.Login(context.Background(), username, "pw-"+username)
	require.NoError(t, err)
	return c
}

func apiErr(t *testing.T, err error) *maintlinesdk.APIError {
	t.Helper()
	require.Error(t, err)
	ae, ok := err.(*maintlinesdk.APIError)
	require.True(t, ok, "expected *maintlinesdk.APIError, got %T: %v", err, err)
	return ae
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.ts.URL + "/v0/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	c := maintlinesdk.New(s.ts.URL)
	user, err := c.Login(ctx, "bob", "pw-bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, "agent", user.Role)
	assert.NotEmpty(t, c.BearerToken)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	// Unknown user and wrong password read the same.
	_, err = maintlinesdk.New(s.ts.URL).Login(ctx, "bob", "wrong")
	assert.Equal(t, http.StatusUnauthorized, apiErr(t, err).StatusCode)
	_, err = maintlinesdk.New(s.ts.URL).Login(ctx, "nobody", "pw-bob")
	assert.Equal(t, http.StatusUnauthorized, apiErr(t, err).StatusCode)
}

func TestRequestsWithoutCredentials(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := maintlinesdk.New(s.ts.URL).ListJobs(ctx, "")
	ae := apiErr(t, err)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Contains(t, ae.Body, `"unauthorized"`)

	c := maintlinesdk.New(s.ts.URL)
	c.BearerToken = "not-a-token"
	_, err = c.ListJobs(ctx, "")
	ae = apiErr(t, err)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Contains(t, ae.Body, `"invalid_credentials"`)
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	bob, err := s.repo.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	raw := "mk_test_key"
	require.NoError(t, s.repo.InsertAPIKey(ctx, domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    bob.ID,
		Name:      "test",
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}))

	c := maintlinesdk.New(s.ts.URL)
	c.APIKey = raw
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", me.Username)

	c.APIKey = "mk_wrong"
	_, err = c.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, apiErr(t, err).StatusCode)
}

func TestListAgents(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	agents, err := s.login(t, "manie").ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "alice", agents[0].Username)
	assert.Equal(t, "bob", agents[1].Username)

	_, err = s.login(t, "bob").ListAgents(ctx)
	assert.Equal(t, http.StatusForbidden, apiErr(t, err).StatusCode)
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	bob := s.login(t, "bob")
	manie := s.login(t, "manie")

	job, err := bob.CreateJob(ctx, "2022-01-01", "1234 Main St, Some Town",
		"https://maps.app.goo.gl/mXfDGVfn1dhZDxJj7", "Please fix the leaky faucet in the bathroom")
	require.NoError(t, err)
	assert.Equal(t, "pending_inspection", job.Status)
	assert.Equal(t, 1, job.Number)
	assert.False(t, job.JobComplete)

	job, err = manie.CompleteInspection(ctx, job.ID, "2001-02-05")
	require.NoError(t, err)
	assert.Equal(t, "inspection_completed", job.Status)
	assert.Equal(t, "2001-02-05", job.DateOfInspection)

	job, err = manie.UploadQuote(ctx, job.ID, "quote.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "quote_uploaded", job.Status)
	assert.True(t, strings.HasPrefix(job.QuoteURL, "/private-media/quotes/"))

	// The owning agent sees accept and reject as the available next steps.
	job, err = bob.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"accept_quote", "reject_quote"}, job.AvailableActions)

	job, err = bob.RejectQuote(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "quote_rejected_by_agent", job.Status)
	assert.Equal(t, "rejected", job.AcceptedOrRejected)

	job, err = bob.AcceptQuote(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "quote_accepted_by_agent", job.Status)
	assert.Equal(t, "accepted", job.AcceptedOrRejected)

	job, err = bob.UploadDepositPOP(ctx, job.ID, "deposit.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "deposit_pop_uploaded", job.Status)

	job, err = manie.CompleteOnsiteWork(ctx, job.ID, "2001-03-01")
	require.NoError(t, err)
	assert.Equal(t, "manie_completed_onsite_work", job.Status)

	job, err = manie.SubmitDocumentation(ctx, job.ID, "invoice.pdf", pdfBytes,
		"Replaced the faucet washer", []maintlinesdk.Photo{
			{Filename: "before.jpg", Data: []byte("jpegdata")},
			{Filename: "after.png", Data: []byte("pngdata")},
		})
	require.NoError(t, err)
	assert.Equal(t, "manie_submitted_documentation", job.Status)
	assert.Equal(t, "Replaced the faucet washer", job.Comments)
	assert.True(t, strings.HasPrefix(job.InvoiceURL, "/private-media/invoices/"))

	job, err = bob.UploadFinalPaymentPOP(ctx, job.ID, "final.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "final_payment_pop_uploaded", job.Status)
	assert.True(t, job.JobComplete)
	assert.Empty(t, job.AvailableActions)

	// Photos come back on the job detail.
	job, err = bob.GetJob(ctx, job.ID)
	require.NoError(t, err)

	evts, err := bob.Events(ctx, job.ID)
	require.NoError(t, err)
	require.NotEmpty(t, evts)
	assert.Equal(t, "job.created", evts[0].Type)
	assert.Equal(t, "job.final_payment_pop_uploaded", evts[len(evts)-1].Type)
}

func TestQuoteDownloadAndPrivateMedia(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	bob := s.login(t, "bob")
	manie := s.login(t, "manie")

	job, err := bob.CreateJob(ctx, "2022-01-01", "addr", "gps", "details")
	require.NoError(t, err)
	_, err = manie.CompleteInspection(ctx, job.ID, "2001-02-05")
	require.NoError(t, err)
	job, err = manie.UploadQuote(ctx, job.ID, "quote.pdf", pdfBytes)
	require.NoError(t, err)

	got, err := bob.DownloadQuote(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	got, err = bob.FetchMedia(ctx, job.QuoteURL)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	got, err = manie.FetchMedia(ctx, job.QuoteURL)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	// Another agent is refused, and so is an anonymous request.
	alice := s.login(t, "alice")
	_, err = alice.FetchMedia(ctx, job.QuoteURL)
	assert.Equal(t, http.StatusForbidden, apiErr(t, err).StatusCode)
	_, err = maintlinesdk.New(s.ts.URL).FetchMedia(ctx, job.QuoteURL)
	assert.Equal(t, http.StatusForbidden, apiErr(t, err).StatusCode)

	// Quote download needs credentials outright.
	_, err = maintlinesdk.New(s.ts.URL).DownloadQuote(ctx, job.ID)
	assert.Equal(t, http.StatusUnauthorized, apiErr(t, err).StatusCode)

	resp, err := http.Get(s.ts.URL + media.URLPrefix + "quotes/quote.pdf")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPrivateMediaMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Post(s.ts.URL+media.URLPrefix+"quotes/quote.pdf", "application/pdf",
		strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodGet, resp.Header.Get("Allow"))
}

func TestPrivateMediaMissingFile(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	admin := s.login(t, "admin")

	// Only a user who passes the gate can learn the file is missing.
	_, err := admin.FetchMedia(ctx, "/private-media/quotes/missing.pdf")
	assert.Equal(t, http.StatusNotFound, apiErr(t, err).StatusCode)

	bob := s.login(t, "bob")
	_, err = bob.FetchMedia(ctx, "/private-media/quotes/missing.pdf")
	assert.Equal(t, http.StatusForbidden, apiErr(t, err).StatusCode)
}

func TestErrorTaxonomyOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	bob := s.login(t, "bob")
	alice := s.login(t, "alice")
	manie := s.login(t, "manie")

	job, err := bob.CreateJob(ctx, "2022-01-01", "addr", "gps", "details")
	require.NoError(t, err)

	// Foreign job reads as forbidden, not missing.
	_, err = alice.GetJob(ctx, job.ID)
	ae := apiErr(t, err)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)

	// Wrong role is forbidden too.
	_, err = manie.AcceptQuote(ctx, job.ID)
	assert.Equal(t, http.StatusForbidden, apiErr(t, err).StatusCode)

	// Right user, wrong lifecycle step.
	_, err = bob.AcceptQuote(ctx, job.ID)
	ae = apiErr(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, ae.StatusCode)
	assert.Contains(t, ae.Body, "Job is not in the correct state for accepting a quote.")

	// Bad input.
	_, err = manie.CompleteInspection(ctx, job.ID, "05/02/2001")
	assert.Equal(t, http.StatusBadRequest, apiErr(t, err).StatusCode)

	// Unknown job.
	_, err = bob.GetJob(ctx, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, apiErr(t, err).StatusCode)
}

func TestAgentListScoping(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	bob := s.login(t, "bob")
	alice := s.login(t, "alice")
	manie := s.login(t, "manie")

	bobJob, err := bob.CreateJob(ctx, "2022-01-01", "addr", "gps", "details")
	require.NoError(t, err)
	_, err = alice.CreateJob(ctx, "2022-02-02", "addr2", "gps2", "details2")
	require.NoError(t, err)

	// An agent asking for someone else's jobs still gets their own.
	jobs, err := bob.ListJobs(ctx, "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, bobJob.ID, jobs[0].ID)

	jobs, err = manie.ListJobs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = manie.ListJobs(ctx, bobJob.AgentID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, bobJob.ID, jobs[0].ID)
}

func TestUploadRefusesNonPDF(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	bob := s.login(t, "bob")
	manie := s.login(t, "manie")

	job, err := bob.CreateJob(ctx, "2022-01-01", "addr", "gps", "details")
	require.NoError(t, err)
	_, err = manie.CompleteInspection(ctx, job.ID, "2001-02-05")
	require.NoError(t, err)

	_, err = manie.UploadQuote(ctx, job.ID, "quote.pdf", []byte("not a pdf"))
	assert.Equal(t, http.StatusBadRequest, apiErr(t, err).StatusCode)
}

func TestOpenAPIAndDocs(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.ts.URL + "/v0/openapi.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Maintline API")

	resp, err = http.Get(s.ts.URL + "/docs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
