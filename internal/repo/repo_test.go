package repo_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintline/internal/db"
	"maintline/internal/domain"
	"maintline/internal/media"
	"maintline/internal/migrate"
	"maintline/internal/repo"
)

func newTestRepo(t *testing.T) (*repo.Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.New(conn), conn
}

func insertUser(t *testing.T, r *repo.Repo, username string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(t, r.InsertUser(context.Background(), u))
	return u
}

func insertJob(t *testing.T, r *repo.Repo, conn *sql.DB, agentID string) domain.Job {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)
	j := domain.Job{
		ID:                  uuid.NewString(),
		AgentID:             agentID,
		Date:                "2022-01-01",
		AddressDetails:      "addr",
		GPSLink:             "gps",
		QuoteRequestDetails: "details",
		Status:              domain.StatusPendingInspection,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.InsertJobTx(ctx, tx, &j))
	require.NoError(t, tx.Commit())
	return j
}

func TestUserRoundTrip(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := insertUser(t, r, "bob", domain.RoleAgent)

	got, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)
	assert.False(t, got.EmailVerified)

	got, err = r.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.GetUserByID(ctx, "nope")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// Usernames are unique.
	assert.Error(t, r.InsertUser(ctx, domain.User{
		ID: uuid.NewString(), Username: "bob", Role: domain.RoleAgent,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}))
}

func TestListUsersByRole(t *testing.T) {
	r, _ := newTestRepo(t)
	insertUser(t, r, "bob", domain.RoleAgent)
	insertUser(t, r, "alice", domain.RoleAgent)
	insertUser(t, r, "manie", domain.RoleManie)

	agents, err := r.ListUsersByRole(context.Background(), domain.RoleAgent)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	// Ordered by username.
	assert.Equal(t, "alice", agents[0].Username)
	assert.Equal(t, "bob", agents[1].Username)
}

func TestJobNumbering(t *testing.T) {
	r, conn := newTestRepo(t)
	bob := insertUser(t, r, "bob", domain.RoleAgent)
	alice := insertUser(t, r, "alice", domain.RoleAgent)

	assert.Equal(t, 1, insertJob(t, r, conn, bob.ID).Number)
	assert.Equal(t, 2, insertJob(t, r, conn, bob.ID).Number)
	assert.Equal(t, 1, insertJob(t, r, conn, alice.ID).Number)
}

func TestUpdateJobTx(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	bob := insertUser(t, r, "bob", domain.RoleAgent)
	j := insertJob(t, r, conn, bob.ID)

	j.Status = domain.StatusInspectionCompleted
	j.DateOfInspection = "2001-02-05"
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.UpdateJobTx(ctx, tx, j))
	require.NoError(t, tx.Commit())

	got, err := r.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInspectionCompleted, got.Status)
	assert.Equal(t, "2001-02-05", got.DateOfInspection)

	// Updating a missing job reports not found.
	tx, err = conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	missing := j
	missing.ID = "nope"
	assert.ErrorIs(t, r.UpdateJobTx(ctx, tx, missing), repo.ErrNotFound)
	tx.Rollback()
}

func TestOwningAgents(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	bob := insertUser(t, r, "bob", domain.RoleAgent)
	alice := insertUser(t, r, "alice", domain.RoleAgent)

	setQuote := func(j domain.Job, path string) {
		j.QuotePath = path
		tx, err := conn.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, r.UpdateJobTx(ctx, tx, j))
		require.NoError(t, tx.Commit())
	}

	bobJob := insertJob(t, r, conn, bob.ID)
	aliceJob := insertJob(t, r, conn, alice.ID)
	setQuote(bobJob, "quotes/quote.pdf")

	agents, err := r.OwningAgents(ctx, media.KindQuote, "quotes/quote.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, agents)

	agents, err = r.OwningAgents(ctx, media.KindQuote, "quotes/other.pdf")
	require.NoError(t, err)
	assert.Empty(t, agents)

	// Two jobs pointing at the same path both come back.
	setQuote(aliceJob, "quotes/quote.pdf")
	agents, err = r.OwningAgents(ctx, media.KindQuote, "quotes/quote.pdf")
	require.NoError(t, err)
	assert.Len(t, agents, 2)

	_, err = r.OwningAgents(ctx, media.KindUnrecognized, "whatever")
	assert.Error(t, err)
}

func TestOwningAgentsForPhotos(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	bob := insertUser(t, r, "bob", domain.RoleAgent)
	j := insertJob(t, r, conn, bob.ID)

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.InsertPhotoTx(ctx, tx, domain.JobCompletionPhoto{
		ID:        uuid.NewString(),
		JobID:     j.ID,
		PhotoPath: "completion_photos/site.jpg",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}))
	require.NoError(t, tx.Commit())

	agents, err := r.OwningAgents(ctx, media.KindCompletionPhoto, "completion_photos/site.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, agents)

	photos, err := r.ListPhotos(ctx, j.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "completion_photos/site.jpg", photos[0].PhotoPath)
}
