package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"maintline/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Repo struct {
	DB *sql.DB
}

func New(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// --- users ---

const userCols = `id, username, email, email_verified, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var verified int
	err := row.Scan(&u.ID, &u.Username, &u.Email, &verified, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.EmailVerified = verified != 0
	return u, nil
}

func (r *Repo) InsertUser(ctx context.Context, u domain.User) error {
	verified := 0
	if u.EmailVerified {
		verified = 1
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.Email, verified, u.PasswordHash, u.Role, u.CreatedAt)
	return err
}

func (r *Repo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.listUsersWhere(ctx, ``)
}

func (r *Repo) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.listUsersWhere(ctx, `WHERE role=?`, role)
}

func (r *Repo) listUsersWhere(ctx context.Context, where string, args ...any) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userCols+` FROM users `+where+` ORDER BY username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- jobs ---

const jobCols = `id, number, agent_id, date, address_details, gps_link, quote_request_details,
	date_of_inspection, quote_path, accepted_or_rejected, deposit_pop_path,
	onsite_work_completion_date, invoice_path, comments, final_payment_pop_path,
	status, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.Number, &j.AgentID, &j.Date, &j.AddressDetails, &j.GPSLink, &j.QuoteRequestDetails,
		&j.DateOfInspection, &j.QuotePath, &j.AcceptedOrRejected, &j.DepositPOPPath,
		&j.OnsiteWorkCompletionDate, &j.InvoicePath, &j.Comments, &j.FinalPaymentPOPPath,
		&j.Status, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// InsertJobTx inserts a job and assigns its per-agent sequence number
// inside the caller's transaction.
func (r *Repo) InsertJobTx(ctx context.Context, tx *sql.Tx, j *domain.Job) error {
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM jobs WHERE agent_id=?`, j.AgentID).Scan(&j.Number)
	if err != nil {
		return fmt.Errorf("next job number: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (`+jobCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		j.ID, j.Number, j.AgentID, j.Date, j.AddressDetails, j.GPSLink, j.QuoteRequestDetails,
		j.DateOfInspection, j.QuotePath, j.AcceptedOrRejected, j.DepositPOPPath,
		j.OnsiteWorkCompletionDate, j.InvoicePath, j.Comments, j.FinalPaymentPOPPath,
		j.Status, j.CreatedAt, j.UpdatedAt)
	return err
}

func (r *Repo) GetJob(ctx context.Context, id string) (domain.Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobCols+` FROM jobs WHERE id=?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return domain.Job{}, ErrNotFound
	}
	return j, err
}

// GetJobTx reads a job inside a transaction so transition handlers see a
// consistent snapshot.
func (r *Repo) GetJobTx(ctx context.Context, tx *sql.Tx, id string) (domain.Job, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+jobCols+` FROM jobs WHERE id=?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return domain.Job{}, ErrNotFound
	}
	return j, err
}

func (r *Repo) UpdateJobTx(ctx context.Context, tx *sql.Tx, j domain.Job) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET
			date_of_inspection=?, quote_path=?, accepted_or_rejected=?, deposit_pop_path=?,
			onsite_work_completion_date=?, invoice_path=?, comments=?, final_payment_pop_path=?,
			status=?, updated_at=?
		WHERE id=?`,
		j.DateOfInspection, j.QuotePath, j.AcceptedOrRejected, j.DepositPOPPath,
		j.OnsiteWorkCompletionDate, j.InvoicePath, j.Comments, j.FinalPaymentPOPPath,
		j.Status, j.UpdatedAt, j.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobs returns jobs, optionally restricted to one agent, oldest first.
func (r *Repo) ListJobs(ctx context.Context, agentID string) ([]domain.Job, error) {
	q := `SELECT ` + jobCols + ` FROM jobs`
	var args []any
	if agentID != "" {
		q += ` WHERE agent_id=?`
		args = append(args, agentID)
	}
	q += ` ORDER BY created_at, number`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// --- completion photos ---

func (r *Repo) InsertPhotoTx(ctx context.Context, tx *sql.Tx, p domain.JobCompletionPhoto) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO job_completion_photos (id, job_id, photo_path, created_at) VALUES (?,?,?,?)`,
		p.ID, p.JobID, p.PhotoPath, p.CreatedAt)
	return err
}

func (r *Repo) ListPhotos(ctx context.Context, jobID string) ([]domain.JobCompletionPhoto, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, job_id, photo_path, created_at FROM job_completion_photos WHERE job_id=? ORDER BY created_at, id`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var photos []domain.JobCompletionPhoto
	for rows.Next() {
		var p domain.JobCompletionPhoto
		if err := rows.Scan(&p.ID, &p.JobID, &p.PhotoPath, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
