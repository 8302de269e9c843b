// Package engine implements the maintenance job workflow: creation, the
// transition handlers that walk a job through its lifecycle, and the
// notification emails each step sends.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maintline/internal/config"
	"maintline/internal/domain"
	"maintline/internal/engine/authz"
	"maintline/internal/events"
	"maintline/internal/mail"
	"maintline/internal/media"
	"maintline/internal/repo"
)

// ValidationError reports bad input on an otherwise well-formed request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Engine wires the store, repo, event log and mailer together. Every
// transition runs in one transaction; notification emails go out only
// after the transaction commits.
type Engine struct {
	DB     *sql.DB
	Repo   *repo.Repo
	Events *events.Writer
	Mail   mail.Mailer
	Store  *media.Store
	Config *config.Config
	Now    func() time.Time

	// Contractor resolves the single Manie account notifications go to.
	// Defaults to a role lookup on the repo.
	Contractor func(ctx context.Context) (domain.User, error)
}

func New(db *sql.DB, r *repo.Repo, ev *events.Writer, m mail.Mailer, st *media.Store, cfg *config.Config) *Engine {
	e := &Engine{
		DB: db, Repo: r, Events: ev, Mail: m, Store: st, Config: cfg,
		Now: time.Now,
	}
	e.Contractor = e.lookupContractor
	return e
}

// Contractor lookup failures. Both leave created jobs standing; the
// caller gets a warning instead of an error.
var (
	ErrNoContractor        = errors.New("no contractor account found")
	ErrMultipleContractors = errors.New("multiple contractor accounts found")
)

func (e *Engine) lookupContractor(ctx context.Context) (domain.User, error) {
	manies, err := e.Repo.ListUsersByRole(ctx, domain.RoleManie)
	if err != nil {
		return domain.User{}, err
	}
	switch len(manies) {
	case 0:
		return domain.User{}, ErrNoContractor
	case 1:
		return manies[0], nil
	}
	return domain.User{}, ErrMultipleContractors
}

func (e *Engine) now() string {
	return e.Now().UTC().Format(time.RFC3339)
}

func (e *Engine) jobURL(job domain.Job) string {
	return fmt.Sprintf("%s/jobs/%s", e.Config.BaseURL, job.ID)
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// CreateJobInput carries the request fields an agent fills in.
type CreateJobInput struct {
	Date                string
	AddressDetails      string
	GPSLink             string
	QuoteRequestDetails string
}

func (in CreateJobInput) validate() error {
	if !validDate(in.Date) {
		return validationf("date must be formatted YYYY-MM-DD")
	}
	if in.AddressDetails == "" {
		return validationf("address_details is required")
	}
	if in.GPSLink == "" {
		return validationf("gps_link is required")
	}
	if in.QuoteRequestDetails == "" {
		return validationf("quote_request_details is required")
	}
	return nil
}

// CreateJob records a new maintenance request and notifies the
// contractor. Email problems never fail the creation: the job stands and
// the problem comes back as a warning for the caller to surface.
func (e *Engine) CreateJob(ctx context.Context, actor domain.User, in CreateJobInput) (domain.Job, string, error) {
	if err := authz.Require(actor, domain.Job{}, authz.ActionCreateJob); err != nil {
		return domain.Job{}, "", err
	}
	if err := in.validate(); err != nil {
		return domain.Job{}, "", err
	}

	// The creating user owns the job, whether agent or admin.
	agent := actor

	now := e.now()
	job := domain.Job{
		ID:                  uuid.NewString(),
		AgentID:             agent.ID,
		Date:                in.Date,
		AddressDetails:      in.AddressDetails,
		GPSLink:             in.GPSLink,
		QuoteRequestDetails: in.QuoteRequestDetails,
		Status:              domain.StatusPendingInspection,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, "", err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertJobTx(ctx, tx, &job); err != nil {
		return domain.Job{}, "", err
	}
	if err := e.Events.Append(ctx, tx, "job.created", job.ID, actor.ID, map[string]any{
		"number": job.Number,
	}); err != nil {
		return domain.Job{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.Job{}, "", err
	}

	warning := e.notifyJobCreated(ctx, agent, job)
	return job, warning, nil
}

// transition runs one lifecycle step: authorize, check state, mutate the
// job inside a transaction, append the audit event. mutate fills in the
// fields the step owns and returns the event payload.
func (e *Engine) transition(
	ctx context.Context,
	actor domain.User,
	jobID string,
	action authz.Action,
	next domain.Status,
	evtType string,
	mutate func(tx *sql.Tx, job *domain.Job) (map[string]any, error),
) (domain.Job, error) {
	job, err := e.Repo.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if err := authz.Require(actor, job, action); err != nil {
		return domain.Job{}, err
	}
	if err := authz.CheckState(job, action); err != nil {
		return domain.Job{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, err
	}
	defer tx.Rollback()

	// Re-read inside the transaction and re-check: another request may
	// have advanced the job since the first read.
	job, err = e.Repo.GetJobTx(ctx, tx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if err := authz.CheckState(job, action); err != nil {
		return domain.Job{}, err
	}
	if !job.Status.CanAdvanceTo(next) {
		return domain.Job{}, &authz.StateError{Action: action}
	}

	payload, err := mutate(tx, &job)
	if err != nil {
		return domain.Job{}, err
	}
	job.Status = next
	job.UpdatedAt = e.now()
	if err := e.Repo.UpdateJobTx(ctx, tx, job); err != nil {
		return domain.Job{}, err
	}
	if err := e.Events.Append(ctx, tx, evtType, job.ID, actor.ID, payload); err != nil {
		return domain.Job{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// CompleteInspection records the date Manie inspected the site.
func (e *Engine) CompleteInspection(ctx context.Context, actor domain.User, jobID, dateOfInspection string) (domain.Job, error) {
	if !validDate(dateOfInspection) {
		return domain.Job{}, validationf("date_of_inspection must be formatted YYYY-MM-DD")
	}
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionCompleteInspection, domain.StatusInspectionCompleted, "job.inspection_completed",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			job.DateOfInspection = dateOfInspection
			return map[string]any{"date_of_inspection": dateOfInspection}, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	if err := e.notifyAgent(ctx, job,
		mail.InspectionCompletedSubject(),
		func(agent string, url string) string { return mail.InspectionCompletedBody(agent, job, url) },
		nil); err != nil {
		return job, err
	}
	return job, nil
}

// UploadQuote stores Manie's quote PDF and emails it to the agent. A
// quote uploaded after a rejection replaces the old one and the email
// says so.
func (e *Engine) UploadQuote(ctx context.Context, actor domain.User, jobID, filename string, data []byte) (domain.Job, error) {
	if err := validatePDF(filename, data); err != nil {
		return domain.Job{}, err
	}
	var updated bool
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionUploadQuote, domain.StatusQuoteUploaded, "job.quote_uploaded",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			updated = job.Status == domain.StatusQuoteRejectedByAgent
			rel, err := e.Store.Write("quotes", filename, data)
			if err != nil {
				return nil, err
			}
			job.QuotePath = rel
			job.AcceptedOrRejected = domain.DecisionNone
			return map[string]any{"quote_path": rel, "updated": updated}, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	att := []mail.Attachment{{Filename: filename, ContentType: "application/pdf", Data: data}}
	if err := e.notifyAgent(ctx, job,
		mail.QuoteUploadedSubject(updated),
		func(agent string, url string) string { return mail.QuoteUploadedBody(agent, job, url, updated) },
		att); err != nil {
		return job, err
	}
	return job, nil
}

// AcceptQuote records the agent's acceptance and notifies Manie. Accepting
// is allowed even after a rejection, as long as no later step has run.
func (e *Engine) AcceptQuote(ctx context.Context, actor domain.User, jobID string) (domain.Job, error) {
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionAcceptQuote, domain.StatusQuoteAcceptedByAgent, "job.quote_accepted",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			job.AcceptedOrRejected = domain.DecisionAccepted
			return nil, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	if err := e.notifyContractor(ctx, job,
		func(agent string) string { return mail.QuoteAcceptedSubject(agent) },
		func(agent string, url string) string { return mail.QuoteAcceptedBody(agent, job, url) },
		nil); err != nil {
		return job, err
	}
	return job, nil
}

// RejectQuote records a rejection and notifies Manie. Rejecting an
// already-rejected quote is allowed and re-sends the notification.
func (e *Engine) RejectQuote(ctx context.Context, actor domain.User, jobID string) (domain.Job, error) {
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionRejectQuote, domain.StatusQuoteRejectedByAgent, "job.quote_rejected",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			job.AcceptedOrRejected = domain.DecisionRejected
			return nil, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	if err := e.notifyContractor(ctx, job,
		func(agent string) string { return mail.QuoteRejectedSubject(agent) },
		func(agent string, url string) string { return mail.QuoteRejectedBody(agent, job, url) },
		nil); err != nil {
		return job, err
	}
	return job, nil
}

// UploadDepositPOP stores the agent's deposit proof of payment. The field
// is one-shot: a job that already has one refuses another.
func (e *Engine) UploadDepositPOP(ctx context.Context, actor domain.User, jobID, filename string, data []byte) (domain.Job, error) {
	if err := validatePDF(filename, data); err != nil {
		return domain.Job{}, err
	}
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionUploadDepositPOP, domain.StatusDepositPOPUploaded, "job.deposit_pop_uploaded",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			rel, err := e.Store.Write("deposit_pops", filename, data)
			if err != nil {
				return nil, err
			}
			job.DepositPOPPath = rel
			return map[string]any{"deposit_pop_path": rel}, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	att := []mail.Attachment{{Filename: filename, ContentType: "application/pdf", Data: data}}
	if err := e.notifyContractor(ctx, job,
		func(agent string) string { return mail.DepositPOPSubject(agent) },
		func(agent string, url string) string { return mail.DepositPOPBody(agent, job, url) },
		att); err != nil {
		return job, err
	}
	return job, nil
}

// CompleteOnsiteWork records the date Manie finished the physical work.
func (e *Engine) CompleteOnsiteWork(ctx context.Context, actor domain.User, jobID, completionDate string) (domain.Job, error) {
	if !validDate(completionDate) {
		return domain.Job{}, validationf("onsite_work_completion_date must be formatted YYYY-MM-DD")
	}
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionCompleteOnsiteWork, domain.StatusManieCompletedOnsiteWork, "job.onsite_work_completed",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			job.OnsiteWorkCompletionDate = completionDate
			return map[string]any{"onsite_work_completion_date": completionDate}, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	if err := e.notifyAgent(ctx, job,
		mail.OnsiteWorkCompletedSubject(),
		func(agent string, url string) string { return mail.OnsiteWorkCompletedBody(agent, job, url) },
		nil); err != nil {
		return job, err
	}
	return job, nil
}

// PhotoUpload is one completion photo in a documentation submission.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// SubmitDocumentation stores Manie's invoice, comments and completion
// photos in one step and emails everything to the agent.
func (e *Engine) SubmitDocumentation(ctx context.Context, actor domain.User, jobID string, invoiceName string, invoice []byte, comments string, photos []PhotoUpload) (domain.Job, error) {
	if err := validatePDF(invoiceName, invoice); err != nil {
		return domain.Job{}, err
	}
	for _, p := range photos {
		if err := validatePhoto(p.Filename); err != nil {
			return domain.Job{}, err
		}
	}
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionSubmitDocumentation, domain.StatusManieSubmittedDocumention, "job.documentation_submitted",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			rel, err := e.Store.Write("invoices", invoiceName, invoice)
			if err != nil {
				return nil, err
			}
			job.InvoicePath = rel
			job.Comments = comments
			now := e.now()
			var paths []string
			for _, p := range photos {
				prel, err := e.Store.Write("completion_photos", p.Filename, p.Data)
				if err != nil {
					return nil, err
				}
				row := domain.JobCompletionPhoto{
					ID:        uuid.NewString(),
					JobID:     job.ID,
					PhotoPath: prel,
					CreatedAt: now,
				}
				if err := e.Repo.InsertPhotoTx(ctx, tx, row); err != nil {
					return nil, err
				}
				paths = append(paths, prel)
			}
			return map[string]any{"invoice_path": rel, "photo_paths": paths}, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	atts := []mail.Attachment{{Filename: invoiceName, ContentType: "application/pdf", Data: invoice}}
	for _, p := range photos {
		atts = append(atts, mail.Attachment{
			Filename:    p.Filename,
			ContentType: media.ContentType(p.Filename),
			Data:        p.Data,
		})
	}
	if err := e.notifyAgent(ctx, job,
		mail.DocumentationSubject(),
		func(agent string, url string) string { return mail.DocumentationBody(agent, job, url) },
		atts); err != nil {
		return job, err
	}
	return job, nil
}

// UploadFinalPaymentPOP stores the final proof of payment and closes the
// job. Like the deposit, the field is one-shot.
func (e *Engine) UploadFinalPaymentPOP(ctx context.Context, actor domain.User, jobID, filename string, data []byte) (domain.Job, error) {
	if err := validatePDF(filename, data); err != nil {
		return domain.Job{}, err
	}
	job, err := e.transition(ctx, actor, jobID,
		authz.ActionUploadFinalPaymentPOP, domain.StatusFinalPaymentPOPUploaded, "job.final_payment_pop_uploaded",
		func(tx *sql.Tx, job *domain.Job) (map[string]any, error) {
			rel, err := e.Store.Write("final_payment_pops", filename, data)
			if err != nil {
				return nil, err
			}
			job.FinalPaymentPOPPath = rel
			return map[string]any{"final_payment_pop_path": rel}, nil
		})
	if err != nil {
		return domain.Job{}, err
	}
	att := []mail.Attachment{{Filename: filename, ContentType: "application/pdf", Data: data}}
	if err := e.notifyContractor(ctx, job,
		func(agent string) string { return mail.FinalPaymentPOPSubject(agent) },
		func(agent string, url string) string { return mail.FinalPaymentPOPBody(agent, job, url) },
		att); err != nil {
		return job, err
	}
	return job, nil
}

// ViewJob returns a job the user is allowed to see. Agents see only
// their own jobs; a foreign job reads as forbidden, not missing.
func (e *Engine) ViewJob(ctx context.Context, actor domain.User, jobID string) (domain.Job, error) {
	job, err := e.Repo.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if actor.Role == domain.RoleAgent && job.AgentID != actor.ID {
		return domain.Job{}, authz.ErrForbidden
	}
	return job, nil
}

// ListJobs returns jobs visible to the user. Agents are always scoped to
// their own; Manie and admins may scope to one agent or see everything.
func (e *Engine) ListJobs(ctx context.Context, actor domain.User, agentID string) ([]domain.Job, error) {
	if actor.Role == domain.RoleAgent {
		agentID = actor.ID
	}
	return e.Repo.ListJobs(ctx, agentID)
}

// ListEvents returns a job's audit trail, subject to the same visibility
// rule as ViewJob.
func (e *Engine) ListEvents(ctx context.Context, actor domain.User, jobID string) ([]events.Event, error) {
	if _, err := e.ViewJob(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return events.List(ctx, e.DB, jobID)
}

// ListPhotos returns a job's completion photos, subject to ViewJob's rule.
func (e *Engine) ListPhotos(ctx context.Context, actor domain.User, jobID string) ([]domain.JobCompletionPhoto, error) {
	if _, err := e.ViewJob(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return e.Repo.ListPhotos(ctx, jobID)
}
