package engine

import (
	"context"
	"errors"
	"log"

	"maintline/internal/domain"
	"maintline/internal/mail"
)

// notifyJobCreated emails the contractor about a new request. Any problem
// is logged and returned as a warning string; the job itself stands.
func (e *Engine) notifyJobCreated(ctx context.Context, agent domain.User, job domain.Job) string {
	manie, err := e.Contractor(ctx)
	switch {
	case errors.Is(err, ErrNoContractor):
		log.Printf("no Manie user found, unable to send maintenance request email (job %s)", job.ID)
		return "No Manie user found. Unable to send maintenance request email. " +
			"Please contact the system administrator."
	case errors.Is(err, ErrMultipleContractors):
		log.Printf("multiple Manie users found, unable to send maintenance request email (job %s)", job.ID)
		return "Multiple Manie users found. Unable to send maintenance request email. " +
			"Please contact the system administrator."
	case err != nil:
		log.Printf("contractor lookup failed for job %s: %v", job.ID, err)
		return "Unable to send maintenance request email. " +
			"Please contact the system administrator."
	}

	if agent.Email == "" {
		log.Printf("user %s has no email address, unable to send maintenance request email", agent.Username)
		return "Your email address is missing. Unable to send maintenance request email. " +
			"Please contact the system administrator."
	}
	if manie.Email == "" {
		log.Printf("user manie has no email address, unable to send maintenance request email")
		return "Manie's email address is missing. Unable to send maintenance request email. " +
			"Please contact the system administrator."
	}
	if !agent.EmailVerified {
		log.Printf("user %s has not verified their email address, unable to send maintenance request email", agent.Username)
		return "Your email address is not verified. Unable to send maintenance request email. " +
			"Please verify your email address and try again."
	}
	if !manie.EmailVerified {
		log.Printf("Manie's email address is not verified, unable to send maintenance request email")
		return "Manie's email address is not verified. Unable to send maintenance request email. " +
			"Please contact the system administrator."
	}

	msg := mail.Message{
		To:      []string{manie.Email},
		Cc:      []string{agent.Email},
		Subject: mail.NewJobSubject(agent.Username),
		Body:    mail.NewJobBody(agent.Username, job, e.jobURL(job)),
	}
	if err := e.Mail.Send(ctx, msg); err != nil {
		log.Printf("send maintenance request email for job %s: %v", job.ID, err)
		return "Unable to send maintenance request email. " +
			"Please contact the system administrator."
	}
	return ""
}

// notifyAgent sends a transition notification to the job's agent with the
// contractor on copy. Unlike creation, transition emails are not best
// effort; a transport failure propagates to the caller.
func (e *Engine) notifyAgent(ctx context.Context, job domain.Job, subject string, body func(agent, url string) string, atts []mail.Attachment) error {
	agent, err := e.Repo.GetUserByID(ctx, job.AgentID)
	if err != nil {
		return err
	}
	manie, err := e.Contractor(ctx)
	if err != nil {
		return err
	}
	return e.Mail.Send(ctx, mail.Message{
		To:          []string{agent.Email},
		Cc:          []string{manie.Email},
		Subject:     subject,
		Body:        body(agent.Username, e.jobURL(job)),
		Attachments: atts,
	})
}

// notifyContractor is the mirror image: the contractor in To, the acting
// agent in Cc.
func (e *Engine) notifyContractor(ctx context.Context, job domain.Job, subject func(agent string) string, body func(agent, url string) string, atts []mail.Attachment) error {
	agent, err := e.Repo.GetUserByID(ctx, job.AgentID)
	if err != nil {
		return err
	}
	manie, err := e.Contractor(ctx)
	if err != nil {
		return err
	}
	return e.Mail.Send(ctx, mail.Message{
		To:          []string{manie.Email},
		Cc:          []string{agent.Email},
		Subject:     subject(agent.Username),
		Body:        body(agent.Username, e.jobURL(job)),
		Attachments: atts,
	})
}
