// Package authz holds the capability and precondition tables for job
// actions. Handlers and the UI layer both consult these tables, so what a
// user can see and what a user can do cannot drift apart.
package authz

import (
	"errors"
	"fmt"

	"maintline/internal/domain"
)

// Action is one operation a user can attempt on a job.
type Action string

const (
	ActionCreateJob             Action = "create_job"
	ActionCompleteInspection    Action = "complete_inspection"
	ActionUploadQuote           Action = "upload_quote"
	ActionAcceptQuote           Action = "accept_quote"
	ActionRejectQuote           Action = "reject_quote"
	ActionUploadDepositPOP      Action = "upload_deposit_pop"
	ActionCompleteOnsiteWork    Action = "complete_onsite_work"
	ActionSubmitDocumentation   Action = "submit_documentation"
	ActionUploadFinalPaymentPOP Action = "upload_final_payment_pop"
)

// ErrForbidden means the user's role or ownership disqualifies them,
// regardless of job state.
var ErrForbidden = errors.New("forbidden")

// StateError means the right user attempted an action the job's current
// state does not allow.
type StateError struct {
	Action Action
}

func (e *StateError) Error() string {
	return fmt.Sprintf("Job is not in the correct state for %s.", actionVerbs[e.Action])
}

var actionVerbs = map[Action]string{
	ActionCompleteInspection:    "completing an inspection",
	ActionUploadQuote:           "uploading a quote",
	ActionAcceptQuote:           "accepting a quote",
	ActionRejectQuote:           "rejecting a quote",
	ActionUploadDepositPOP:      "uploading a deposit proof of payment",
	ActionCompleteOnsiteWork:    "completing onsite work",
	ActionSubmitDocumentation:   "submitting documentation",
	ActionUploadFinalPaymentPOP: "uploading a final payment proof of payment",
}

// actorRoles lists which roles may ever perform each action. Admins are
// handled separately: they may do everything.
var actorRoles = map[Action]domain.Role{
	ActionCreateJob:             domain.RoleAgent,
	ActionCompleteInspection:    domain.RoleManie,
	ActionUploadQuote:           domain.RoleManie,
	ActionAcceptQuote:           domain.RoleAgent,
	ActionRejectQuote:           domain.RoleAgent,
	ActionUploadDepositPOP:      domain.RoleAgent,
	ActionCompleteOnsiteWork:    domain.RoleManie,
	ActionSubmitDocumentation:   domain.RoleManie,
	ActionUploadFinalPaymentPOP: domain.RoleAgent,
}

// fromStates lists the job states an action may run from.
var fromStates = map[Action][]domain.Status{
	ActionCompleteInspection: {domain.StatusPendingInspection},
	ActionUploadQuote:        {domain.StatusInspectionCompleted, domain.StatusQuoteRejectedByAgent},
	// Agents may accept a quote they previously rejected, and rejecting
	// again after a rejection re-sends the notification.
	ActionAcceptQuote:           {domain.StatusQuoteUploaded, domain.StatusQuoteRejectedByAgent},
	ActionRejectQuote:           {domain.StatusQuoteUploaded, domain.StatusQuoteRejectedByAgent},
	ActionUploadDepositPOP:      {domain.StatusQuoteAcceptedByAgent},
	ActionCompleteOnsiteWork:    {domain.StatusDepositPOPUploaded},
	ActionSubmitDocumentation:   {domain.StatusManieCompletedOnsiteWork},
	ActionUploadFinalPaymentPOP: {domain.StatusManieSubmittedDocumention},
}

// CanAct answers the role-and-ownership half of the question: may this
// user ever perform this action on this job, ignoring state?
func CanAct(user domain.User, job domain.Job, action Action) bool {
	if user.Role == domain.RoleAdmin {
		return true
	}
	role, ok := actorRoles[action]
	if !ok || user.Role != role {
		return false
	}
	// Agent actions apply only to the agent's own jobs.
	if role == domain.RoleAgent && action != ActionCreateJob && job.AgentID != user.ID {
		return false
	}
	return true
}

// Require returns ErrForbidden unless CanAct allows the action.
func Require(user domain.User, job domain.Job, action Action) error {
	if !CanAct(user, job, action) {
		return ErrForbidden
	}
	return nil
}

// CheckState validates the job's state for an action. Authorization is
// checked first by callers; a passing user with a wrong-state job gets a
// StateError, which the HTTP layer reports as a precondition failure
// rather than a permission problem.
func CheckState(job domain.Job, action Action) error {
	states, ok := fromStates[action]
	if !ok {
		return nil
	}
	for _, s := range states {
		if job.Status == s {
			// One-shot fields refuse a second write even when the
			// status would allow it.
			if action == ActionUploadDepositPOP && job.DepositPOPPath != "" {
				break
			}
			if action == ActionUploadFinalPaymentPOP && job.FinalPaymentPOPPath != "" {
				break
			}
			return nil
		}
	}
	return &StateError{Action: action}
}

// AvailableActions lists every action the user could run on the job right
// now. The UI derives its links from this so it can never offer an action
// the handlers would refuse.
func AvailableActions(user domain.User, job domain.Job) []Action {
	ordered := []Action{
		ActionCompleteInspection,
		ActionUploadQuote,
		ActionAcceptQuote,
		ActionRejectQuote,
		ActionUploadDepositPOP,
		ActionCompleteOnsiteWork,
		ActionSubmitDocumentation,
		ActionUploadFinalPaymentPOP,
	}
	var out []Action
	for _, a := range ordered {
		if !CanAct(user, job, a) {
			continue
		}
		if err := CheckState(job, a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}
