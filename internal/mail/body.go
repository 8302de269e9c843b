package mail

import (
	"fmt"

	"maintline/internal/domain"
)

// requestDetails is the block shared by every notification: a restatement
// of the original request plus the unmonitored-address footer.
func requestDetails(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf(
		"%s has made a new maintenance request.\n\n"+
			"Details of the job can be found at: %s\n\n"+
			"Number: %d\n\n"+
			"Date: %s\n\n"+
			"Address Details:\n\n%s\n\n"+
			"GPS Link:\n\n%s\n\n"+
			"Quote Request Details:\n\n%s\n\n"+
			"PS: This mail is sent from an unmonitored email address. "+
			"Please do not reply to this email.\n\n",
		agent, detailURL, job.Number, job.Date,
		job.AddressDetails, job.GPSLink, job.QuoteRequestDetails)
}

func originalRequestTail(agent string, job domain.Job, detailURL string) string {
	return "Details of your original request:\n\n" +
		"-----\n\n" +
		fmt.Sprintf("Subject: New maintenance request by %s\n\n", agent) +
		requestDetails(agent, job, detailURL)
}

func NewJobSubject(agent string) string {
	return fmt.Sprintf("New maintenance request by %s", agent)
}

func NewJobBody(agent string, job domain.Job, detailURL string) string {
	return requestDetails(agent, job, detailURL)
}

func InspectionCompletedSubject() string {
	return "Manie completed an inspection for your maintenance request"
}

func InspectionCompletedBody(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf(
		"Manie performed the inspection on %s. An email "+
			"with the quote will be sent later.\n\n", job.DateOfInspection) +
		originalRequestTail(agent, job, detailURL)
}

func QuoteUploadedSubject(updated bool) string {
	if updated {
		return "Manie uploaded an updated quote for your job"
	}
	return "Manie uploaded a quote for your maintenance request"
}

func QuoteUploadedBody(agent string, job domain.Job, detailURL string, updated bool) string {
	lead := "Manie uploaded a quote for a maintenance job. "
	if updated {
		lead = "Manie uploaded a new quote for a maintenance job. "
	}
	return lead + "The quote is attached to this email.\n\n" +
		originalRequestTail(agent, job, detailURL)
}

func QuoteAcceptedSubject(agent string) string {
	return fmt.Sprintf("Quote accepted by %s", agent)
}

func QuoteAcceptedBody(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf("Agent %s has accepted the quote for a maintenance job.\n\n", agent) +
		"Details of the original request:\n\n" +
		"-----\n\n" +
		fmt.Sprintf("Subject: New maintenance request by %s\n\n", agent) +
		requestDetails(agent, job, detailURL)
}

func QuoteRejectedSubject(agent string) string {
	return fmt.Sprintf("Quote rejected by %s", agent)
}

func QuoteRejectedBody(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf(
		"Agent %s has rejected the quote for your maintenance request.\n\n", agent) +
		"Details of the original request:\n\n" +
		"-----\n\n" +
		"Subject: Quote for your maintenance request\n\n" +
		"-----\n\n" +
		fmt.Sprintf("Subject: New maintenance request by %s\n\n", agent) +
		fmt.Sprintf("Manie performed the inspection on %s and has quoted you.\n\n",
			job.DateOfInspection) +
		requestDetails(agent, job, detailURL)
}

func DepositPOPSubject(agent string) string {
	return fmt.Sprintf("Agent %s added a Deposit POP to the maintenance request", agent)
}

func DepositPOPBody(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf(
		"Agent %s added a Deposit POP to the maintenance request. "+
			"The POP is attached to this email.\n\n", agent) +
		originalRequestTail(agent, job, detailURL)
}

func OnsiteWorkCompletedSubject() string {
	return "Manie completed onsite work on a maintenance job"
}

func OnsiteWorkCompletedBody(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf(
		"Manie completed the onsite maintenance work on %s. "+
			"An email with further documentation will be sent later.\n\n",
		job.OnsiteWorkCompletionDate) +
		originalRequestTail(agent, job, detailURL)
}

func DocumentationSubject() string {
	return "Manie uploaded documentation for a job."
}

func DocumentationBody(agent string, job domain.Job, detailURL string) string {
	body := "Manie uploaded documentation for a job. " +
		"The invoice and any photos are attached to this mail.\n\n"
	if job.Comments != "" {
		body += fmt.Sprintf("Manies comments on the job: %s\n\n", job.Comments)
	}
	return body + originalRequestTail(agent, job, detailURL)
}

func FinalPaymentPOPSubject(agent string) string {
	return fmt.Sprintf("Agent %s added a Final Payment POP to the maintenance request", agent)
}

func FinalPaymentPOPBody(agent string, job domain.Job, detailURL string) string {
	return fmt.Sprintf(
		"Agent %s added a Final Payment POP to the maintenance request. "+
			"The POP is attached to this email.\n\n", agent) +
		originalRequestTail(agent, job, detailURL)
}
