package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"maintline/internal/domain"
)

var testJob = domain.Job{
	Number:              1,
	Date:                "2022-01-01",
	AddressDetails:      "1234 Main St, Some Town",
	GPSLink:             "https://maps.app.goo.gl/mXfDGVfn1dhZDxJj7",
	QuoteRequestDetails: "Please fix the leaky faucet in the bathroom",
	DateOfInspection:    "2001-02-05",
}

const testURL = "http://localhost:8614/jobs/abc"

func TestNewJobBody(t *testing.T) {
	want := "bob has made a new maintenance request.\n\n" +
		"Details of the job can be found at: http://localhost:8614/jobs/abc\n\n" +
		"Number: 1\n\n" +
		"Date: 2022-01-01\n\n" +
		"Address Details:\n\n1234 Main St, Some Town\n\n" +
		"GPS Link:\n\nhttps://maps.app.goo.gl/mXfDGVfn1dhZDxJj7\n\n" +
		"Quote Request Details:\n\nPlease fix the leaky faucet in the bathroom\n\n" +
		"PS: This mail is sent from an unmonitored email address. " +
		"Please do not reply to this email.\n\n"
	assert.Equal(t, want, NewJobBody("bob", testJob, testURL))
	assert.Equal(t, "New maintenance request by bob", NewJobSubject("bob"))
}

func TestInspectionCompletedBody(t *testing.T) {
	body := InspectionCompletedBody("bob", testJob, testURL)
	assert.True(t, strings.HasPrefix(body,
		"Manie performed the inspection on 2001-02-05. "+
			"An email with the quote will be sent later.\n\n"))
	assert.Contains(t, body, "Details of your original request:\n\n-----\n\n"+
		"Subject: New maintenance request by bob\n\n")
}

func TestQuoteSubjects(t *testing.T) {
	assert.Equal(t, "Manie uploaded a quote for your maintenance request", QuoteUploadedSubject(false))
	assert.Equal(t, "Manie uploaded an updated quote for your job", QuoteUploadedSubject(true))
	assert.Equal(t, "Quote accepted by bob", QuoteAcceptedSubject("bob"))
	assert.Equal(t, "Quote rejected by bob", QuoteRejectedSubject("bob"))
}

func TestDocumentationBodyComments(t *testing.T) {
	withComments := testJob
	withComments.Comments = "Replaced the faucet washer"
	assert.Contains(t, DocumentationBody("bob", withComments, testURL),
		"Manies comments on the job: Replaced the faucet washer\n\n")
	assert.NotContains(t, DocumentationBody("bob", testJob, testURL),
		"Manies comments on the job")
	assert.Equal(t, "Manie uploaded documentation for a job.", DocumentationSubject())
}

func TestPOPSubjects(t *testing.T) {
	assert.Equal(t, "Agent bob added a Deposit POP to the maintenance request",
		DepositPOPSubject("bob"))
	assert.Equal(t, "Agent bob added a Final Payment POP to the maintenance request",
		FinalPaymentPOPSubject("bob"))
}
