package server

import (
	"maintline/internal/domain"
	"maintline/internal/engine/authz"
	"maintline/internal/events"
	"maintline/internal/media"
)

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

func mapUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

type CreateJobRequest struct {
	Date                string `json:"date" example:"2022-01-01"`
	AddressDetails      string `json:"address_details" example:"1234 Main St, Some Town"`
	GPSLink             string `json:"gps_link" example:"https://maps.app.goo.gl/mXfDGVfn1dhZDxJj7"`
	QuoteRequestDetails string `json:"quote_request_details" example:"Please fix the leaky faucet in the bathroom"`
}

type PhotoResponse struct {
	ID       string `json:"id"`
	PhotoURL string `json:"photo_url"`
}

// JobResponse is the wire shape of a job. Document fields come back as
// private-media URLs, and available_actions lists what the requesting
// user could do next.
type JobResponse struct {
	ID                  string `json:"id"`
	Number              int    `json:"number"`
	AgentID             string `json:"agent_id"`
	Date                string `json:"date"`
	AddressDetails      string `json:"address_details"`
	GPSLink             string `json:"gps_link"`
	QuoteRequestDetails string `json:"quote_request_details"`

	DateOfInspection         string `json:"date_of_inspection,omitempty"`
	QuoteURL                 string `json:"quote_url,omitempty"`
	AcceptedOrRejected       string `json:"accepted_or_rejected,omitempty"`
	DepositPOPURL            string `json:"deposit_pop_url,omitempty"`
	OnsiteWorkCompletionDate string `json:"onsite_work_completion_date,omitempty"`
	InvoiceURL               string `json:"invoice_url,omitempty"`
	Comments                 string `json:"comments,omitempty"`
	FinalPaymentPOPURL       string `json:"final_payment_pop_url,omitempty"`

	Photos []PhotoResponse `json:"completion_photos,omitempty"`

	Status           string   `json:"status"`
	StatusLabel      string   `json:"status_label"`
	JobComplete      bool     `json:"job_complete"`
	AvailableActions []string `json:"available_actions"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func mediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return media.URLFor(rel)
}

func jobResponse(user domain.User, job domain.Job, photos []domain.JobCompletionPhoto) JobResponse {
	actions := authz.AvailableActions(user, job)
	actionNames := make([]string, 0, len(actions))
	for _, a := range actions {
		actionNames = append(actionNames, string(a))
	}
	resp := JobResponse{
		ID:                  job.ID,
		Number:              job.Number,
		AgentID:             job.AgentID,
		Date:                job.Date,
		AddressDetails:      job.AddressDetails,
		GPSLink:             job.GPSLink,
		QuoteRequestDetails: job.QuoteRequestDetails,

		DateOfInspection:         job.DateOfInspection,
		QuoteURL:                 mediaURL(job.QuotePath),
		AcceptedOrRejected:       string(job.AcceptedOrRejected),
		DepositPOPURL:            mediaURL(job.DepositPOPPath),
		OnsiteWorkCompletionDate: job.OnsiteWorkCompletionDate,
		InvoiceURL:               mediaURL(job.InvoicePath),
		Comments:                 job.Comments,
		FinalPaymentPOPURL:       mediaURL(job.FinalPaymentPOPPath),

		Status:           string(job.Status),
		StatusLabel:      job.Status.Label(),
		JobComplete:      job.Complete(),
		AvailableActions: actionNames,

		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	for _, p := range photos {
		resp.Photos = append(resp.Photos, PhotoResponse{ID: p.ID, PhotoURL: mediaURL(p.PhotoPath)})
	}
	return resp
}

func mapJobs(user domain.User, jobs []domain.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobResponse(user, j, nil))
	}
	return out
}

type EventResponse struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts"`
	Type    string `json:"type"`
	ActorID string `json:"actor_id"`
	Payload string `json:"payload"`
}

func mapEvents(evts []events.Event) []EventResponse {
	out := make([]EventResponse, 0, len(evts))
	for _, e := range evts {
		out = append(out, EventResponse{
			ID: e.ID, TS: e.TS, Type: e.Type, ActorID: e.ActorID, Payload: e.Payload,
		})
	}
	return out
}
