package domain

// Role is the closed set of user roles. Every user has exactly one.
type Role string

const (
	RoleAgent Role = "agent"
	RoleManie Role = "manie"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleManie, RoleAdmin:
		return true
	}
	return false
}

// Status is a Job lifecycle state.
type Status string

const (
	StatusPendingInspection         Status = "pending_inspection"
	StatusInspectionCompleted       Status = "inspection_completed"
	StatusQuoteUploaded             Status = "quote_uploaded"
	StatusQuoteRejectedByAgent      Status = "quote_rejected_by_agent"
	StatusQuoteAcceptedByAgent      Status = "quote_accepted_by_agent"
	StatusDepositPOPUploaded        Status = "deposit_pop_uploaded"
	StatusManieCompletedOnsiteWork  Status = "manie_completed_onsite_work"
	StatusManieSubmittedDocumention Status = "manie_submitted_documentation"
	StatusFinalPaymentPOPUploaded   Status = "final_payment_pop_uploaded"
)

// AllStatuses lists every lifecycle state in progression order.
var AllStatuses = []Status{
	StatusPendingInspection,
	StatusInspectionCompleted,
	StatusQuoteUploaded,
	StatusQuoteRejectedByAgent,
	StatusQuoteAcceptedByAgent,
	StatusDepositPOPUploaded,
	StatusManieCompletedOnsiteWork,
	StatusManieSubmittedDocumention,
	StatusFinalPaymentPOPUploaded,
}

// statusEdges is the full transition graph. Legal transitions live here and
// nowhere else; handlers consult this table instead of inlining conditionals.
var statusEdges = map[Status][]Status{
	StatusPendingInspection:   {StatusInspectionCompleted},
	StatusInspectionCompleted: {StatusQuoteUploaded},
	// Agents may change their mind after rejecting, and rejecting twice is
	// allowed (the self-edge), so both accept and reject hang off both
	// quote states.
	StatusQuoteUploaded:             {StatusQuoteAcceptedByAgent, StatusQuoteRejectedByAgent},
	StatusQuoteRejectedByAgent:      {StatusQuoteUploaded, StatusQuoteAcceptedByAgent, StatusQuoteRejectedByAgent},
	StatusQuoteAcceptedByAgent:      {StatusDepositPOPUploaded},
	StatusDepositPOPUploaded:        {StatusManieCompletedOnsiteWork},
	StatusManieCompletedOnsiteWork:  {StatusManieSubmittedDocumention},
	StatusManieSubmittedDocumention: {StatusFinalPaymentPOPUploaded},
	StatusFinalPaymentPOPUploaded:   {},
}

// CanAdvanceTo reports whether the edge s -> next exists in the graph.
func (s Status) CanAdvanceTo(next Status) bool {
	for _, n := range statusEdges[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state has no outgoing edges.
func (s Status) Terminal() bool {
	return len(statusEdges[s]) == 0
}

// Valid reports whether s is one of the nine lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusEdges[s]
	return ok
}

// Label returns the human-readable state name used in listings.
func (s Status) Label() string {
	switch s {
	case StatusPendingInspection:
		return "Pending Inspection"
	case StatusInspectionCompleted:
		return "Inspection Completed"
	case StatusQuoteUploaded:
		return "Quote Uploaded"
	case StatusQuoteRejectedByAgent:
		return "Quote Rejected By Agent"
	case StatusQuoteAcceptedByAgent:
		return "Quote Accepted By Agent"
	case StatusDepositPOPUploaded:
		return "Deposit POP Uploaded"
	case StatusManieCompletedOnsiteWork:
		return "Manie Completed Onsite Work"
	case StatusManieSubmittedDocumention:
		return "Manie Submitted Documentation"
	case StatusFinalPaymentPOPUploaded:
		return "Final Payment POP Uploaded"
	}
	return string(s)
}

// AcceptedOrRejected records the agent's most recent quote decision.
type AcceptedOrRejected string

const (
	DecisionNone     AcceptedOrRejected = ""
	DecisionAccepted AcceptedOrRejected = "accepted"
	DecisionRejected AcceptedOrRejected = "rejected"
)

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	PasswordHash  string `json:"-"`
	Role          Role   `json:"role"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

// Job is the central entity: one maintenance request, owned by the agent
// who created it and worked through its lifecycle by Manie.
type Job struct {
	ID      string `json:"id"`
	Number  int    `json:"number"`
	AgentID string `json:"agent_id"`

	// Request fields, set once at creation.
	Date                string `json:"date"`
	AddressDetails      string `json:"address_details"`
	GPSLink             string `json:"gps_link"`
	QuoteRequestDetails string `json:"quote_request_details"`

	// Workflow fields, each populated by exactly one transition.
	DateOfInspection         string             `json:"date_of_inspection,omitempty"`
	QuotePath                string             `json:"quote_path,omitempty"`
	AcceptedOrRejected       AcceptedOrRejected `json:"accepted_or_rejected,omitempty"`
	DepositPOPPath           string             `json:"deposit_pop_path,omitempty"`
	OnsiteWorkCompletionDate string             `json:"onsite_work_completion_date,omitempty"`
	InvoicePath              string             `json:"invoice_path,omitempty"`
	Comments                 string             `json:"comments,omitempty"`
	FinalPaymentPOPPath      string             `json:"final_payment_pop_path,omitempty"`

	Status    Status `json:"status"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// Complete reports whether the job reached its terminal state
// ("Job Complete: Yes" in listings).
func (j Job) Complete() bool {
	return j.Status == StatusFinalPaymentPOPUploaded
}

type JobCompletionPhoto struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	PhotoPath string `json:"photo_path"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// JobEvent is one append-only audit row, written in the same transaction
// as the transition it records.
type JobEvent struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts" format:"date-time"`
	Type    string `json:"type"`
	JobID   string `json:"job_id"`
	ActorID string `json:"actor_id"`
	Payload string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
