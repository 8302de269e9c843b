package maintlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"
)

// Client is a minimal Maintline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Job represents the API job model.
type Job struct {
	ID                       string   `json:"id"`
	Number                   int      `json:"number"`
	AgentID                  string   `json:"agent_id"`
	Date                     string   `json:"date"`
	AddressDetails           string   `json:"address_details"`
	GPSLink                  string   `json:"gps_link"`
	QuoteRequestDetails      string   `json:"quote_request_details"`
	DateOfInspection         string   `json:"date_of_inspection,omitempty"`
	QuoteURL                 string   `json:"quote_url,omitempty"`
	AcceptedOrRejected       string   `json:"accepted_or_rejected,omitempty"`
	DepositPOPURL            string   `json:"deposit_pop_url,omitempty"`
	OnsiteWorkCompletionDate string   `json:"onsite_work_completion_date,omitempty"`
	InvoiceURL               string   `json:"invoice_url,omitempty"`
	Comments                 string   `json:"comments,omitempty"`
	FinalPaymentPOPURL       string   `json:"final_payment_pop_url,omitempty"`
	Status                   string   `json:"status"`
	StatusLabel              string   `json:"status_label"`
	JobComplete              bool     `json:"job_complete"`
	AvailableActions         []string `json:"available_actions"`
	EmailWarning             string   `json:"email_warning,omitempty"`
}

// User represents an account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// Event represents an audit log entry.
type Event struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts"`
	Type    string `json:"type"`
	ActorID string `json:"actor_id"`
	Payload string `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates with username and password and stores the bearer
// token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "v0/auth/login",
		map[string]any{"username": username, "password": password}, &resp)
	if err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

// ListAgents returns agent accounts. Refused for agent callers.
func (c *Client) ListAgents(ctx context.Context) ([]User, error) {
	var resp []User
	err := c.do(ctx, http.MethodGet, "v0/agents", nil, &resp)
	return resp, err
}

// CreateJob files a new maintenance request.
func (c *Client) CreateJob(ctx context.Context, date, addressDetails, gpsLink, quoteRequestDetails string) (Job, error) {
	body := map[string]any{
		"date":                  date,
		"address_details":       addressDetails,
		"gps_link":              gpsLink,
		"quote_request_details": quoteRequestDetails,
	}
	var resp Job
	err := c.do(ctx, http.MethodPost, "v0/jobs", body, &resp)
	return resp, err
}

// ListJobs returns jobs visible to the caller, optionally scoped to one
// agent.
func (c *Client) ListJobs(ctx context.Context, agentID string) ([]Job, error) {
	endpoint := "v0/jobs"
	if agentID != "" {
		endpoint += "?agent_id=" + url.QueryEscape(agentID)
	}
	var resp []Job
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodGet, c.jobPath(id, ""), nil, &resp)
	return resp, err
}

// Events returns a job's audit trail.
func (c *Client) Events(ctx context.Context, jobID string) ([]Event, error) {
	var resp []Event
	err := c.do(ctx, http.MethodGet, c.jobPath(jobID, "events"), nil, &resp)
	return resp, err
}

// CompleteInspection records the inspection date.
func (c *Client) CompleteInspection(ctx context.Context, jobID, dateOfInspection string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, c.jobPath(jobID, "inspection"),
		map[string]any{"date_of_inspection": dateOfInspection}, &resp)
	return resp, err
}

// UploadQuote uploads the quote PDF.
func (c *Client) UploadQuote(ctx context.Context, jobID, filename string, data []byte) (Job, error) {
	return c.uploadFile(ctx, c.jobPath(jobID, "quote"), filename, data)
}

// AcceptQuote accepts the uploaded quote.
func (c *Client) AcceptQuote(ctx context.Context, jobID string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, c.jobPath(jobID, "accept-quote"), nil, &resp)
	return resp, err
}

// RejectQuote rejects the uploaded quote.
func (c *Client) RejectQuote(ctx context.Context, jobID string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, c.jobPath(jobID, "reject-quote"), nil, &resp)
	return resp, err
}

// UploadDepositPOP uploads the deposit proof of payment.
func (c *Client) UploadDepositPOP(ctx context.Context, jobID, filename string, data []byte) (Job, error) {
	return c.uploadFile(ctx, c.jobPath(jobID, "deposit-pop"), filename, data)
}

// CompleteOnsiteWork records the onsite work completion date.
func (c *Client) CompleteOnsiteWork(ctx context.Context, jobID, completionDate string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, c.jobPath(jobID, "onsite-complete"),
		map[string]any{"onsite_work_completion_date": completionDate}, &resp)
	return resp, err
}

// Photo is one completion photo for SubmitDocumentation.
type Photo struct {
	Filename string
	Data     []byte
}

// SubmitDocumentation uploads the invoice, comments and photos.
func (c *Client) SubmitDocumentation(ctx context.Context, jobID, invoiceName string, invoice []byte, comments string, photos []Photo) (Job, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := createFormFile(mw, "invoice", invoiceName)
	if err != nil {
		return Job{}, err
	}
	if _, err := fw.Write(invoice); err != nil {
		return Job{}, err
	}
	if comments != "" {
		if err := mw.WriteField("comments", comments); err != nil {
			return Job{}, err
		}
	}
	for _, p := range photos {
		pw, err := createFormFile(mw, "photos", p.Filename)
		if err != nil {
			return Job{}, err
		}
		if _, err := pw.Write(p.Data); err != nil {
			return Job{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return Job{}, err
	}
	var resp Job
	err = c.doRaw(ctx, http.MethodPost, c.jobPath(jobID, "documentation"), &buf, mw.FormDataContentType(), &resp)
	return resp, err
}

// UploadFinalPaymentPOP uploads the final proof of payment.
func (c *Client) UploadFinalPaymentPOP(ctx context.Context, jobID, filename string, data []byte) (Job, error) {
	return c.uploadFile(ctx, c.jobPath(jobID, "final-payment-pop"), filename, data)
}

// DownloadQuote fetches the stored quote PDF bytes.
func (c *Client) DownloadQuote(ctx context.Context, jobID string) ([]byte, error) {
	return c.fetch(ctx, c.jobPath(jobID, "quote/download"))
}

// FetchMedia downloads a private media URL as returned in job responses
// (for example "/private-media/quotes/quote.pdf").
func (c *Client) FetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	return c.fetch(ctx, strings.TrimLeft(mediaURL, "/"))
}

// createFormFile is CreateFormFile with a content type derived from the
// filename instead of application/octet-stream, which the server's upload
// validation would refuse for PDFs.
func createFormFile(mw *multipart.Writer, field, filename string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	ct := mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return mw.CreatePart(h)
}

func (c *Client) uploadFile(ctx context.Context, endpoint, filename string, data []byte) (Job, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := createFormFile(mw, "file", filename)
	if err != nil {
		return Job{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return Job{}, err
	}
	if err := mw.Close(); err != nil {
		return Job{}, err
	}
	var resp Job
	err = c.doRaw(ctx, http.MethodPost, endpoint, &buf, mw.FormDataContentType(), &resp)
	return resp, err
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/"+strings.TrimLeft(endpoint, "/"), nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var buf bytes.Buffer
	contentType := ""
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, endpoint, &buf, contentType, out)
}

func (c *Client) doRaw(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+"/"+strings.TrimLeft(endpoint, "/"), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.setAuth(req)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
}

func (c *Client) jobPath(id, sub string) string {
	p := fmt.Sprintf("v0/jobs/%s", url.PathEscape(id))
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
