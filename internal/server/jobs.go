package server

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"maintline/internal/engine"
)

type jobPath struct {
	ID string `path:"id"`
}

type CreateJobResponse struct {
	JobResponse
	// EmailWarning is set when the job was created but the notification
	// email could not be sent.
	EmailWarning string `json:"email_warning,omitempty"`
}

func registerJobs(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-job",
		Method:        http.MethodPost,
		Path:          "/jobs",
		Summary:       "Create maintenance request",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateJobRequest `json:"body"`
	}) (*struct {
		Body CreateJobResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		job, warning, err := e.CreateJob(ctx, user, engine.CreateJobInput{
			Date:                input.Body.Date,
			AddressDetails:      input.Body.AddressDetails,
			GPSLink:             input.Body.GPSLink,
			QuoteRequestDetails: input.Body.QuoteRequestDetails,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreateJobResponse `json:"body"`
		}{Body: CreateJobResponse{
			JobResponse:  jobResponse(user, job, nil),
			EmailWarning: warning,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List maintenance jobs",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		AgentID string `query:"agent_id"`
	}) (*struct {
		Body []JobResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		jobs, err := e.ListJobs(ctx, user, input.AgentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []JobResponse `json:"body"`
		}{Body: mapJobs(user, jobs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get maintenance job",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body JobResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		job, err := e.ViewJob(ctx, user, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		photos, err := e.Repo.ListPhotos(ctx, job.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body JobResponse `json:"body"`
		}{Body: jobResponse(user, job, photos)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-job-events",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}/events",
		Summary:     "Job audit trail",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		evts, err := e.ListEvents(ctx, user, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(evts)}, nil
	})

	registerTransitions(api, e)
	registerUploads(api, e)
}

var transitionErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusPreconditionFailed,
}

type jobBodyOut struct {
	Body JobResponse `json:"body"`
}

func registerTransitions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "complete-inspection",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/inspection",
		Summary:     "Record site inspection date",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			DateOfInspection string `json:"date_of_inspection" example:"2001-02-05"`
		} `json:"body"`
	}) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		job, err := e.CompleteInspection(ctx, user, input.ID, input.Body.DateOfInspection)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-quote",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/accept-quote",
		Summary:     "Accept the uploaded quote",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *jobPath) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		job, err := e.AcceptQuote(ctx, user, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-quote",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/reject-quote",
		Summary:     "Reject the uploaded quote",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *jobPath) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		job, err := e.RejectQuote(ctx, user, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-onsite-work",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/onsite-complete",
		Summary:     "Record onsite work completion date",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			OnsiteWorkCompletionDate string `json:"onsite_work_completion_date" example:"2001-03-01"`
		} `json:"body"`
	}) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		job, err := e.CompleteOnsiteWork(ctx, user, input.ID, input.Body.OnsiteWorkCompletionDate)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})
}

type pdfUploadForm struct {
	File huma.FormFile `form:"file" contentType:"application/pdf" required:"true"`
}

func readFormFile(f huma.FormFile) (string, []byte, huma.StatusError) {
	if !f.IsSet {
		return "", nil, newAPIError(http.StatusBadRequest, "bad_request", "file is required", nil)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, newAPIError(http.StatusBadRequest, "bad_request", "could not read uploaded file", nil)
	}
	return f.Filename, data, nil
}

func registerUploads(api huma.API, e *engine.Engine) {
	type uploadInput struct {
		ID      string                                 `path:"id"`
		RawBody huma.MultipartFormFiles[pdfUploadForm] `contentType:"multipart/form-data"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "upload-quote",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/quote",
		Summary:     "Upload quote PDF",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *uploadInput) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		name, data, ferr := readFormFile(input.RawBody.Data().File)
		if ferr != nil {
			return nil, ferr
		}
		job, err := e.UploadQuote(ctx, user, input.ID, name, data)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upload-deposit-pop",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/deposit-pop",
		Summary:     "Upload deposit proof of payment",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *uploadInput) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		name, data, ferr := readFormFile(input.RawBody.Data().File)
		if ferr != nil {
			return nil, ferr
		}
		job, err := e.UploadDepositPOP(ctx, user, input.ID, name, data)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upload-final-payment-pop",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/final-payment-pop",
		Summary:     "Upload final payment proof of payment",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *uploadInput) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		name, data, ferr := readFormFile(input.RawBody.Data().File)
		if ferr != nil {
			return nil, ferr
		}
		job, err := e.UploadFinalPaymentPOP(ctx, user, input.ID, name, data)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})

	// Documentation mixes a PDF, free-text comments and any number of
	// photos, so it takes the raw multipart form.
	huma.Register(api, huma.Operation{
		OperationID: "submit-documentation",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/documentation",
		Summary:     "Submit invoice, comments and completion photos",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *struct {
		ID      string         `path:"id"`
		RawBody multipart.Form `contentType:"multipart/form-data"`
	}) (*jobBodyOut, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		invoices := input.RawBody.File["invoice"]
		if len(invoices) != 1 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "exactly one invoice file is required", nil)
		}
		invoiceName, invoiceData, ferr := readMultipartFile(invoices[0])
		if ferr != nil {
			return nil, ferr
		}
		comments := ""
		if vals := input.RawBody.Value["comments"]; len(vals) > 0 {
			comments = vals[0]
		}
		var photos []engine.PhotoUpload
		for _, fh := range input.RawBody.File["photos"] {
			name, data, ferr := readMultipartFile(fh)
			if ferr != nil {
				return nil, ferr
			}
			photos = append(photos, engine.PhotoUpload{Filename: name, Data: data})
		}
		job, err := e.SubmitDocumentation(ctx, user, input.ID, invoiceName, invoiceData, comments, photos)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBodyOut{Body: jobResponse(user, job, nil)}, nil
	})
}

func readMultipartFile(fh *multipart.FileHeader) (string, []byte, huma.StatusError) {
	f, err := fh.Open()
	if err != nil {
		return "", nil, newAPIError(http.StatusBadRequest, "bad_request", "could not read uploaded file", nil)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, newAPIError(http.StatusBadRequest, "bad_request", "could not read uploaded file", nil)
	}
	return fh.Filename, data, nil
}
