package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/google/uuid"
	"golang.org/x/net/idna"

	"github.com/cmmshub/verification-backend/db"
	"github.com/cmmshub/verification-backend/models"
	"github.com/cmmshub/verification-backend/util"
	"github.com/cmmshub/verification-backend/verifier"
)

////////////////////////////////
//  *****   REST API   *****  //
////////////////////////////////

// API is the HTTP API that this service provides.
// All requests respond with a response JSON, with fields:
// {
//     status_code // HTTP status code of request
//     message // Any error message accompanying the status_code. If 200, empty.
//     response // Response data (as JSON) from this request.
// }
// Any POST request accepts either URL query parameters or data value
// parameters, and prefers the latter if both are present.
type API struct {
	Database db.Database
	Verifier *verifier.Verifier
}

type response struct {
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Response   interface{} `json:"response"`
}

type apiHandler func(r *http.Request) response

func (api *API) wrapper(handler apiHandler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		response := handler(r)
		if response.StatusCode == http.StatusInternalServerError {
			packet := raven.NewPacket(response.Message, raven.NewHttp(r))
			raven.Capture(packet, nil)
		}
		writeJSON(w, response)
	}
}

func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// RegisterHandlers binds API functions to the given http server,
// and returns the resulting handler. The endpoints that trigger outbound
// probes are rate limited so the service can't be used as a probe relay.
func (api *API) RegisterHandlers(mux *http.ServeMux) http.Handler {
	mux.HandleFunc("/api/company", api.wrapper(api.company))
	mux.Handle("/api/verification/initiate",
		throttleHandler(time.Hour, 20, http.HandlerFunc(api.wrapper(api.initiate))))
	mux.Handle("/api/verification/check",
		throttleHandler(time.Minute, 10, http.HandlerFunc(api.wrapper(api.check))))
	mux.HandleFunc("/api/verification/status", api.wrapper(api.status))
	mux.HandleFunc("/api/verification/record", api.wrapper(api.record))
	mux.HandleFunc("/api/verification/retry", api.wrapper(api.retry))
	mux.HandleFunc("/api/verification/instructions", api.wrapper(api.instructions))
	mux.HandleFunc("/api/ping", pingHandler)
	return middleware(mux)
}

// recordResponse pairs a verification record with the rendered proof steps.
type recordResponse struct {
	Record       models.VerificationRecord `json:"record"`
	Instructions verifier.Instructions     `json:"instructions"`
}

// Company is the handler for /api/company.
//   POST /api/company
//        name: Tenant company name.
//        domain: Claimed corporate domain for the company.
//        Creates the company and sets a models.Company JSON as the response.
//   GET /api/company?id=<id>
//        Sets the models.Company object as the response.
func (api *API) company(r *http.Request) response {
	if r.Method == http.MethodPost {
		name, err := getParam("name", r)
		if err != nil {
			return badRequest(err.Error())
		}
		domain, err := getASCIIDomain(r)
		if err != nil {
			return badRequest(err.Error())
		}
		if !util.ValidDomainName(domain) {
			return badRequest("%s is not a valid domain name", domain)
		}
		company := models.Company{
			ID:            uuid.NewString(),
			Name:          name,
			ClaimedDomain: domain,
			CreatedAt:     time.Now(),
		}
		if err := api.Database.PutCompany(company); err != nil {
			return serverError(err.Error())
		}
		return response{StatusCode: http.StatusOK, Response: company}
	} else if r.Method == http.MethodGet {
		id, err := getParam("id", r)
		if err != nil {
			return badRequest(err.Error())
		}
		company, err := api.Database.GetCompany(id)
		if errors.Is(err, db.ErrNotFound) {
			return response{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("no company with id %s", id)}
		}
		if err != nil {
			return serverError(err.Error())
		}
		return response{StatusCode: http.StatusOK, Response: company}
	}
	return response{StatusCode: http.StatusMethodNotAllowed,
		Message: "/api/company only accepts POST and GET requests"}
}

// Initiate is the handler for /api/verification/initiate.
//   POST /api/verification/initiate
//        company_id: Company whose claimed domain should be verified.
//        Sets the verification record plus proof instructions as the response.
func (api *API) initiate(r *http.Request) response {
	if r.Method != http.MethodPost {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Message: "/api/verification/initiate only accepts POST requests"}
	}
	companyID, err := getParam("company_id", r)
	if err != nil {
		return badRequest(err.Error())
	}
	record, err := api.Verifier.Initiate(companyID)
	if err != nil {
		return verifierError(err)
	}
	instructions, err := api.Verifier.Instructions(record.ID)
	if err != nil {
		return verifierError(err)
	}
	return response{StatusCode: http.StatusOK,
		Response: recordResponse{Record: record, Instructions: instructions}}
}

// Check is the handler for /api/verification/check.
//   POST /api/verification/check
//        id: Verification record to check now.
//        Sets the updated record as the response. A failed check is a normal
//        outcome and still returns 200; only precondition violations reject.
func (api *API) check(r *http.Request) response {
	if r.Method != http.MethodPost {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Message: "/api/verification/check only accepts POST requests"}
	}
	id, err := getParam("id", r)
	if err != nil {
		return badRequest(err.Error())
	}
	record, err := api.Verifier.CheckNow(r.Context(), id)
	if err != nil {
		return verifierError(err)
	}
	return response{StatusCode: http.StatusOK, Response: record}
}

// Status is the handler for /api/verification/status.
//   GET /api/verification/status?company_id=<id>
//        Sets the company's latest verification record as the response.
func (api *API) status(r *http.Request) response {
	if r.Method != http.MethodGet {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Message: "/api/verification/status only accepts GET requests"}
	}
	companyID, err := getParam("company_id", r)
	if err != nil {
		return badRequest(err.Error())
	}
	record, err := api.Verifier.Status(companyID)
	if err != nil {
		return verifierError(err)
	}
	return response{StatusCode: http.StatusOK, Response: record}
}

// Record is the handler for /api/verification/record.
//   GET /api/verification/record?id=<id>
//        Sets the record plus proof instructions as the response.
func (api *API) record(r *http.Request) response {
	if r.Method != http.MethodGet {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Message: "/api/verification/record only accepts GET requests"}
	}
	id, err := getParam("id", r)
	if err != nil {
		return badRequest(err.Error())
	}
	record, err := api.Verifier.Record(id)
	if err != nil {
		return verifierError(err)
	}
	instructions, err := api.Verifier.Instructions(record.ID)
	if err != nil {
		return verifierError(err)
	}
	return response{StatusCode: http.StatusOK,
		Response: recordResponse{Record: record, Instructions: instructions}}
}

// Retry is the handler for /api/verification/retry.
//   POST /api/verification/retry
//        id: Verification record to reset to pending with a fresh attempt
//        budget. The token and proof resource name are unchanged.
func (api *API) retry(r *http.Request) response {
	if r.Method != http.MethodPost {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Message: "/api/verification/retry only accepts POST requests"}
	}
	id, err := getParam("id", r)
	if err != nil {
		return badRequest(err.Error())
	}
	record, err := api.Verifier.RetryReset(id)
	if err != nil {
		return verifierError(err)
	}
	return response{StatusCode: http.StatusOK, Response: record}
}

// Instructions is the handler for /api/verification/instructions.
//   GET /api/verification/instructions?id=<id>
//        Sets the rendered proof steps as the response.
func (api *API) instructions(r *http.Request) response {
	if r.Method != http.MethodGet {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Message: "/api/verification/instructions only accepts GET requests"}
	}
	id, err := getParam("id", r)
	if err != nil {
		return badRequest(err.Error())
	}
	instructions, err := api.Verifier.Instructions(id)
	if err != nil {
		return verifierError(err)
	}
	return response{StatusCode: http.StatusOK, Response: instructions}
}

// verifierError maps the coordinator's error taxonomy onto HTTP statuses.
func verifierError(err error) response {
	switch {
	case errors.Is(err, verifier.ErrNotFound):
		return response{StatusCode: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, verifier.ErrInvalidState):
		return badRequest(err.Error())
	default:
		return serverError(err.Error())
	}
}

// Retrieve "domain" parameter from request as ASCII.
// If fails, returns an error.
func getASCIIDomain(r *http.Request) (string, error) {
	domain, err := getParam("domain", r)
	if err != nil {
		return domain, err
	}
	ascii, err := idna.ToASCII(domain)
	if err != nil {
		return "", fmt.Errorf("could not convert domain %s to ASCII (%s)", domain, err)
	}
	return ascii, nil
}

// Retrieves and lowercases `param` as a query parameter from `http.Request` r.
// If fails, then returns an error.
func getParam(param string, r *http.Request) (string, error) {
	unicode := r.FormValue(param)
	if unicode == "" {
		return "", fmt.Errorf("query parameter %s not specified", param)
	}
	return strings.ToLower(unicode), nil
}

// Writes the response as a JSON object to http.ResponseWriter `w`. If an
// error occurs, writes `http.StatusInternalServerError` to `w`.
func writeJSON(w http.ResponseWriter, apiResponse response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiResponse.StatusCode)
	b, err := json.MarshalIndent(apiResponse, "", "  ")
	if err != nil {
		msg := fmt.Sprintf("Internal error: could not format JSON. (%s)\n", err)
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "%s\n", b)
}

func badRequest(format string, a ...interface{}) response {
	return response{
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf(format, a...),
	}
}

func serverError(format string, a ...interface{}) response {
	return response{
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf(format, a...),
	}
}
