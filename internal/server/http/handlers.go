package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helixir/convention-service/internal/convention"
	"github.com/helixir/convention-service/internal/domain"
)

// maxRequestBodySize limits request bodies to 1 MB.
const maxRequestBodySize = 1 << 20

// submitConventionRequest is the JSON request body for submitting a convention.
type submitConventionRequest struct {
	AgencyID             string    `json:"agency_id" validate:"required,uuid"`
	BeneficiaryFirstName string    `json:"beneficiary_first_name" validate:"required"`
	BeneficiaryLastName  string    `json:"beneficiary_last_name" validate:"required"`
	BeneficiaryEmail     string    `json:"beneficiary_email" validate:"required,email"`
	Siret                string    `json:"siret" validate:"required,len=14,numeric"`
	BusinessName         string    `json:"business_name" validate:"required"`
	EstablishmentEmail   string    `json:"establishment_email" validate:"required,email"`
	ImmersionActivity    string    `json:"immersion_activity" validate:"required"`
	ImmersionObjective   string    `json:"immersion_objective,omitempty"`
	DateStart            time.Time `json:"date_start" validate:"required"`
	DateEnd              time.Time `json:"date_end" validate:"required"`
}

// changeStatusRequest is the JSON request body for requesting a status change.
type changeStatusRequest struct {
	Status        string  `json:"status" validate:"required"`
	Justification *string `json:"justification,omitempty"`
}

// submitConvention handles POST /conventions.
func (s *Server) submitConvention(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitConventionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	agencyID, err := uuid.Parse(req.AgencyID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "agency_id must be a valid UUID")
		return
	}

	id, err := s.conventions.Submit(ctx, convention.SubmitInput{
		AgencyID:             agencyID,
		BeneficiaryFirstName: req.BeneficiaryFirstName,
		BeneficiaryLastName:  req.BeneficiaryLastName,
		BeneficiaryEmail:     req.BeneficiaryEmail,
		Siret:                req.Siret,
		BusinessName:         req.BusinessName,
		EstablishmentEmail:   req.EstablishmentEmail,
		ImmersionActivity:    req.ImmersionActivity,
		ImmersionObjective:   req.ImmersionObjective,
		DateStart:            req.DateStart,
		DateEnd:              req.DateEnd,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitConventionResponse{
		ConventionID: id.String(),
		Status:       string(domain.StatusDraft),
		Message:      "convention submitted",
	})
}

// getConvention handles GET /conventions/{conventionID}.
func (s *Server) getConvention(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "conventionID"), "convention_id")
	if !ok {
		return
	}

	conv, err := s.conventions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainConventionToResponse(conv))
}

// changeConventionStatus handles POST /conventions/{conventionID}/status.
func (s *Server) changeConventionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "conventionID"), "convention_id")
	if !ok {
		return
	}

	var req changeStatusRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	target := domain.ConventionStatus(req.Status)
	role := actorRoleFromRequest(r)

	resultID, err := s.conventions.ChangeStatus(r.Context(), id, target, role, req.Justification)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, changeStatusResponse{
		ConventionID: resultID.String(),
		Status:       string(target),
	})
}

// signConvention handles POST /conventions/{conventionID}/signatures.
func (s *Server) signConvention(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "conventionID"), "convention_id")
	if !ok {
		return
	}

	role := actorRoleFromRequest(r)

	resultID, err := s.conventions.Sign(r.Context(), id, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conv, err := s.conventions.Get(r.Context(), resultID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, changeStatusResponse{
		ConventionID: resultID.String(),
		Status:       string(conv.Status),
	})
}

// renewMagicLink handles POST /conventions/{conventionID}/magic-link-renewals.
func (s *Server) renewMagicLink(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "conventionID"), "convention_id")
	if !ok {
		return
	}

	role := actorRoleFromRequest(r)

	if err := s.conventions.RenewMagicLink(r.Context(), id, role); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"convention_id": id.String(),
		"message":       "magic link renewal requested",
	})
}

// latestMagicLinkRenewal handles GET /conventions/{conventionID}/magic-link-renewals/latest.
func (s *Server) latestMagicLinkRenewal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "conventionID"), "convention_id")
	if !ok {
		return
	}

	payload, err := s.conventions.LatestRenewalRequest(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, magicLinkRenewalResponse{
		ConventionID: payload.ConventionID.String(),
		Email:        payload.Email,
		Role:         string(payload.Role),
	})
}

// decodeAndValidate reads the request body into dst and runs struct validation.
// It writes the error response itself and reports whether the request is usable.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, validationMessage(verrs[0]))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// validationMessage renders a single field validation failure.
func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeDomainError maps domain errors to appropriate HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrIllegalTransition):
		var te *domain.StatusTransitionError
		if errors.As(err, &te) {
			writeError(w, http.StatusConflict, te.Error())
		} else {
			writeError(w, http.StatusConflict, "illegal status transition")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrForbidden):
		var fe *domain.ForbiddenError
		if errors.As(err, &fe) {
			writeError(w, http.StatusForbidden, fe.Error())
		} else {
			writeError(w, http.StatusForbidden, "forbidden")
		}
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
