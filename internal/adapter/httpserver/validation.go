package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/usecase"
)

// maxCriteriaBody bounds the criteria request body.
const maxCriteriaBody = 1 << 20

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New(validator.WithRequiredStructEnabled()) })
	return vld
}

// pathID parses a positive int64 route parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidArgument, name)
	}
	return id, nil
}

// criteriaRequest is the body of POST /v1/candidates/{id}/criteria. Values
// may be JSON booleans, strings such as "cumple" or "si", numbers or null.
type criteriaRequest struct {
	Responses map[string]json.RawMessage `json:"responses" validate:"required,max=500,dive,keys,numeric,endkeys"`
}

// decodeCriteria validates the body and returns the responses keyed by
// criterion id. The returned details list every rejected field.
func decodeCriteria(r *http.Request) (map[int64]bool, []ValidationError, error) {
	var req criteriaRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCriteriaBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		details := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, ValidationError{
				Field:   strings.ToLower(fe.Namespace()),
				Code:    strings.ToUpper(fe.Tag()),
				Message: fe.Error(),
			})
		}
		return nil, details, fmt.Errorf("%w: invalid criteria request", domain.ErrInvalidArgument)
	}

	out := make(map[int64]bool, len(req.Responses))
	var details []ValidationError
	keys := make([]string, 0, len(req.Responses))
	for k := range req.Responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || id <= 0 {
			details = append(details, ValidationError{Field: "responses." + k, Code: "INVALID_ID", Message: "criterion id must be a positive integer"})
			continue
		}
		v, err := criterionValue(req.Responses[k])
		if err != nil {
			details = append(details, ValidationError{Field: "responses." + k, Code: "INVALID_VALUE", Message: err.Error()})
			continue
		}
		out[id] = v
	}
	if len(details) > 0 {
		return nil, details, fmt.Errorf("%w: invalid criteria request", domain.ErrInvalidArgument)
	}
	return out, nil, nil
}

func criterionValue(raw json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		return usecase.ParseCriterionValue(t), nil
	case float64:
		return usecase.ParseCriterionValue(strconv.FormatFloat(t, 'f', -1, 64)), nil
	}
	return false, fmt.Errorf("unsupported value type %T", v)
}
