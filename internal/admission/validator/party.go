package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"suroloyo/pkg/config"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	// Indonesian NIK: exactly 16 digits.
	nikRegex = regexp.MustCompile(`^\d{16}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// PartyValidator checks an admission request's roster before any capacity is
// touched: a request that fails here never reaches the quota ledger.
type PartyValidator struct {
	validate *validator.Validate
	cfg      *config.Config
	logger   *logger.Logger
}

func NewPartyValidator(cfg *config.Config, log *logger.Logger) *PartyValidator {
	v := validator.New()

	if err := v.RegisterValidation("nik", validateNIK); err != nil {
		log.Fatal("Failed to register 'nik' validator",
			"error", err,
		)
	}

	log.Info("Party validator initialized successfully")

	return &PartyValidator{
		validate: v,
		cfg:      cfg,
		logger:   log,
	}
}

func validateNIK(fl validator.FieldLevel) bool {
	return nikRegex.MatchString(fl.Field().String())
}

func (v *PartyValidator) Validate(req *model.AdmissionRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if len(req.Members) > v.cfg.MaxPartySize {
		return ValidationErrors{
			ValidationError{
				Field:   "Members",
				Message: fmt.Sprintf("party size (%d) exceeds the maximum of %d", len(req.Members), v.cfg.MaxPartySize),
			},
		}
	}

	leaders := 0
	for i := range req.Members {
		if req.Members[i].IsLeader {
			leaders++
		}
	}
	if leaders != 1 {
		return ValidationErrors{
			ValidationError{
				Field:   "Members",
				Message: fmt.Sprintf("roster must have exactly one leader, got %d", leaders),
			},
		}
	}

	if v.cfg.RequireCompleteLeader {
		if errs := v.validateLeader(req); len(errs) > 0 {
			return errs
		}
	}

	if errs := v.validateUniqueNIKs(req); len(errs) > 0 {
		return errs
	}

	return nil
}

// validateLeader enforces the complete-leader rule: the group leader must be
// reachable, so phone and address stop being optional for them.
func (v *PartyValidator) validateLeader(req *model.AdmissionRequest) ValidationErrors {
	var errs ValidationErrors
	for i := range req.Members {
		if !req.Members[i].IsLeader {
			continue
		}
		if req.Members[i].Phone == "" {
			errs = append(errs, ValidationError{
				Field:   "Phone",
				Message: "group leader must have a phone number",
			})
		}
		if req.Members[i].Address == "" {
			errs = append(errs, ValidationError{
				Field:   "Address",
				Message: "group leader must have an address",
			})
		}
	}
	return errs
}

func (v *PartyValidator) validateUniqueNIKs(req *model.AdmissionRequest) ValidationErrors {
	seen := make(map[string]bool, len(req.Members))
	for i := range req.Members {
		nik := req.Members[i].NationalID
		if seen[nik] {
			return ValidationErrors{
				ValidationError{
					Field:   "NationalID",
					Message: fmt.Sprintf("duplicate national ID in roster: %s", nik),
				},
			}
		}
		seen[nik] = true
	}
	return nil
}

func (v *PartyValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "nik":
			message = fmt.Sprintf("%s must be a 16-digit national identity number", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +6281234567890)", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
