package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/ledger"
	"task-tracker-api/internal/models"

	"github.com/go-playground/validator/v10"
)

// TaskSpec is the caller-supplied description of a new task.
type TaskSpec struct {
	Kind               models.TaskKind           `json:"kind" validate:"oneof=Normal Recursive"`
	RecurrenceInterval models.RecurrenceInterval `json:"recurrenceInterval"`
	Description        string                    `json:"description" validate:"required"`
	Owner              string                    `json:"owner" validate:"required"`
	StartDate          string                    `json:"startDate" validate:"required,isodate"`
	DueDate            string                    `json:"dueDate" validate:"required,isodate"`
	Priority           models.TaskPriority       `json:"priority" validate:"oneof=UrgentImportant NotUrgentImportant UrgentNotImportant NotUrgentNotImportant"`
	EstimatedHours     float64                   `json:"estimatedHours" validate:"gt=0"`
}

// WorkEntry is one logWork call: hours against a date plus optional log lines.
type WorkEntry struct {
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Remark     string  `json:"remark"`
	Difficulty string  `json:"difficulty"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return ledger.ValidDate(fl.Field().String())
	})
	return v
}

// normalize fills defaults and trims text fields.
func (s TaskSpec) normalize() TaskSpec {
	s.Description = strings.TrimSpace(s.Description)
	s.Owner = strings.TrimSpace(s.Owner)
	s.StartDate = strings.TrimSpace(s.StartDate)
	s.DueDate = strings.TrimSpace(s.DueDate)
	if s.Kind == "" {
		s.Kind = models.KindNormal
	}
	if s.Kind == models.KindNormal {
		s.RecurrenceInterval = ""
	}
	return s
}

// validateSpec reports every violated rule at once.
func validateSpec(v *validator.Validate, actor string, s TaskSpec) error {
	verr := &apperr.ValidationError{}
	if strings.TrimSpace(actor) == "" {
		verr.Add("actor", "is required")
	}

	if err := v.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), "%s", describe(fe))
		}
	}

	if s.Kind == models.KindRecursive {
		switch s.RecurrenceInterval {
		case models.RecurDaily, models.RecurWeekly, models.RecurMonthly, models.RecurAnnually:
		case "":
			verr.Add("recurrenceInterval", "is required for Recursive tasks")
		default:
			verr.Add("recurrenceInterval", "must be one of Daily, Weekly, Monthly, Annually")
		}
	}

	if ledger.ValidDate(s.StartDate) && ledger.ValidDate(s.DueDate) {
		start, _ := ledger.ParseDate(s.StartDate)
		due, _ := ledger.ParseDate(s.DueDate)
		if due.Before(start) {
			verr.Add("dueDate", "must not be before startDate")
		}
	}
	return verr.OrNil()
}

func validateWork(actor string, e WorkEntry) error {
	verr := &apperr.ValidationError{}
	if strings.TrimSpace(actor) == "" {
		verr.Add("actor", "is required")
	}
	if e.Date != "" && !ledger.ValidDate(e.Date) {
		verr.Add("date", "must be a YYYY-MM-DD date")
	}
	if e.Hours < 0 {
		verr.Add("hours", "must not be negative")
	} else if !ledger.Precise(e.Hours) {
		verr.Add("hours", "must have at most 2 decimal places")
	}
	if e.Hours == 0 && strings.TrimSpace(e.Remark) == "" && strings.TrimSpace(e.Difficulty) == "" {
		verr.Add("hours", "nothing to log: provide hours, a remark or a difficulty")
	}
	return verr.OrNil()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "isodate":
		return "must be a YYYY-MM-DD date"
	}
	return "is invalid"
}
