package engine

import "github.com/sells-group/sheetsync/internal/model"

// ValidationResult reports whether a mapped row can become a lead and,
// when it cannot, which required fields were missing. Email is checked
// before name, so Missing[0] is the reason recorded on the failed lead.
type ValidationResult struct {
	OK      bool
	Missing []model.FailureReason
}

// Validate checks the required lead attributes. A lead needs an email
// and a name; everything else is optional.
func Validate(l model.CanonicalLead) ValidationResult {
	var missing []model.FailureReason
	if l.Email == "" {
		missing = append(missing, model.ReasonMissingEmail)
	}
	if l.Name == "" {
		missing = append(missing, model.ReasonMissingName)
	}
	return ValidationResult{OK: len(missing) == 0, Missing: missing}
}
