// Package validation holds the pure validation rules of the host form.
// Values are compared exactly as entered; nothing is trimmed or case folded.
package validation

// Form field names.
const (
	FieldHostname    = "hostname"
	FieldMaintenance = "maintenance"
)

// IsDuplicateHostname reports whether hostname exactly matches an entry of known.
// A nil known list has not loaded yet and never conflicts.
func IsDuplicateHostname(hostname string, known []string) bool {
	if known == nil {
		return false
	}
	for _, k := range known {
		if k == hostname {
			return true
		}
	}
	return false
}

// ValidateHostname applies the required and uniqueName rules to hostname.
// An empty hostname only reports required.
func ValidateHostname(hostname string, known []string) ValidationErrors {
	var errs ValidationErrors
	if hostname == "" {
		errs.Add(FieldHostname, hostname, RuleRequired, "This field is required.")
		return errs
	}
	if IsDuplicateHostname(hostname, known) {
		errs.Add(FieldHostname, hostname, RuleUniqueName, "The chosen hostname is already in use.")
	}
	return errs
}
