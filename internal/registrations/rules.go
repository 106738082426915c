package registrations

import "fmt"

// MaxFileBytes is the default per-file ceiling.
const MaxFileBytes int64 = 10 * 1024 * 1024

// RequiredDocs lists the document types every submission must include.
var RequiredDocs = []DocumentType{
	DocBirthCert,
	DocStudentIC,
	DocGuardianIC,
	DocAddressProof,
}

// Rules holds the acceptance rules shared by intake validation and the store.
type Rules struct {
	MaxFileBytes int64
	RequiredDocs []DocumentType
}

// DefaultRules returns the 10 MiB ceiling and the four required documents.
func DefaultRules() Rules {
	required := make([]DocumentType, len(RequiredDocs))
	copy(required, RequiredDocs)
	return Rules{MaxFileBytes: MaxFileBytes, RequiredDocs: required}
}

func (r Rules) withDefaults() Rules {
	if r.MaxFileBytes <= 0 {
		r.MaxFileBytes = MaxFileBytes
	}
	if r.RequiredDocs == nil {
		r.RequiredDocs = DefaultRules().RequiredDocs
	}
	return r
}

// MissingDocs returns the required types with no files, in RequiredDocs order.
func (r Rules) MissingDocs(files FilesByType) []DocumentType {
	var missing []DocumentType
	for _, t := range r.withDefaults().RequiredDocs {
		if len(files[t]) == 0 {
			missing = append(missing, t)
		}
	}
	return missing
}

// sizeLabel renders a ceiling the way clients see it, e.g. "10MB".
func sizeLabel(limit int64) string {
	if limit > 0 && limit%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", limit>>20)
	}
	if limit > 0 && limit%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", limit>>10)
	}
	return fmt.Sprintf("%d bytes", limit)
}
