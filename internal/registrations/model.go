package registrations

import "time"

// DocumentType classifies an uploaded attachment.
type DocumentType string

const (
	DocBirthCert    DocumentType = "birth_cert"
	DocStudentIC    DocumentType = "student_ic"
	DocGuardianIC   DocumentType = "guardian_ic"
	DocAddressProof DocumentType = "address_proof"
	DocOther        DocumentType = "other"
)

// AllDocumentTypes lists every document type in form order.
var AllDocumentTypes = []DocumentType{
	DocBirthCert,
	DocStudentIC,
	DocGuardianIC,
	DocAddressProof,
	DocOther,
}

// ParseDocumentType matches a form key against the known document types.
func ParseDocumentType(key string) (DocumentType, bool) {
	switch DocumentType(key) {
	case DocBirthCert, DocStudentIC, DocGuardianIC, DocAddressProof, DocOther:
		return DocumentType(key), true
	default:
		return "", false
	}
}

// EducationLevel tags the kind of institution a student applies to.
type EducationLevel string

const (
	LevelPreschool  EducationLevel = "preschool"
	LevelPrimary    EducationLevel = "primary"
	LevelSecondary  EducationLevel = "secondary"
	LevelUniversity EducationLevel = "university"
	LevelAuthority  EducationLevel = "maiwp-wide"
)

// Status is the review state of an application.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// SubmissionInput is the trimmed scalar payload of a registration form.
// Field order is the order in which missing fields are reported.
type SubmissionInput struct {
	StudentName     string `form:"studentName" json:"studentName" validate:"required"`
	IC              string `form:"ic" json:"ic" validate:"required"`
	DateOfBirth     string `form:"dateOfBirth" json:"dateOfBirth" validate:"required"`
	GuardianName    string `form:"guardianName" json:"guardianName" validate:"required"`
	GuardianPhone   string `form:"guardianPhone" json:"guardianPhone" validate:"required"`
	GuardianEmail   string `form:"guardianEmail" json:"guardianEmail" validate:"required"`
	GuardianIC      string `form:"guardianIc" json:"guardianIc" validate:"required"`
	CentreID        string `form:"centreId" json:"centreId" validate:"required"`
	CentreName      string `form:"centreName" json:"centreName" validate:"required"`
	EducationLevel  string `form:"educationLevel" json:"educationLevel" validate:"required"`
	SubsidyCategory string `form:"subsidyCategory" json:"subsidyCategory" validate:"required"`
	Notes           string `form:"notes" json:"notes,omitempty"`
}

// FilesByType groups accepted uploads by document type.
type FilesByType map[DocumentType][]*UploadedFile

// NewFilesByType returns a map with an empty bucket for every document type.
func NewFilesByType() FilesByType {
	files := make(FilesByType, len(AllDocumentTypes))
	for _, t := range AllDocumentTypes {
		files[t] = []*UploadedFile{}
	}
	return files
}

// Count returns the number of files across all buckets.
func (f FilesByType) Count() int {
	n := 0
	for _, files := range f {
		n += len(files)
	}
	return n
}

// Application is a persisted registration application.
type Application struct {
	ID          string
	Ref         string
	Input       SubmissionInput
	Status      Status
	IPAddress   *string
	SubmittedAt time.Time
}

// Document is a stored attachment belonging to an application.
type Document struct {
	ID              string
	ApplicationID   string
	DocType         DocumentType
	FileName        string
	MimeType        string
	SizeBytes       int64
	Checksum        string
	StorageProvider string
	StorageKey      string
	CreatedAt       time.Time
}

// ApplicationStatus is the applicant-facing view used by reference lookups.
type ApplicationStatus struct {
	Ref           string
	Status        Status
	SubmittedAt   time.Time
	DocumentCount int
}
