package registrations

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxFieldBytes caps a single text field.
const MaxFieldBytes = 64 << 10

// scalarFields is the set of text keys read from the form.
var scalarFields = map[string]struct{}{
	"studentName":     {},
	"ic":              {},
	"dateOfBirth":     {},
	"guardianName":    {},
	"guardianPhone":   {},
	"guardianEmail":   {},
	"guardianIc":      {},
	"centreId":        {},
	"centreName":      {},
	"educationLevel":  {},
	"subsidyCategory": {},
	"notes":           {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Form is a parsed registration submission.
type Form struct {
	Values map[string]string
	Files  FilesByType
	// OversizedFile is the name of the first file above the ceiling, if any.
	OversizedFile string
	hasOversized  bool
	// LongField is the first text field above MaxFieldBytes, if any.
	LongField string
	// Truncated is set when the request ceiling cut the body short.
	Truncated    bool
	requestLimit int64
}

// Cleanup releases every spooled upload.
func (f *Form) Cleanup() {
	if f == nil {
		return
	}
	for _, files := range f.Files {
		for _, file := range files {
			file.Cleanup()
		}
	}
}

// ParseForm streams a multipart body so parts are seen in form order.
// Files under unknown keys are drained and dropped. Zero-byte files are
// dropped. Only the first oversized file is remembered and its bytes are
// discarded. A body cut short by http.MaxBytesReader yields a Truncated form
// rather than an error.
func ParseForm(r *http.Request, rules Rules) (*Form, error) {
	rules = rules.withDefaults()

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	form := &Form{
		Values: make(map[string]string),
		Files:  NewFilesByType(),
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err == nil {
			err = form.consume(part, rules)
			part.Close()
		}
		if err != nil {
			if form.truncate(err) {
				return form, nil
			}
			form.Cleanup()
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
	}
	return form, nil
}

func (f *Form) truncate(err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	f.Truncated = true
	f.requestLimit = tooLarge.Limit
	return true
}

func (f *Form) consume(part *multipart.Part, rules Rules) error {
	name := part.FormName()
	if part.FileName() == "" {
		if _, known := scalarFields[name]; !known {
			_, err := io.Copy(io.Discard, part)
			return err
		}
		return f.consumeScalar(name, part)
	}

	docType, ok := ParseDocumentType(name)
	if !ok {
		_, err := io.Copy(io.Discard, part)
		return err
	}

	upload, oversized, err := spool(part, rules.MaxFileBytes)
	if oversized && !f.hasOversized {
		f.hasOversized = true
		f.OversizedFile = part.FileName()
	}
	if err != nil || oversized {
		return err
	}
	if upload.Size == 0 {
		return nil
	}
	upload.FieldName = name
	upload.FileName = part.FileName()
	upload.ContentType = part.Header.Get("Content-Type")
	f.Files[docType] = append(f.Files[docType], upload)
	return nil
}

func (f *Form) consumeScalar(name string, part io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(part, MaxFieldBytes+1))
	if err != nil {
		return err
	}
	if len(raw) > MaxFieldBytes {
		if f.LongField == "" {
			f.LongField = name
		}
		_, err := io.Copy(io.Discard, part)
		return err
	}
	if _, seen := f.Values[name]; !seen {
		f.Values[name] = string(raw)
	}
	return nil
}

// Input builds the trimmed scalar payload. Missing keys become "".
func (f *Form) Input() SubmissionInput {
	get := func(key string) string {
		return strings.TrimSpace(f.Values[key])
	}
	return SubmissionInput{
		StudentName:     get("studentName"),
		IC:              get("ic"),
		DateOfBirth:     get("dateOfBirth"),
		GuardianName:    get("guardianName"),
		GuardianPhone:   get("guardianPhone"),
		GuardianEmail:   get("guardianEmail"),
		GuardianIC:      get("guardianIc"),
		CentreID:        get("centreId"),
		CentreName:      get("centreName"),
		EducationLevel:  get("educationLevel"),
		SubsidyCategory: get("subsidyCategory"),
		Notes:           get("notes"),
	}
}

// Validate checks a parsed form in order: the first over-long field, the first
// missing field, the first oversized file, then every missing required
// document. A truncated form reports its oversized file if one was seen, and
// the request ceiling otherwise, since later fields never arrived.
func Validate(form *Form, rules Rules) (SubmissionInput, error) {
	rules = rules.withDefaults()
	input := form.Input()

	if form.Truncated {
		if form.hasOversized {
			return input, &OversizedFileError{FileName: form.OversizedFile, Limit: rules.MaxFileBytes}
		}
		return input, &RequestTooLargeError{Limit: form.requestLimit}
	}
	if form.LongField != "" {
		return input, &FieldTooLongError{Field: form.LongField, Limit: MaxFieldBytes}
	}
	if err := ValidateInput(input); err != nil {
		return input, err
	}
	if form.hasOversized {
		return input, &OversizedFileError{FileName: form.OversizedFile, Limit: rules.MaxFileBytes}
	}
	if missing := rules.MissingDocs(form.Files); len(missing) > 0 {
		return input, &MissingDocumentsError{Types: missing}
	}
	return input, nil
}

// ValidateInput reports the first empty required field in declaration order.
func ValidateInput(input SubmissionInput) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &MissingFieldError{Field: verrs[0].Field()}
	}
	return err
}

// ClientIP returns the first X-Forwarded-For hop, or nil when the header is
// absent or its first hop is blank.
func ClientIP(r *http.Request) *string {
	values := r.Header.Values("X-Forwarded-For")
	if len(values) == 0 {
		return nil
	}
	first, _, _ := strings.Cut(values[0], ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return nil
	}
	return &first
}
