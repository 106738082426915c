package registrations

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type formPart struct {
	field    string
	value    string
	fileName string
	data     []byte
}

func textPart(field, value string) formPart {
	return formPart{field: field, value: value}
}

func filePart(field, fileName string, data []byte) formPart {
	return formPart{field: field, fileName: fileName, data: data}
}

var canonicalFields = []string{
	"studentName",
	"ic",
	"dateOfBirth",
	"guardianName",
	"guardianPhone",
	"guardianEmail",
	"guardianIc",
	"centreId",
	"centreName",
	"educationLevel",
	"subsidyCategory",
}

func validFieldValues() map[string]string {
	return map[string]string{
		"studentName":     "Nur Aisyah binti Ahmad",
		"ic":              "180304-14-5678",
		"dateOfBirth":     "2018-03-04",
		"guardianName":    "Ahmad bin Ismail",
		"guardianPhone":   "+60123456789",
		"guardianEmail":   "ahmad@example.com",
		"guardianIc":      "850101-14-1234",
		"centreId":        "TASKI-KL-01",
		"centreName":      "Taski Kampung Baru",
		"educationLevel":  "preschool",
		"subsidyCategory": "B40",
	}
}

func fieldParts(skip ...string) []formPart {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	values := validFieldValues()
	parts := make([]formPart, 0, len(canonicalFields))
	for _, f := range canonicalFields {
		if skipped[f] {
			continue
		}
		parts = append(parts, textPart(f, values[f]))
	}
	return parts
}

func pdf(body string) []byte {
	return []byte("%PDF-1.4\n" + body)
}

func requiredDocParts(skip ...DocumentType) []formPart {
	skipped := make(map[DocumentType]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var parts []formPart
	for _, t := range RequiredDocs {
		if skipped[t] {
			continue
		}
		parts = append(parts, filePart(string(t), string(t)+".pdf", pdf(string(t))))
	}
	return parts
}

func validParts() []formPart {
	return append(fieldParts(), requiredDocParts()...)
}

func newMultipartRequest(t *testing.T, parts []formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.fileName != "" {
			fw, err := w.CreateFormFile(p.field, p.fileName)
			require.NoError(t, err)
			_, err = fw.Write(p.data)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, w.WriteField(p.field, p.value))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/register/applications", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func parseAndValidate(t *testing.T, parts []formPart) (*Form, SubmissionInput, error) {
	t.Helper()
	form, err := ParseForm(newMultipartRequest(t, parts), DefaultRules())
	require.NoError(t, err)
	t.Cleanup(form.Cleanup)
	input, err := Validate(form, DefaultRules())
	return form, input, err
}
