package registrations

import "time"

// Confirmation is the body of a successful submission.
type Confirmation struct {
	ApplicationRef string `json:"applicationRef"`
	ApplicationID  string `json:"applicationId"`
	Status         string `json:"status"`
	DocumentCount  int    `json:"documentCount"`
}

// StatusResponse is the body of a reference lookup.
type StatusResponse struct {
	ApplicationRef string    `json:"applicationRef"`
	Status         string    `json:"status"`
	SubmittedAt    time.Time `json:"submittedAt"`
	DocumentCount  int       `json:"documentCount"`
}

func toConfirmation(app Application, docs []Document) Confirmation {
	return Confirmation{
		ApplicationRef: app.Ref,
		ApplicationID:  app.ID,
		Status:         string(app.Status),
		DocumentCount:  len(docs),
	}
}

func toStatusResponse(st ApplicationStatus) StatusResponse {
	return StatusResponse{
		ApplicationRef: st.Ref,
		Status:         string(st.Status),
		SubmittedAt:    st.SubmittedAt,
		DocumentCount:  st.DocumentCount,
	}
}
