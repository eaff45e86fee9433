package submission

import (
	"veritas/internal/verification/models"
)

// Payload is the JSON document posted to the vendor for one attempt.
type Payload struct {
	ReceiptID      string `json:"EdX-ID"`
	ExpectedName   string `json:"ExpectedName"`
	PhotoID        string `json:"PhotoID"`
	PhotoIDKey     string `json:"PhotoIDKey"`
	SendResponseTo string `json:"SendResponseTo"`
	UserPhoto      string `json:"UserPhoto"`
	UserPhotoKey   string `json:"UserPhotoKey"`
}

// Fields returns the payload as the generic map used for signing.
func (p Payload) Fields() map[string]any {
	return map[string]any{
		"EdX-ID":         p.ReceiptID,
		"ExpectedName":   p.ExpectedName,
		"PhotoID":        p.PhotoID,
		"PhotoIDKey":     p.PhotoIDKey,
		"SendResponseTo": p.SendResponseTo,
		"UserPhoto":      p.UserPhoto,
		"UserPhotoKey":   p.UserPhotoKey,
	}
}

// NewPayload assembles the vendor payload for a. userPhotoKey is the face
// key wrapped for this submission.
func NewPayload(a *models.Attempt, callbackURL, userPhotoKey string) Payload {
	return Payload{
		ReceiptID:      a.ReceiptID,
		ExpectedName:   a.Name,
		PhotoID:        a.PhotoIDImageURL,
		PhotoIDKey:     a.PhotoIDKey,
		SendResponseTo: callbackURL,
		UserPhoto:      a.FaceImageURL,
		UserPhotoKey:   userPhotoKey,
	}
}
