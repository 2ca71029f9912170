package entity

import "io"

// UploadedImage is a single file received from the user.
type UploadedImage struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// EncodedPayload is the base64 form of an image, without any data-URL prefix.
type EncodedPayload struct {
	Data      string `json:"-"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
}

func (p EncodedPayload) IsEmpty() bool {
	return p.Data == ""
}
