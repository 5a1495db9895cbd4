package domain

// EncodedImage is a normalized, base64-encoded image payload ready for a
// marketplace chat message. It exists only for one upload attempt.
type EncodedImage struct {
	Name string `json:"name"`
	Data string `json:"data"`
	Type string `json:"type"`
}
