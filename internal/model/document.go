package model

// Document is a single uploaded file. It only lives for the duration of the
// upload request that carried it.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ChatTurn is one message of the conversation history sent with a query.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
