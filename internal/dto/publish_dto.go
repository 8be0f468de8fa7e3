package dto

// PublishDocumentMessage is the payload queued for asynchronous wiki
// publication
type PublishDocumentMessage struct {
	SessionId string `json:"session_id"`
	DocType   string `json:"doc_type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Path      string `json:"path"`
}
