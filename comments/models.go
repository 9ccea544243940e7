package comments

// MaxCommentLength is the longest comment accepted, in characters.
const MaxCommentLength = 500

// AddCommentRequest is the payload of add-comment.
type AddCommentRequest struct {
	Text string `json:"text" example:"meow"`
}

// AddCommentResponse returns the chat log after the append.
type AddCommentResponse struct {
	Success bool     `json:"success" example:"true"`
	Chats   []string `json:"chats"`
}

// EventName is the SSE event type used for new comments.
const EventName = "comment"
