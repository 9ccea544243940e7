package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/docstore"
	"github.com/user/symbolic-cat-go/feed"
)

// Service reads and appends to the chat log. The log is one JSON document, an
// array of "username: text" lines, oldest first.
type Service struct {
	store  docstore.Store
	writer *docstore.Writer
	feed   *feed.Broadcaster
	logger *slog.Logger
}

// NewService creates the comments service. A nil broadcaster disables live updates.
func NewService(writers *docstore.Writers, broadcaster *feed.Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  writers.Store(),
		writer: writers.For(docstore.ResourceChats),
		feed:   broadcaster,
		logger: logger.With("component", "comments.service"),
	}
}

func decodeChats(body []byte) ([]string, error) {
	chats := []string{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return chats, nil
	}
	if err := json.Unmarshal(trimmed, &chats); err != nil {
		return nil, fmt.Errorf("decode chats document: %w", err)
	}
	return chats, nil
}

// List returns the whole chat log. A missing document is an empty log.
func (s *Service) List(ctx context.Context) ([]string, error) {
	doc, err := s.store.Get(ctx, docstore.ResourceChats)
	if errors.Is(err, docstore.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, docstore.AsAppError(err, "could not load comments")
	}
	chats, err := decodeChats(doc.Body)
	if err != nil {
		return nil, apperror.NewStoreUnavailableError("comments document is corrupt", err)
	}
	return chats, nil
}

// Add appends "username: text" to the log and returns the updated log.
// The text is trimmed; blank text is EMPTY_COMMENT.
func (s *Service) Add(ctx context.Context, username, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.NewValidationError(apperror.CodeEmptyComment, "comment text is empty", nil)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, apperror.NewValidationError("", fmt.Sprintf("comment must be at most %d characters", MaxCommentLength), nil)
	}
	line := username + ": " + text

	var chats []string
	err := s.writer.Update(ctx, func(current []byte, exists bool) ([]byte, error) {
		list := []string{}
		if exists {
			var err error
			if list, err = decodeChats(current); err != nil {
				return nil, apperror.NewStoreUnavailableError("comments document is corrupt", err)
			}
		}
		list = append(list, line)
		chats = list
		return json.Marshal(list)
	})
	if err != nil {
		return nil, docstore.AsAppError(err, "could not save comment")
	}

	if s.feed != nil {
		s.feed.Publish(feed.Event{ID: fmt.Sprint(len(chats)), Name: EventName, Data: line})
	}
	s.logger.DebugContext(ctx, "comment added", "username", username, "total", len(chats))
	return chats, nil
}
