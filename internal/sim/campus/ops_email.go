package campus

import (
	"encoding/json"
	"fmt"
	"strings"

	"campuslife.ai/internal/protocol"
)

func (w *World) opSendEmail(args json.RawMessage) protocol.Result {
	var a struct {
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
		Body      string `json:"body"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if strings.TrimSpace(a.Recipient) == "" {
		return protocol.Failure(protocol.ErrValidation, "recipient is required.")
	}
	if strings.TrimSpace(a.Subject) == "" {
		return protocol.Failure(protocol.ErrValidation, "subject is required.")
	}

	rec := EmailRecord{
		Seq:       len(w.emails) + 1,
		Recipient: a.Recipient,
		Subject:   a.Subject,
		Body:      a.Body,
		SentAt:    w.clock.String(),
	}
	w.emails = append(w.emails, rec)
	return protocol.Success(
		fmt.Sprintf("Email sent to %s.", a.Recipient),
		map[string]any{"seq": rec.Seq},
	)
}

// Emails returns the outbox in send order.
func (w *World) Emails() []EmailRecord {
	return append([]EmailRecord{}, w.emails...)
}
