// Package domain contains core concepts of the chat desk.
// This file defines Messages and the closed sets they are built from.
// Messages are immutable once appended to the log.
package domain

import (
	"chat-desk/errors"
	"time"
)

type SenderRole string

const (
	RoleUser      SenderRole = "user"
	RoleAssistant SenderRole = "assistant"
	RoleOperator  SenderRole = "operator"
)

// ParseSenderRole rejects anything outside {user, assistant, operator}.
func ParseSenderRole(s string) (SenderRole, error) {
	role := SenderRole(s)
	if !role.Valid() {
		return "", errors.ErrUnknownSenderRole
	}
	return role, nil
}

func (r SenderRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleOperator:
		return true
	default:
		return false
	}
}

type ContentKind string

const (
	KindText       ContentKind = "text"
	KindAttachment ContentKind = "attachment"
)

func ParseContentKind(s string) (ContentKind, error) {
	kind := ContentKind(s)
	if !kind.Valid() {
		return "", errors.ErrUnknownContentKind
	}
	return kind, nil
}

func (k ContentKind) Valid() bool {
	return k == KindText || k == KindAttachment
}

// Message represents one immutable entry of the append-only log.
// OwnerID is the human participant of the conversation, whoever authored the message.
type Message struct {
	ID            uint64
	OwnerID       uint64
	SenderRole    SenderRole
	ContentKind   ContentKind
	Content       string
	AttachmentRef string
	CreatedAt     time.Time
}

// Validate checks the closed sets and the text/attachment pairing before anything is stored.
func (m Message) Validate() error {
	if !m.SenderRole.Valid() {
		return errors.ErrUnknownSenderRole
	}
	if !m.ContentKind.Valid() {
		return errors.ErrUnknownContentKind
	}
	if m.Content == "" && m.AttachmentRef == "" {
		return errors.ErrEmptyMessage
	}
	return nil
}
