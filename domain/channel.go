package domain

import "chat-desk/errors"

// Channel is the logical destination of an exchange.
type Channel string

const (
	ChannelAssistant Channel = "assistant"
	ChannelHuman     Channel = "human"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelAssistant, ChannelHuman:
		return c, nil
	default:
		return "", errors.ErrUnknownChannel
	}
}

// AttachmentTag names the folder an uploaded file lands in, depending on who sent it.
type AttachmentTag string

const (
	TagUsers    AttachmentTag = "users"
	TagOperator AttachmentTag = "operator"
)

// Attachment is what the attachment collaborator hands back after storing bytes.
type Attachment struct {
	Ref      string
	MimeType string
	Size     int
}
