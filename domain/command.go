package domain

// ExchangeCommand is one inbound message from an anonymous participant.
type ExchangeCommand struct {
	OwnerID       uint64 `validate:"required,gt=0"`
	Channel       Channel
	ContentKind   ContentKind
	Content       string `validate:"max=16384"`
	AttachmentRef string `validate:"max=512"`
}

// ReplyCommand is a message an operator sends into someone's conversation.
type ReplyCommand struct {
	OwnerID       uint64 `validate:"required,gt=0"`
	ContentKind   ContentKind
	Content       string `validate:"max=16384"`
	AttachmentRef string `validate:"max=512"`
}

// ListMessagesCommand reads the log. A nil OwnerID means every owner (operator tier only).
type ListMessagesCommand struct {
	OwnerID *uint64
	Limit   int
}

// Outcome is what an exchange hands back to the transport.
type Outcome struct {
	MessageID uint64
	ReplyID   uint64
	Reply     string
	Replied   bool
}
