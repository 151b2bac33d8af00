package repositories

import (
	"chat-desk/domain"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// diskIdentity and diskMessage are the CBOR records stored as Badger values.
// Timestamps are kept as Unix nanoseconds to survive the round trip exactly.

type diskIdentity struct {
	ID            uint64 `cbor:"1,keyasint"`
	AnonymousKey  string `cbor:"2,keyasint"`
	ClientAddress string `cbor:"3,keyasint,omitempty"`
	CreatedAt     int64  `cbor:"4,keyasint"`
}

type diskMessage struct {
	ID            uint64 `cbor:"1,keyasint"`
	OwnerID       uint64 `cbor:"2,keyasint"`
	SenderRole    string `cbor:"3,keyasint"`
	ContentKind   string `cbor:"4,keyasint"`
	Content       string `cbor:"5,keyasint,omitempty"`
	AttachmentRef string `cbor:"6,keyasint,omitempty"`
	CreatedAt     int64  `cbor:"7,keyasint"`
}

func fromIdentity(identity domain.Identity) diskIdentity {
	return diskIdentity{
		ID:            identity.ID,
		AnonymousKey:  identity.AnonymousKey,
		ClientAddress: identity.ClientAddress,
		CreatedAt:     identity.CreatedAt.UnixNano(),
	}
}

func toIdentity(d diskIdentity) domain.Identity {
	return domain.Identity{
		ID:            d.ID,
		AnonymousKey:  d.AnonymousKey,
		ClientAddress: d.ClientAddress,
		CreatedAt:     time.Unix(0, d.CreatedAt).UTC(),
	}
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:            message.ID,
		OwnerID:       message.OwnerID,
		SenderRole:    string(message.SenderRole),
		ContentKind:   string(message.ContentKind),
		Content:       message.Content,
		AttachmentRef: message.AttachmentRef,
		CreatedAt:     message.CreatedAt.UnixNano(),
	}
}

func toMessage(d diskMessage) domain.Message {
	return domain.Message{
		ID:            d.ID,
		OwnerID:       d.OwnerID,
		SenderRole:    domain.SenderRole(d.SenderRole),
		ContentKind:   domain.ContentKind(d.ContentKind),
		Content:       d.Content,
		AttachmentRef: d.AttachmentRef,
		CreatedAt:     time.Unix(0, d.CreatedAt).UTC(),
	}
}

// DecodeMessage is used by read-only tooling that scans the keyspace directly.
func DecodeMessage(value []byte) (domain.Message, error) {
	var d diskMessage
	if err := cbor.Unmarshal(value, &d); err != nil {
		return domain.Message{}, err
	}
	return toMessage(d), nil
}

func DecodeIdentity(value []byte) (domain.Identity, error) {
	var d diskIdentity
	if err := cbor.Unmarshal(value, &d); err != nil {
		return domain.Identity{}, err
	}
	return toIdentity(d), nil
}
