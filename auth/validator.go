package auth

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateExchange checks an anonymous exchange before anything touches the log.
func ValidateExchange(cmd domain.ExchangeCommand) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if _, err := domain.ParseChannel(string(cmd.Channel)); err != nil {
		return err
	}
	return validateBody(cmd.ContentKind, cmd.Content, cmd.AttachmentRef)
}

// ValidateReply checks an operator reply.
func ValidateReply(cmd domain.ReplyCommand) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return validateBody(cmd.ContentKind, cmd.Content, cmd.AttachmentRef)
}

func validateBody(kind domain.ContentKind, content, attachmentRef string) error {
	if !kind.Valid() {
		return errors.ErrUnknownContentKind
	}
	if content == "" && attachmentRef == "" {
		return errors.ErrEmptyMessage
	}
	return nil
}
