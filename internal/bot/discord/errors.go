package discord

import "github.com/brrbot/brrbot/internal/common/apperrors"

var (
	ErrDiscord = apperrors.New("discord error")

	ErrInvalidPublicKey  = ErrDiscord.New("invalid public key")
	ErrAlreadyResponded  = ErrDiscord.New("interaction already has an initial response")
	ErrResponseAbandoned = ErrDiscord.New("interaction response window closed")
	ErrEditReply         = ErrDiscord.New("failed to edit interaction reply")
	ErrGuildLookup       = ErrDiscord.New("failed to resolve guild membership")
	ErrRegistration      = ErrDiscord.New("failed to register commands")
)
