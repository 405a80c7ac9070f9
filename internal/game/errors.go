package game

import (
	"errors"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

var (
	// ErrResultUnavailable 回合尚未结束
	ErrResultUnavailable = &domain.RuleError{Code: domain.CodeInvalidState, Message: "result is only available after the round has ended"}
	ErrRoomExists        = errors.New("room id already registered")
)
