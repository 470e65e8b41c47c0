package domain

import "github.com/google/uuid"

type UserID = int64
type TokenID = uuid.UUID
type OTPID = uuid.UUID
