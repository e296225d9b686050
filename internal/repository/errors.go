package repository

import "github.com/hlgate/hlgate/internal/pkg/apperrors"

var ErrAccountNotFound = apperrors.NewNotFound("account not found")
