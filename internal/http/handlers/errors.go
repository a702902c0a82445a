package handlers

import (
	"fmt"

	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
)

var errUnauthenticated = fmt.Errorf("%w: missing session", apierr.ErrUnauthenticated)

func errInvalidID(field string) error {
	return fmt.Errorf("%w: %s must be a uuid", apierr.ErrInvalidArgument, field)
}
