package hub

import (
	"fmt"
	"net/http"

	"github.com/okian/evalharvest/internal/domain/errkind"
)

// statusError maps an HTTP status to the error taxonomy.
func statusError(status int, target string) error {
	msg := fmt.Sprintf("%s: HTTP %d", target, status)
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return errkind.Wrap(errkind.ErrNotFound, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errkind.Wrap(errkind.ErrPermission, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusTooEarly ||
		status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return errkind.Wrap(errkind.ErrTransient, msg, nil)
	default:
		return errkind.Wrap(errkind.ErrMalformed, msg, nil)
	}
}
