package snapshot

import "github.com/okian/evalharvest/internal/domain/errkind"

// ErrEmptySelection is returned when no candidate label parses.
var ErrEmptySelection = errkind.ErrEmptySelection
