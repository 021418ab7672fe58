package gnss

import "errors"

// ErrSerial is the single opaque sentinel wrapped by every serial
// syscall failure in Enable/Disable, matching the source's single
// error code for the whole component.
var ErrSerial = errors.New("gnss: serial line operation failed")
