package comments

import "errors"

var ErrNotFound = errors.New("comment not found")
