package report

import "errors"

// ErrNoDatabase is returned by Collect when no store was given.
var ErrNoDatabase = errors.New("report needs a database")
