package orm

import "errors"

// ErrArgument reports a malformed builder call: a placeholder count that
// does not match its arguments, an empty value list, an empty record.
var ErrArgument = errors.New("orm: invalid argument")

// ErrNoRowsAffected is returned by repository writes that touched nothing.
var ErrNoRowsAffected = errors.New("orm: no rows affected")
