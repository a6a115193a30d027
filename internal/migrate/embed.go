package migrate

import "embed"

// Files carries the SQL migrations and seeds shipped with the binary.
//
//go:embed sql seeds
var Files embed.FS
