//go:build cgo

package sqlite

// cgo builds also register mattn/go-sqlite3 as "sqlite3" for NewWithDriver.
import _ "github.com/mattn/go-sqlite3"
