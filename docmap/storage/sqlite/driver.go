package sqlite

// The pure-Go driver is always available as "sqlite".
import _ "modernc.org/sqlite"
