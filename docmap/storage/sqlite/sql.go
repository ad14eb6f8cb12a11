package sqlite

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

const listTablesSQL = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name LIKE ?1 ESCAPE '\'
ORDER BY name`

const tableExistsSQL = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?1`

const tableColumnsSQL = `SELECT name, type, "notnull", pk FROM pragma_table_info(?1) ORDER BY cid`

// Automatic indexes have no SQL and are skipped; the primary key shows up in
// the column flags instead.
const tableIndexesSQL = `
SELECT name, sql FROM sqlite_master
WHERE type = 'index' AND tbl_name = ?1 AND sql IS NOT NULL
ORDER BY name`
