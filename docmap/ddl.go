package docmap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash"

	"github.com/docmap/docmap/docmap/storage"
)

const (
	ddlHeader         = "-- docmap DDL"
	systemObjectsFile = "system_objects.sql"
)

type ddlBlock struct {
	table storage.TableName
	body  string
}

func (b ddlBlock) render() string {
	return fmt.Sprintf("-- table %s fingerprint=%016x\n%s", b.table.QualifiedName(), xxhash.Sum64String(b.body), b.body)
}

// tableDDL renders the complete DDL of a document table: table, indexes and
// generated functions.
func (s *DocumentSchema) tableDDL(m *DocumentMapping) ddlBlock {
	def := tableSchemaFor(m)
	stmts := []string{s.adapter.CreateTable(def)}
	for _, idx := range def.Indexes {
		stmts = append(stmts, s.adapter.CreateIndex(def.Table, idx))
	}
	for _, fn := range s.adapter.DocumentFunctions(def, m.upsert) {
		stmts = append(stmts, fn.Drop, fn.Create)
	}
	return ddlBlock{table: def.Table, body: strings.Join(stmts, "\n")}
}

func (s *DocumentSchema) systemDDL() ddlBlock {
	def := storage.HiloTable(s.opts.Schema, s.adapter)
	stmts := []string{s.adapter.CreateTable(def)}
	for _, fn := range s.adapter.HiloFunctions(s.opts.Schema) {
		stmts = append(stmts, fn.Create)
	}
	return ddlBlock{table: def.Table, body: strings.Join(stmts, "\n")}
}

// ddlBlocks returns the system objects, when any mapping needs them, followed
// by the document tables sorted by qualified name.
func (s *DocumentSchema) ddlBlocks() (system *ddlBlock, tables []ddlBlock, err error) {
	mappings, err := s.mappingsByTable()
	if err != nil {
		return nil, nil, err
	}
	for _, m := range mappings {
		if m.hilo != nil && system == nil {
			b := s.systemDDL()
			system = &b
		}
		tables = append(tables, s.tableDDL(m))
	}
	return system, tables, nil
}

// ToDDL renders the DDL of every registered document. The output depends only
// on the registrations and options, so it can be diffed between builds.
func (s *DocumentSchema) ToDDL() (string, error) {
	system, tables, err := s.ddlBlocks()
	if err != nil {
		return "", err
	}
	parts := []string{ddlHeader}
	if system != nil {
		parts = append(parts, system.render())
	}
	for _, t := range tables {
		parts = append(parts, t.render())
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// WriteDDL writes ToDDL to path.
func (s *DocumentSchema) WriteDDL(path string) error {
	ddl, err := s.ToDDL()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(ddl), 0o644); err != nil {
		return Wrap(ErrIO, "write "+path, err)
	}
	return nil
}

// WriteDDLByType writes one <schema>.<table>.sql file per document table into
// dir, plus system_objects.sql when hilo objects are needed.
func (s *DocumentSchema) WriteDDLByType(dir string) error {
	system, tables, err := s.ddlBlocks()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Wrap(ErrIO, "create "+dir, err)
	}
	write := func(name string, b ddlBlock) error {
		path := filepath.Join(dir, name)
		content := ddlHeader + "\n\n" + b.render() + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return Wrap(ErrIO, "write "+path, err)
		}
		s.log.Debug("ddl written", "path", path)
		return nil
	}
	if system != nil {
		if err := write(systemObjectsFile, *system); err != nil {
			return err
		}
	}
	for _, t := range tables {
		if err := write(t.table.Schema+"."+t.table.Name+".sql", t); err != nil {
			return err
		}
	}
	return nil
}
