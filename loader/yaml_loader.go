// Package loader reads declared tables from YAML files.
package loader

import (
	"fmt"
	"os"

	"github.com/ridoystarlord/pqorm/schema"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Schema string      `yaml:"schema"`
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name       string    `yaml:"name"`
	Schema     string    `yaml:"schema"`
	PrimaryKey string    `yaml:"primaryKey"`
	Column     yaml.Node `yaml:"column"`
	Index      []string  `yaml:"index"`
	Unique     []string  `yaml:"unique"`
}

type yamlColumn struct {
	Type      string `yaml:"type"`
	NotNull   *bool  `yaml:"notNull"`
	Default   any    `yaml:"default"`
	OldName   string `yaml:"oldName"`
	TypeLock  bool   `yaml:"typeLock"`
	NoDefault bool   `yaml:"noDefault"`
}

// LoadTablesFromYAML reads and validates every table declared in filename.
func LoadTablesFromYAML(filename string) ([]*schema.Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return ParseTablesYAML(data)
}

// ParseTablesYAML decodes a schema document:
//
//	schema: public
//	tables:
//	  - name: users
//	    column:
//	      id: varchar(20)
//	      username:
//	        type: varchar(40)
//	        oldName: uname
//	    index: [username]
//	    unique: []
//
// Column order follows the document.
func ParseTablesYAML(data []byte) ([]*schema.Table, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, &schema.ConfigurationError{Reason: fmt.Sprintf("unmarshalling YAML: %v", err)}
	}

	var tables []*schema.Table
	for _, yt := range yf.Tables {
		t := &schema.Table{
			Name:       yt.Name,
			Schema:     yt.Schema,
			PrimaryKey: yt.PrimaryKey,
			Index:      yt.Index,
			Unique:     yt.Unique,
		}
		if t.Schema == "" {
			t.Schema = yf.Schema
		}

		cols, err := decodeColumns(yt.Name, &yt.Column)
		if err != nil {
			return nil, err
		}
		t.Columns = cols

		if err := t.Validate(); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return tables, nil
}

func decodeColumns(table string, node *yaml.Node) ([]schema.Column, error) {
	if node.Kind == 0 {
		return nil, &schema.ConfigurationError{Table: table, Reason: "column is missing"}
	}
	if node.Kind != yaml.MappingNode {
		return nil, &schema.ConfigurationError{Table: table, Reason: "column must be a mapping of name to definition"}
	}

	var cols []schema.Column
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]

		col := schema.NewColumn(name, "")

		// Shorthand: "id: varchar(20)".
		if value.Kind == yaml.ScalarNode {
			col.Type = value.Value
			cols = append(cols, col)
			continue
		}

		var yc yamlColumn
		if err := value.Decode(&yc); err != nil {
			return nil, &schema.ConfigurationError{Table: table, Reason: fmt.Sprintf("column %q: %v", name, err)}
		}

		col.Type = yc.Type
		col.OldName = yc.OldName
		col.TypeLock = yc.TypeLock
		col.NoDefault = yc.NoDefault
		if yc.NotNull != nil {
			col.NotNull = *yc.NotNull
		}
		if yc.Default != nil {
			col.Default = schema.Ptr(fmt.Sprint(yc.Default))
		}
		cols = append(cols, col)
	}

	return cols, nil
}
