package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initFile    string
	initStructs bool
)

const exampleSchemaYAML = `# Tables are only ever extended: columns, renames, types, defaults,
# NOT NULL and indexes. Nothing is dropped.
schema: public

tables:
  - name: users
    column:
      id: varchar(32)
      username:
        type: varchar(40)
        oldName: uname        # renamed from uname when uname still exists
      email: varchar(120)
      age:
        type: integer
        default: 18
      balance: numeric(12,2)  # strings and numbers default to '' and 0
      bio:
        type: text
        notNull: false
        noDefault: true
      created:
        type: timestamptz
        default: "@now()"     # @ embeds the expression unquoted
      profile:
        type: jsonb           # not compared after creation
    index: [username, "age,created"]
    unique: [email]

  - name: posts
    primaryKey: post_id
    column:
      post_id: varchar(32)
      user_id: varchar(32)
      title: varchar(200)
      published:
        type: boolean
        default: false
    index: [user_id]
`

const exampleModels = `package models

import "time"

// User declares the users table. Register it with schema.FromStruct.
type User struct {
	ID       string    ` + "`db:\"id,type:varchar(32),primary\"`" + `
	Username string    ` + "`db:\"username,type:varchar(40),old:uname,index\"`" + `
	Email    string    ` + "`db:\"email,type:varchar(120),unique\"`" + `
	Age      int       ` + "`db:\"age,type:integer,default:18\"`" + `
	Balance  float64   ` + "`db:\"balance,type:numeric(12,2)\"`" + `
	Bio      string    ` + "`db:\"bio,type:text,null,nodefault\"`" + `
	Created  time.Time ` + "`db:\"created,type:timestamptz,default:@now()\"`" + `
}

func (User) TableName() string { return "users" }
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example schema file",
	Long: `Write an example schema declaration to start from.

Examples:
  pqorm init                     # Create schema.yaml
  pqorm init -f db/tables.yaml   # Create the file elsewhere
  pqorm init --structs           # Create models/models.go with db tags
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, content := initFile, exampleSchemaYAML
		if initStructs {
			path, content = filepath.Join("models", "models.go"), exampleModels
		}
		if path == "" {
			path = cfg.SchemaFile
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		fmt.Printf("✅ Created %s example file.\n", path)
		fmt.Printf("📝 Edit %s to declare your tables\n", path)
		if !initStructs {
			fmt.Println("🚀 Run 'pqorm diff' to preview and 'pqorm sync' to apply")
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&initFile, "file", "f", "", "Where to write the schema file (default: $PQORM_SCHEMA_FILE or schema.yaml)")
	initCmd.Flags().BoolVar(&initStructs, "structs", false, "Write Go structs with db tags instead of YAML")
}
