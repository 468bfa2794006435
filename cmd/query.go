package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/orm"
)

var (
	queryWhere   string
	queryArgs    []string
	queryEq      map[string]string
	queryFields  []string
	queryOrder   string
	queryLimit   int
	queryOffset  int
	queryCount   bool
	queryOnlySQL bool
	querySchema  string
)

var queryCmd = &cobra.Command{
	Use:   "query TABLE",
	Short: "Select rows from a table",
	Long: `Build a SELECT with the statement builder and run it.

Examples:
  pqorm query users                                   # First 20 rows
  pqorm query users --eq status=active --order "name"
  pqorm query users --where "age > ? AND age < ?" --arg 18 --arg 65
  pqorm query users --count --eq status=active
  pqorm query users --fields id,name --sql            # Print the SQL only
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		o := orm.New(db,
			orm.WithSchema(cfg.Schema),
			orm.WithMaxIdle(cfg.PoolMax),
			orm.WithLogger(logger),
		)
		b := o.Model(args[0], querySchema)
		if queryOnlySQL {
			b.Fetch()
		}

		cond := make(map[string]any, len(queryEq))
		for k, v := range queryEq {
			cond[k] = v
		}
		b.WhereMap(cond)
		if queryWhere != "" {
			whereArgs := make([]any, len(queryArgs))
			for i, a := range queryArgs {
				whereArgs[i] = a
			}
			b.WhereSQL(queryWhere, whereArgs...)
		}

		if queryCount {
			if queryOnlySQL {
				res, err := b.Select(ctx, "COUNT(*) as total")
				if err != nil {
					return err
				}
				printSQL("", res.SQL)
				return nil
			}
			n, err := b.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		}

		if queryOrder != "" {
			b.Order(queryOrder)
		}
		if queryLimit > 0 {
			b.Limit(queryLimit, queryOffset)
		}

		res, err := b.Select(ctx, queryFields...)
		if err != nil {
			return err
		}
		if queryOnlySQL {
			printSQL("", res.SQL)
			return nil
		}
		printRows(res.Rows, queryFields)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryWhere, "where", "", "WHERE template with ? placeholders")
	queryCmd.Flags().StringArrayVar(&queryArgs, "arg", nil, "Placeholder value, repeat in order")
	queryCmd.Flags().StringToStringVar(&queryEq, "eq", nil, "column=value equality condition, repeatable")
	queryCmd.Flags().StringSliceVar(&queryFields, "fields", nil, "Columns to select (default *)")
	queryCmd.Flags().StringVar(&queryOrder, "order", "", "ORDER BY expression")
	queryCmd.Flags().IntVar(&queryLimit, "limit", orm.DefaultPageSize, "Maximum rows (0 for no limit)")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "Rows to skip")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "Print the number of matching rows")
	queryCmd.Flags().BoolVar(&queryOnlySQL, "sql", false, "Print the SQL instead of running it")
	queryCmd.Flags().StringVarP(&querySchema, "schema", "s", "", "Schema of the table (default: $PQORM_SCHEMA)")
}

func printRows(rows []map[string]any, fields []string) {
	if len(rows) == 0 {
		fmt.Println("(0 rows)")
		return
	}

	cols := fields
	if len(cols) == 0 {
		for k := range rows[0] {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok && v != nil {
				vals[i] = fmt.Sprint(v)
			} else {
				vals[i] = "NULL"
			}
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d rows)\n", len(rows))
}
