package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/orma/client"
	"github.com/syssam/orma/dialect/sql/querygen"
)

func newSQLCommand(a *app) *cobra.Command {
	var (
		opts  []string
		where string
	)
	cmd := &cobra.Command{
		Use:   "sql <operation> [target]",
		Short: "Print the SQL generated for an operation",
		Long: `Print the statement the configured dialect generates for an operation.
No connection is made. Operations: ` + operationNames() + `.`,
		Example: `  orma sql truncateTable users --opt cascade=true --dialect postgres
  orma sql listSchemas --opt skip=audit,staging -o json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := querygen.Get(a.cfg.Dialect)
			if err != nil {
				return err
			}
			raw, err := parseOpts(opts)
			if err != nil {
				return err
			}
			req := querygen.Request{Operation: querygen.Operation(args[0]), Where: where, Options: raw}
			if len(args) > 1 {
				req.Target = args[1]
			}
			q, err := querygen.Build(gen, req)
			if err != nil {
				return err
			}
			out := struct {
				Dialect   string `json:"dialect" yaml:"dialect"`
				Operation string `json:"operation" yaml:"operation"`
				SQL       string `json:"sql" yaml:"sql"`
			}{gen.Dialect().Name, args[0], q}
			return render(cmd.OutOrStdout(), a.cfg.Output, out, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, q)
				return err
			})
		},
	}
	cmd.Flags().StringArrayVar(&opts, "opt", nil, "operation option as key=value (repeatable)")
	cmd.Flags().StringVar(&where, "where", "", "WHERE clause for bulkDelete")
	return cmd
}

func operationNames() string {
	var names []string
	for _, op := range querygen.Operations() {
		names = append(names, string(op))
	}
	return strings.Join(names, ", ")
}

// parseOpts splits key=value pairs. Values stay strings; the decoder
// converts them to the option types.
func parseOpts(opts []string) (map[string]any, error) {
	raw := make(map[string]any, len(opts))
	for _, o := range opts {
		k, v, ok := strings.Cut(o, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", o)
		}
		raw[k] = v
	}
	return raw, nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the database server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open()
			if err != nil {
				return err
			}
			defer c.Close()
			v, err := c.ServerVersion(cmd.Context())
			if err != nil {
				return err
			}
			out := struct {
				Dialect string `json:"dialect" yaml:"dialect"`
				Version string `json:"version" yaml:"version"`
			}{c.Dialect().Name, v.String()}
			return render(cmd.OutOrStdout(), a.cfg.Output, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s\n", out.Dialect, out.Version)
				return err
			})
		},
	}
}

type tableRow struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
}

func newTablesCommand(a *app) *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List base tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open()
			if err != nil {
				return err
			}
			defer c.Close()
			tables, err := c.ListTables(cmd.Context(), querygen.ListTablesOptions{Schema: schema})
			if err != nil {
				return err
			}
			rows := make([]tableRow, 0, len(tables))
			for _, t := range tables {
				rows = append(rows, tableRow{Schema: t.Schema, Table: t.Name})
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, rows, func(w io.Writer) error {
				for _, t := range tables {
					if _, err := fmt.Fprintln(w, t); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "only list tables of this schema")
	return cmd
}

func newSchemasCommand(a *app) *cobra.Command {
	var skip []string
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List user schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open()
			if err != nil {
				return err
			}
			defer c.Close()
			schemas, err := c.ListSchemas(cmd.Context(), querygen.ListSchemasOptions{Skip: skip})
			if err != nil {
				return err
			}
			if schemas == nil {
				schemas = []string{}
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, schemas, func(w io.Writer) error {
				for _, s := range schemas {
					if _, err := fmt.Fprintln(w, s); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "schemas to leave out")
	return cmd
}

type bulkResult struct {
	Operation string   `json:"operation" yaml:"operation"`
	Models    []string `json:"models" yaml:"models"`
}

func (a *app) bulkResult(op string, c *client.Client) bulkResult {
	res := bulkResult{Operation: op, Models: []string{}}
	for _, m := range c.Models().Models() {
		res.Models = append(res.Models, m.Name())
	}
	return res
}

func (a *app) renderBulk(cmd *cobra.Command, res bulkResult) error {
	return render(cmd.OutOrStdout(), a.cfg.Output, res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %d models\n", res.Operation, len(res.Models))
		return err
	})
}

func newTruncateCommand(a *app) *cobra.Command {
	var opts client.TruncateOptions
	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Truncate the tables of all configured models",
		Long: `Truncate the tables of all configured models.

Without flags the tables are truncated in parallel. --cascade truncates them
one at a time, dependents first. --without-fk-checks disables foreign key
enforcement on one connection for the duration of the operation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Truncate(cmd.Context(), opts); err != nil {
				return err
			}
			return a.renderBulk(cmd, a.bulkResult("truncate", c))
		},
	}
	cmd.Flags().BoolVar(&opts.Cascade, "cascade", false, "truncate sequentially in dependency order")
	cmd.Flags().BoolVar(&opts.WithoutForeignKeyChecks, "without-fk-checks", false, "disable foreign key checks while truncating")
	cmd.Flags().BoolVar(&opts.RestartIdentity, "restart-identity", false, "reset identity columns")
	return cmd
}

func newDestroyAllCommand(a *app) *cobra.Command {
	var opts client.DestroyAllOptions
	cmd := &cobra.Command{
		Use:   "destroy-all",
		Short: "Delete every row of all configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.DestroyAll(cmd.Context(), opts); err != nil {
				return err
			}
			return a.renderBulk(cmd, a.bulkResult("destroyAll", c))
		},
	}
	cmd.Flags().BoolVar(&opts.Cascade, "cascade", false, "allow cyclic model dependencies")
	cmd.Flags().BoolVar(&opts.WithoutForeignKeyChecks, "without-fk-checks", false, "disable foreign key checks while deleting")
	return cmd
}
