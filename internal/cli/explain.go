package cli

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
	"github.com/Konsultn-Engineering/sqlmap/operator"
	"github.com/Konsultn-Engineering/sqlmap/page"
	"github.com/Konsultn-Engineering/sqlmap/template"
)

type explainOptions struct {
	sql        string
	owner      string
	ownerTable string
	name       string
	params     []string
	returns    string
	usePrimary bool
	table      string
	store      string
	dialect    string
	args       string
}

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	opts := &explainOptions{}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Compile a mapped method and show its plan",
		Long: `Compile a mapped method without connecting to any store and print the
operator kind, destination, routing and result shape. With --args the
statements a call would run are rendered with their values inlined.`,
		Example: `  sqlmap explain --sql "SELECT * FROM #table WHERE id IN (:ids)" \
    --param ids:[]int64 --returns []row --table users --args '[[1,2,3]]'

  sqlmap explain --sql "UPDATE users SET name = :name WHERE id = :id" \
    --param users:[]row --args '[[{"id":1,"name":"a"},{"id":2,"name":"b"}]]'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sql, "sql", "", "Mapped SQL template")
	cmd.Flags().StringVar(&opts.owner, "owner", "Explain", "Owner id used for store routing")
	cmd.Flags().StringVar(&opts.ownerTable, "owner-table", "", "Global table of the owner")
	cmd.Flags().StringVar(&opts.name, "name", "method", "Method name")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Parameter as name:type, repeatable")
	cmd.Flags().StringVar(&opts.returns, "returns", "", "Declared result type (empty for none)")
	cmd.Flags().BoolVar(&opts.usePrimary, "use-primary", false, "Route reads to the primary store")
	cmd.Flags().StringVar(&opts.table, "table", "", "Global table of the method")
	cmd.Flags().StringVar(&opts.store, "store", "", "Store group of the method")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "postgres", "Dialect used to render statements")
	cmd.Flags().StringVar(&opts.args, "args", "", "Call arguments as a JSON array")
	_ = cmd.MarkFlagRequired("sql")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"postgres", "mysql", "tidb", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExplain(cmd *cobra.Command, opts *explainOptions) error {
	cfg := GetConfig(cmd.Context())

	d, err := dialect.ForName(opts.dialect)
	if err != nil {
		return err
	}
	m, err := opts.method()
	if err != nil {
		return err
	}

	f, err := operator.NewFactory(nil,
		operator.WithConfig(cfg.Operator),
		operator.WithLogger(GetLogger(cmd.Context())),
		operator.WithDialect(d))
	if err != nil {
		return err
	}
	p, err := f.Plan(m)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printPlan(out, p)

	if opts.args == "" {
		return nil
	}
	types := make([]reflect.Type, 0, len(m.Params()))
	for _, prm := range m.Params() {
		types = append(types, prm.Type)
	}
	args, err := decodeArgs(opts.args, types)
	if err != nil {
		return err
	}
	stmts, err := p.Render(d, args...)
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		fmt.Fprintln(out, "\nno statements: empty batch")
		return nil
	}

	var pg *page.Page
	if at := p.PageParam(); at >= 0 {
		switch v := args[at].(type) {
		case page.Page:
			pg = &v
		case *page.Page:
			pg = v
		}
	}
	return printStatements(out, d, stmts, pg)
}

func (o *explainOptions) method() (*descriptor.Method, error) {
	params := make([]descriptor.Parameter, 0, len(o.params))
	for _, p := range o.params {
		name, typ, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("parameter %q: want name:type", p)
		}
		t, err := parseType(typ)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		params = append(params, descriptor.Param(name, t))
	}

	var mopts []descriptor.Option
	if o.returns != "" {
		t, err := parseType(o.returns)
		if err != nil {
			return nil, fmt.Errorf("returns: %w", err)
		}
		mopts = append(mopts, descriptor.Returns(t))
	}
	if o.usePrimary {
		mopts = append(mopts, descriptor.UsePrimary())
	}
	if o.table != "" {
		mopts = append(mopts, descriptor.GlobalTable(o.table))
	}
	if o.store != "" {
		mopts = append(mopts, descriptor.Store(o.store))
	}

	owner := descriptor.Owner{ID: o.owner, Table: o.ownerTable}
	return descriptor.NewMethod(owner, o.name, o.sql, params, mopts...)
}

func printPlan(w io.Writer, p *operator.Plan) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "method:\t%s\n", p.Method.FullName())
	fmt.Fprintf(tw, "kind:\t%s\n", p.Kind)
	fmt.Fprintf(tw, "destination:\t%s\n", p.Store.Class())
	fmt.Fprintf(tw, "table:\t%s\n", p.Table)
	fmt.Fprintf(tw, "store:\t%s\n", p.Store)
	if p.Result != nil {
		fmt.Fprintf(tw, "result:\t%s of %s\n", p.Result.Shape(), p.Method.Return().Elem)
	} else if ret := p.Method.Return(); !ret.Void() {
		fmt.Fprintf(tw, "result:\t%s\n", ret.Type)
	}
	for _, prm := range p.Params {
		fmt.Fprintf(tw, "param:\t%s\n", prm)
	}
	_ = tw.Flush()
}

func printStatements(w io.Writer, d dialect.Dialect, stmts []*template.Statement, pg *page.Page) error {
	fmt.Fprintln(w)
	if pg != nil {
		pages := page.NewHandler()
		count, err := pages.CountOnly(stmts[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "count: %s\n", dialect.Interpolate(d, count.SQL, count.Args))
		if err := pages.PageAndSort(stmts[0], pg); err != nil {
			return err
		}
	}
	if len(stmts) == 1 {
		fmt.Fprintf(w, "sql: %s\n", dialect.Interpolate(d, stmts[0].SQL, stmts[0].Args))
		return nil
	}
	for i, stmt := range stmts {
		fmt.Fprintf(w, "sql[%d]: %s\n", i, dialect.Interpolate(d, stmt.SQL, stmt.Args))
	}
	return nil
}
