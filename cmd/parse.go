package main

import (
	"fmt"
	"strings"

	"QueryFilter/internal/model"
	"QueryFilter/internal/parser"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	parseModel      string
	parsePermission string
	parseSQL        bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [query]",
	Short: "Parse one query and print the result",
	Long: `Parse one query against a collection and print the result as JSON.

The query is either a URL query string or a JSON object.

Examples:
  queryfilter parse --model orders 'shop_id=7&status_in=A,B'
  queryfilter parse --model orders '{"shop_id": 7, "fields": "-customer"}'
  queryfilter parse --model orders 'shop_id=7' --permission '{"location_id": [1000]}'
  queryfilter parse --model orders 'shop_id=7&barcode=HEO' --sql`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseModel, "model", "m", "", "collection name")
	parseCmd.Flags().StringVar(&parsePermission, "permission", "", `allowed values per field as JSON, e.g. {"status":["A"]}`)
	parseCmd.Flags().BoolVar(&parseSQL, "sql", false, "also print the SQL the result translates to")
	_ = parseCmd.MarkFlagRequired("model")
}

func runParse(cmd *cobra.Command, args []string) error {
	if err := model.InitRegistry(cfg.ModelsDir, cfg.Parser.Location()); err != nil {
		return err
	}
	m, ok := model.Get(parseModel)
	if !ok {
		return fmt.Errorf("model %s not found in %s", parseModel, cfg.ModelsDir)
	}

	q, err := readCLIQuery(args[0])
	if err != nil {
		return err
	}
	var opts []parser.Option
	if parsePermission != "" {
		var permission map[string][]any
		if err := json.Unmarshal([]byte(parsePermission), &permission); err != nil {
			return fmt.Errorf("invalid --permission: %w", err)
		}
		opts = append(opts, parser.WithPermission(permission))
	}

	res := m.Parser().Parse(q, opts...)
	out := cmd.OutOrStdout()
	if !res.OK() {
		printJSON(cmd, res.Err(m.Name))
		return fmt.Errorf("query rejected with %d error(s)", len(res.Errors))
	}
	printJSON(cmd, res)

	if parseSQL {
		index, err := m.BuildIndexQuery(res)
		if err != nil {
			return err
		}
		sqlStr, sqlArgs, err := index.ToSql()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n-- index\n%s\n-- args %v\n", sqlStr, sqlArgs)

		count, err := m.BuildCountQuery(res.Filter)
		if err != nil {
			return err
		}
		sqlStr, sqlArgs, err = count.ToSql()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n-- count\n%s\n-- args %v\n", sqlStr, sqlArgs)
	}
	return nil
}

func readCLIQuery(raw string) (parser.Query, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		return parser.QueryFromJSON([]byte(raw))
	}
	return parser.ParseRawQuery(raw)
}

func printJSON(cmd *cobra.Command, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "encode: %v\n", err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
