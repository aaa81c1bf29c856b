package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
)

func newParseCmd(a *app) *cobra.Command {
	var ruleSyntax bool
	cmd := &cobra.Command{
		Use:   "parse <expression>",
		Short: "Parse an expression and print its canonical form",
		Long: `Parses a boolean expression, or with --rules a sequence of
{ key : predicate : 'message' [: code [: args]] } blocks, and prints the
parsed tree in canonical form.

Examples:
  valang parse "age >= 18 AND name HAS TEXT"
  valang parse --rules "{ age : ? between 18 and 65 : 'out of range' }"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			p := parser.New(a.parserOptions()...)
			out := cmd.OutOrStdout()
			if !ruleSyntax {
				pred, err := p.ParseExpression(text)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, expression.Render(pred))
				return err
			}
			parsed, err := p.ParseRules(text)
			if err != nil {
				return err
			}
			for _, r := range parsed {
				key := r.Key.String()
				if key == "" {
					key = "?"
				}
				fmt.Fprintf(out, "%s %s : %s : %q", faint(fmt.Sprintf("%d:%d", r.Line, r.Column)), key, expression.Render(r.Predicate), r.Message)
				if r.Code != "" {
					fmt.Fprintf(out, " [%s]", code(r.Code))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ruleSyntax, "rules", false, "parse rule blocks instead of a single expression")
	return cmd
}
