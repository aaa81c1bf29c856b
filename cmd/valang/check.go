package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-valang-go/valang/configuration/source"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Check rule files and validation documents",
		Long: `Checks Valang rule files and XML, YAML or TOML validation
documents. Parse errors are reported with file, line and column.

Examples:
  valang check rules.valang
  valang check customer.xml order.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				n, err := a.checkFile(path)
				if err != nil {
					failed = true
					reportProblem(cmd.ErrOrStderr(), path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", success("ok"), path, faint(fmt.Sprintf("(%d rules)", n)))
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
}

// checkFile returns the number of rules in path.
func (a *app) checkFile(path string) (int, error) {
	if _, err := source.DetectFormat(path); err == nil {
		return a.checkDocument(path)
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	parsed, err := parser.New(a.parserOptions()...).ParseRules(string(text))
	return len(parsed), err
}

// checkDocument compiles every class without Go types, so property names
// are not checked.
func (a *app) checkDocument(path string) (int, error) {
	doc, err := source.ReadFile(path)
	if err != nil {
		return 0, err
	}
	compiler := source.NewCompiler(source.WithParserOptions(a.parserOptions()...), source.WithLogger(a.logger))
	n := 0
	var problems *multierror.Error
	for _, class := range doc.Classes {
		cfg, err := compiler.Compile(class, nil)
		if err != nil {
			problems = multierror.Append(problems, fmt.Errorf("class %s: %w", class.Name, err))
			continue
		}
		n += len(cfg.GlobalRules()) + len(cfg.MethodRules())
		for _, pr := range cfg.PropertyRules() {
			n += len(pr.Rules)
		}
	}
	return n, problems.ErrorOrNil()
}

func reportProblem(w io.Writer, path string, err error) {
	var parseErr *faults.ParseError
	var resolveErr *faults.FunctionResolutionError
	switch {
	case errors.As(err, &resolveErr):
		fmt.Fprintf(w, "%s:%d:%d: %s unknown function %s\n", filepath.Clean(path), resolveErr.Line, resolveErr.Column, failure("error:"), code(resolveErr.Name))
	case errors.As(err, &parseErr):
		fmt.Fprintf(w, "%s:%d:%d: %s %s\n", filepath.Clean(path), parseErr.Line, parseErr.Column, failure("error:"), parseErr.Message)
	default:
		fmt.Fprintf(w, "%s: %s %v\n", filepath.Clean(path), failure("error:"), err)
	}
}
