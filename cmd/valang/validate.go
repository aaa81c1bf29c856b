package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-valang-go/valang/binding"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration/source"
	"github.com/krew-solutions/ascetic-valang-go/valang/validator"
)

var recordType = reflect.TypeOf(map[string]any{})

func newValidateCmd(a *app) *cobra.Command {
	var rulesFile, dataFile, className string
	cmd := &cobra.Command{
		Use:   "validate --rules <file> --data <file>",
		Short: "Validate YAML or JSON data against rules",
		Long: `Validates the records of a YAML or JSON file against a Valang
rule file, or against one class of a validation document. The data file
holds one record or a list of records. Cascades and method rules of
documents are ignored since the records carry no Go types.

Exits with status 1 when a record violates a rule.

Examples:
  valang validate --rules rules.valang --data customers.yaml
  valang validate --rules customer.xml --class Customer --data customer.json --context signup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfiguration(rulesFile, className)
			if err != nil {
				return err
			}
			records, err := readRecords(dataFile)
			if err != nil {
				return err
			}

			registry := configuration.NewRegistry(nil, configuration.WithLogger(a.logger))
			registry.Register(recordType, cfg)
			v := validator.New(registry,
				validator.WithShortCircuit(a.settings.ShortCircuit),
				validator.WithContexts(a.settings.Contexts...),
				validator.WithLogger(a.logger))

			errs := binding.NewErrors(dataFile)
			if err := validateRecords(cmd.Context(), v, records, errs); err != nil {
				return err
			}
			if !errs.HasErrors() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d records valid\n", success("ok"), len(records.items))
				return nil
			}
			printViolations(cmd.OutOrStdout(), errs)
			return errReported
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Valang rule file or validation document")
	cmd.Flags().StringVar(&dataFile, "data", "", "YAML or JSON data file")
	cmd.Flags().StringVar(&className, "class", "", "document class to apply")
	cmd.Flags().Bool("short-circuit", true, "stop at the first failing rule of a property")
	_ = cmd.MarkFlagRequired("rules")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (a *app) loadConfiguration(path, className string) (*configuration.BeanValidationConfiguration, error) {
	if _, err := source.DetectFormat(path); err != nil {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		return configuration.NewBuilder().Valang(string(text), a.parserOptions()...).Build()
	}

	doc, err := source.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if className == "" && len(doc.Classes) == 1 {
		className = doc.Classes[0].Name
	}
	class, ok := doc.Class(className)
	if !ok {
		return nil, errors.Errorf("%s has no class %q, use --class", path, className)
	}
	for i := range class.Properties {
		if class.Properties[i].Cascade || class.Properties[i].CascadeIf != "" {
			a.logger.Warn().Str("property", class.Properties[i].Name).Msg("cascade ignored")
		}
		class.Properties[i].Cascade = false
		class.Properties[i].CascadeIf = ""
	}
	for _, m := range class.Methods {
		a.logger.Warn().Str("method", m.Name).Msg("method rule ignored")
	}
	class.Methods = nil
	compiler := source.NewCompiler(source.WithParserOptions(a.parserOptions()...), source.WithLogger(a.logger))
	return compiler.Compile(class, nil)
}

type records struct {
	items []any
	list  bool
}

func readRecords(path string) (records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return records{}, errors.Wrapf(err, "reading %s", path)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return records{}, errors.Wrapf(err, "parsing %s", path)
	}
	switch v := doc.(type) {
	case []any:
		return records{items: v, list: true}, nil
	case map[string]any:
		return records{items: []any{v}}, nil
	case nil:
		return records{}, nil
	}
	return records{}, errors.Errorf("%s holds neither a record nor a list of records", path)
}

// validateRecords reports the records of a list under [i].
func validateRecords(ctx context.Context, v *validator.BeanValidator, rs records, errs *binding.Errors) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for i, item := range rs.items {
		if !rs.list {
			if err := v.Validate(ctx, item, errs); err != nil {
				return err
			}
			continue
		}
		errs.PushNestedPath(fmt.Sprintf("[%d]", i))
		err := v.Validate(ctx, item, errs)
		if popErr := errs.PopNestedPath(); popErr != nil && err == nil {
			err = popErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printViolations(w io.Writer, errs *binding.Errors) {
	for _, oe := range errs.GlobalErrors() {
		fmt.Fprintf(w, "%s %s %s\n", failure("✗"), oe.DefaultMessage, code("["+oe.Code+"]"))
	}
	for _, fe := range errs.FieldErrors() {
		fmt.Fprintf(w, "%s %s: %s %s\n", failure("✗"), fe.Field, fe.DefaultMessage, code("["+fe.Code+"]"))
	}
	fmt.Fprintf(w, "%s\n", failure(fmt.Sprintf("%d violations", errs.ErrorCount())))
}
