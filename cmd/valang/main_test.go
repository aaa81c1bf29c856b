package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseCommand(t *testing.T) {
	stdout, _, err := execute(t, "parse", "age >= 18 AND age <= 65")
	require.NoError(t, err)
	assert.Equal(t, "((age >= 18) AND (age <= 65))\n", stdout)

	stdout, _, err = execute(t, "parse", "--rules", "{ age : ? >= 18 : 'too young' : age.min }")
	require.NoError(t, err)
	assert.Equal(t, "1:1 age : (age >= 18) : \"too young\" [age.min]\n", stdout)

	_, _, err = execute(t, "parse", "age >=")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "valang dev\n", stdout)
}

func TestCheckCommand(t *testing.T) {
	good := writeFile(t, "good.valang", `
{ age : ? >= 18 : 'too young' }
{ name : ? HAS TEXT : 'name required' }
`)
	doc := writeFile(t, "customer.yaml", `
classes:
  - name: Customer
    properties:
      - name: name
        rules:
          - kind: not-blank
          - kind: length
            max: 8
`)
	stdout, _, err := execute(t, "check", good, doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok "+good+" (2 rules)")
	assert.Contains(t, stdout, "ok "+doc+" (2 rules)")

	unknown := writeFile(t, "unknown.valang", `{ name : bogusFunc(name) == 'x' : 'err' }`)
	broken := writeFile(t, "broken.yaml", "classes:\n  - name: Customer\n    global:\n      - kind: palindrome\n")
	stdout, stderr, err := execute(t, "check", good, unknown, broken)
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, stdout, "ok "+good)
	assert.Contains(t, stderr, unknown+":1:10: error: unknown function bogusFunc")
	assert.Contains(t, stderr, broken+": error:")
	assert.Contains(t, stderr, "palindrome")
}

func TestValidateCommand(t *testing.T) {
	rules := writeFile(t, "people.valang", `
{ age : ? >= 18 : 'too young' : age.min }
{ name : ? HAS TEXT : 'name required' : name.required }
`)
	valid := writeFile(t, "valid.yaml", "name: Ann\nage: 30\n")
	stdout, _, err := execute(t, "validate", "--rules", rules, "--data", valid)
	require.NoError(t, err)
	assert.Equal(t, "ok 1 records valid\n", stdout)

	people := writeFile(t, "people.json", `[{"name": "Ann", "age": 30}, {"name": "", "age": 12}]`)
	stdout, _, err = execute(t, "validate", "--rules", rules, "--data", people)
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, stdout, "[1].age: too young [age.min]")
	assert.Contains(t, stdout, "[1].name: name required [name.required]")
	assert.NotContains(t, stdout, "[0]")
	assert.Contains(t, stdout, "2 violations")
}

func TestValidateCommandWithDocument(t *testing.T) {
	doc := writeFile(t, "customer.toml", `
[[class]]
name = "Customer"

[[class.property]]
name = "name"
cascade = true

[[class.property.rule]]
kind = "not-blank"
code = "name.required"

[[class.property.rule]]
kind = "length"
max = 3
code = "name.length"

[[class.global]]
kind = "expression"
expression = "age >= 18"
field = "age"
code = "age.min"
contexts = "signup"
`)
	data := writeFile(t, "customer.yaml", "name: Bartholomew\nage: 12\n")

	stdout, _, err := execute(t, "validate", "--rules", doc, "--data", data)
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, stdout, "name: ")
	assert.Contains(t, stdout, "[name.length]")
	assert.NotContains(t, stdout, "age.min")

	stdout, _, err = execute(t, "validate", "--context", "signup", "--rules", doc, "--data", data)
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, stdout, "[age.min]")

	_, _, err = execute(t, "validate", "--rules", doc, "--class", "Order", "--data", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no class "Order"`)
}

func TestValidateCommandShortCircuit(t *testing.T) {
	doc := writeFile(t, "customer.yaml", `
classes:
  - name: Customer
    properties:
      - name: name
        rules:
          - kind: length
            min: 2
            code: name.short
          - kind: regexp
            expression: "^[A-Z]"
            code: name.capital
`)
	data := writeFile(t, "customer.yaml", "name: a\n")

	stdout, _, _ := execute(t, "validate", "--rules", doc, "--data", data)
	assert.Contains(t, stdout, "[name.short]")
	assert.NotContains(t, stdout, "[name.capital]")

	stdout, _, _ = execute(t, "validate", "--short-circuit=false", "--rules", doc, "--data", data)
	assert.Contains(t, stdout, "[name.short]")
	assert.Contains(t, stdout, "[name.capital]")
}

func TestLoadSettings(t *testing.T) {
	path := writeFile(t, "valang.toml", `
short_circuit = false
contexts = ["signup"]
log_level = "debug"

[[date_formats]]
pattern = '\d{2}\.\d{2}\.\d{4}'
layout = "02.01.2006"
`)
	s, err := loadSettings(path)
	require.NoError(t, err)
	assert.False(t, s.ShortCircuit)
	assert.Equal(t, []string{"signup"}, s.Contexts)

	dates, err := s.DateParser()
	require.NoError(t, err)
	got, err := dates.Parse("31.01.2024")
	require.NoError(t, err)
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 31, got.Day())

	yamlPath := writeFile(t, "valang.yml", "log_level: loud\n")
	s, err = loadSettings(yamlPath)
	require.NoError(t, err)
	assert.True(t, s.ShortCircuit)
	_, err = s.Logger()
	assert.Error(t, err)

	_, err = loadSettings(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
