package pgsource

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/icrowley/fake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration/source"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

type Customer struct {
	Name string
	Age  int
}

const customerDocument = `
classes:
  - name: Customer
    properties:
      - name: name
        rules:
          - kind: not-blank
            code: required
    valang:
      - "{ age : ? >= 18 : 'too young' }"
`

type rowStub struct {
	values []string
	err    error
}

func (r rowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*(d.(*string)) = r.values[i]
	}
	return nil
}

type dbStub struct {
	rows         map[string]rowStub
	actualQuery  string
	actualParams []any
}

func (db *dbStub) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	db.actualQuery = query
	db.actualParams = args
	row, ok := db.rows[args[0].(string)]
	if !ok {
		return rowStub{err: pgx.ErrNoRows}
	}
	return row
}

func (db *dbStub) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	db.actualQuery = query
	db.actualParams = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TestLoad(t *testing.T) {
	db := &dbStub{rows: map[string]rowStub{
		"Customer": {values: []string{"yaml", customerDocument}},
	}}
	loader := NewLoader(db)

	cfg, err := loader.Load(context.Background(), typeOf[*Customer]())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.RulesOf("name"), 1)
	assert.Len(t, cfg.GlobalRules(), 1)
	assert.Equal(t, selectDocument, db.actualQuery)
	assert.Equal(t, []any{"Customer"}, db.actualParams)
}

func TestLoadUnknownType(t *testing.T) {
	r := configuration.NewRegistry(NewLoader(&dbStub{}))
	_, status, err := r.Lookup(context.Background(), typeOf[Customer]())
	require.NoError(t, err)
	assert.Equal(t, configuration.Unknown, status)
}

func TestLoadFailures(t *testing.T) {
	boom := errors.New(fake.Sentence())
	tests := []struct {
		name string
		row  rowStub
	}{
		{"query", rowStub{err: boom}},
		{"format", rowStub{values: []string{"ini", customerDocument}}},
		{"document", rowStub{values: []string{"yaml", "classes: [oops"}}},
		{"class", rowStub{values: []string{"yaml", "classes:\n  - name: Order\n"}}},
		{"rules", rowStub{values: []string{"yaml", "classes:\n  - name: Customer\n    valang: [\"{ age : ? > : 'x' }\"]\n"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(&dbStub{rows: map[string]rowStub{"Customer": tt.row}})
			cfg, err := loader.Load(context.Background(), typeOf[Customer]())
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadUsesRegisteredName(t *testing.T) {
	types := source.NewTypeRegistry()
	source.Register[Customer](types, "crm.Customer")
	doc := "[[class]]\nname = \"crm.Customer\"\n[[class.property]]\nname = \"name\"\n[[class.property.rule]]\nkind = \"not-blank\"\n"
	db := &dbStub{rows: map[string]rowStub{"crm.Customer": {values: []string{"toml", doc}}}}

	cfg, err := NewLoader(db, WithTypes(types)).Load(context.Background(), typeOf[Customer]())
	require.NoError(t, err)
	assert.Len(t, cfg.RulesOf("name"), 1)
}

func TestSave(t *testing.T) {
	db := &dbStub{}
	err := Save(context.Background(), db, "Customer", source.FormatYAML, []byte(customerDocument))
	require.NoError(t, err)
	assert.Equal(t, upsertDocument, db.actualQuery)
	assert.Equal(t, []any{"Customer", "yaml", customerDocument}, db.actualParams)

	err = Save(context.Background(), db, "Order", source.FormatYAML, []byte(customerDocument))
	assert.True(t, errors.Is(err, faults.ErrConfiguration))
}

func TestRoundTripOnPostgres(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	_, err := pool.Exec(ctx, Schema)
	require.NoError(t, err)

	typeName := "Customer"
	require.NoError(t, Save(ctx, pool, typeName, source.FormatYAML, []byte(customerDocument)))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DELETE FROM validation_configurations WHERE type_name = $1", typeName)
	})

	cfg, err := NewLoader(pool).Load(ctx, typeOf[Customer]())
	require.NoError(t, err)
	assert.Len(t, cfg.RulesOf("name"), 1)
}

// newPool connects to the database named by the DB_* environment variables
// and skips the test when none is reachable.
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	connString := "postgres://" + getEnv("DB_USERNAME", "devel") + ":" + getEnv("DB_PASSWORD", "devel") +
		"@" + getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432") + "/" + getEnv("DB_DATABASE", "devel_valang")
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Skipf("postgres is not configured: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Skipf("postgres is not reachable: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
