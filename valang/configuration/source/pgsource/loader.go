// Package pgsource loads validation documents stored in PostgreSQL.
//
// Each row of the table holds the document of one type:
//
//	CREATE TABLE validation_configurations (
//	    type_name text PRIMARY KEY,
//	    format    text NOT NULL,
//	    document  text NOT NULL
//	);
package pgsource

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration/source"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

const (
	Schema = `CREATE TABLE IF NOT EXISTS validation_configurations (
    type_name text PRIMARY KEY,
    format    text NOT NULL,
    document  text NOT NULL
)`

	selectDocument = `SELECT format, document FROM validation_configurations WHERE type_name = $1`
	upsertDocument = `INSERT INTO validation_configurations (type_name, format, document) VALUES ($1, $2, $3)
ON CONFLICT (type_name) DO UPDATE SET format = EXCLUDED.format, document = EXCLUDED.document`
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Executor is needed to store documents only.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

type Option func(*Loader)

func WithTypes(types *source.TypeRegistry) Option {
	return func(l *Loader) {
		l.types = types
	}
}

func WithCompiler(compiler *source.Compiler) Option {
	return func(l *Loader) {
		l.compiler = compiler
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger.With().Str("component", "valang.pgsource").Logger()
	}
}

// Loader implements configuration.Loader. Types without a row are unknown.
type Loader struct {
	db       Querier
	types    *source.TypeRegistry
	compiler *source.Compiler
	logger   zerolog.Logger
}

var _ configuration.Loader = (*Loader)(nil)

func NewLoader(db Querier, opts ...Option) *Loader {
	l := &Loader{
		db:       db,
		types:    source.NewTypeRegistry(),
		compiler: source.NewCompiler(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Load(ctx context.Context, t reflect.Type) (*configuration.BeanValidationConfiguration, error) {
	name := l.types.NameOf(t)
	var format, document string
	err := l.db.QueryRow(ctx, selectDocument, name).Scan(&format, &document)
	if err == pgx.ErrNoRows {
		l.logger.Debug().Str("type", name).Msg("no validation document")
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load validation document of %s", name)
	}

	f, err := source.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	doc, err := source.Decode(f, []byte(document))
	if err != nil {
		return nil, errors.Wrapf(err, "validation document of %s", name)
	}
	class, ok := doc.Class(name)
	if !ok {
		return nil, faults.NewConfigurationError("validation document of "+name, "no class named "+name)
	}
	return l.compiler.Compile(class, t)
}

// Save stores document as the validation document of typeName. The
// document is decoded first so that a broken document is never stored.
func Save(ctx context.Context, db Executor, typeName string, format source.Format, document []byte) error {
	doc, err := source.Decode(format, document)
	if err != nil {
		return err
	}
	if _, ok := doc.Class(typeName); !ok {
		return faults.NewConfigurationError("validation document of "+typeName, "no class named "+typeName)
	}
	if _, err := db.Exec(ctx, upsertDocument, typeName, string(format), string(document)); err != nil {
		return errors.Wrapf(err, "unable to save validation document of %s", typeName)
	}
	return nil
}
