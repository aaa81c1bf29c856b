package source

import (
	"context"
	"reflect"

	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
)

// Loader serves configurations from documents. The first document holding
// a class of the type's name wins. Types without a class are unknown.
type Loader struct {
	types     *TypeRegistry
	compiler  *Compiler
	documents []*Document
}

func NewLoader(types *TypeRegistry, compiler *Compiler, documents ...*Document) *Loader {
	if types == nil {
		types = NewTypeRegistry()
	}
	if compiler == nil {
		compiler = NewCompiler()
	}
	return &Loader{types: types, compiler: compiler, documents: documents}
}

func (l *Loader) Load(_ context.Context, t reflect.Type) (*configuration.BeanValidationConfiguration, error) {
	name := l.types.NameOf(t)
	for _, doc := range l.documents {
		if class, ok := doc.Class(name); ok {
			return l.compiler.Compile(class, t)
		}
	}
	return nil, nil
}

// Classes lists the class names of all documents, resolved to their Go
// types where registered.
func (l *Loader) Classes() map[string]reflect.Type {
	result := make(map[string]reflect.Type)
	for _, doc := range l.documents {
		for _, class := range doc.Classes {
			if _, ok := result[class.Name]; ok {
				continue
			}
			t, _ := l.types.TypeOf(class.Name)
			result[class.Name] = t
		}
	}
	return result
}
