package validator

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"syreclabs.com/go/faker"

	"github.com/krew-solutions/ascetic-valang-go/valang/binding"
	"github.com/krew-solutions/ascetic-valang-go/valang/conditions"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

type Address struct {
	City string
	Zip  string
}

type Person struct {
	Name      string
	Age       int
	Addresses []Address
	ByLabel   map[string]*Address
	ByNumber  map[int]*Address
	Manager   *Person
	Friends   []*Person
}

type Account struct {
	Owner string
}

func (a Account) Explode() bool {
	panic("ledger is gone")
}

type Unconfigured struct{}

type Flag struct{}

func (Flag) Raised() bool {
	return false
}

type Board struct {
	Flags []*Flag
}

var (
	personType  = configuration.TypeFor[Person]()
	addressType = configuration.TypeFor[Address]()
)

func mustBuild(t *testing.T, b *configuration.Builder, target reflect.Type) *configuration.BeanValidationConfiguration {
	t.Helper()
	cfg, err := b.BuildFor(target)
	require.NoError(t, err)
	return cfg
}

func cityRequired() *rules.ValidationRule {
	return rules.MustValidationRule(conditions.NotBlank(), "required", "city is required")
}

// newRegistry configures Person with the age range rule and all cascades,
// and Address with a required city.
func newRegistry(t *testing.T) *configuration.Registry {
	t.Helper()
	r := configuration.NewRegistry(nil)
	r.Register(personType, mustBuild(t, configuration.NewBuilder().
		Valang(`{ age : age >= 18 and age <= 65 : 'age out of range' : 'age.range' }`).
		Cascade("addresses").
		Cascade("byLabel").
		Cascade("byNumber").
		Cascade("manager").
		Cascade("friends"), personType))
	r.Register(addressType, mustBuild(t, configuration.NewBuilder().
		Property("city", cityRequired()), addressType))
	return r
}

func validAddress() Address {
	return Address{City: faker.Address().City(), Zip: faker.Address().ZipCode()}
}

func adult() *Person {
	return &Person{Name: faker.Name().FirstName(), Age: 40}
}

func TestRangeRule(t *testing.T) {
	v := New(newRegistry(t))
	tests := []struct {
		name     string
		age      int
		expected int
	}{
		{"too old", 70, 1},
		{"in range", 40, 0},
		{"lower bound", 18, 0},
		{"too young", 17, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := adult()
			p.Age = tt.age
			errs, err := v.ValidateObject(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, errs.ErrorCount())
			if tt.expected > 0 {
				fieldErrors := errs.FieldErrorsOf("age")
				require.Len(t, fieldErrors, 1)
				assert.Equal(t, "age.range", fieldErrors[0].Code)
				assert.Equal(t, "age out of range", fieldErrors[0].DefaultMessage)
				assert.Equal(t, "Person", fieldErrors[0].Object)
			}
		})
	}
}

func TestCascadeNamesIndexedPaths(t *testing.T) {
	p := adult()
	p.Addresses = []Address{validAddress(), {City: ""}}

	errs, err := New(newRegistry(t)).ValidateObject(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, 1, errs.ErrorCount())
	assert.Equal(t, "addresses[1].city", errs.FieldErrors()[0].Field)
	assert.Empty(t, errs.FieldErrorsOf("addresses[0].city"))
	assert.Empty(t, errs.FieldErrorsOf("city"))
}

func TestCascadeMaps(t *testing.T) {
	p := adult()
	valid := validAddress()
	p.ByLabel = map[string]*Address{"work": {City: " "}, "home": &valid, "attic": nil}
	p.ByNumber = map[int]*Address{1: {City: ""}}

	errs, err := New(newRegistry(t)).ValidateObject(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, 1, errs.ErrorCount())
	assert.Equal(t, "byLabel[work].city", errs.FieldErrors()[0].Field)
}

func TestNestedBeanAndPathBalance(t *testing.T) {
	p := adult()
	p.Manager = &Person{Name: "Boss", Age: 99, Addresses: []Address{{}}}

	errs := binding.NewErrors("request")
	errs.PushNestedPath("payload")
	err := New(newRegistry(t)).Validate(context.Background(), p, errs)
	require.NoError(t, err)

	assert.Equal(t, "payload", errs.NestedPath())
	fields := make([]string, 0, errs.ErrorCount())
	for _, fe := range errs.FieldErrors() {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"payload.manager.age", "payload.manager.addresses[0].city"}, fields)
	require.NoError(t, errs.PopNestedPath())
	assert.ErrorIs(t, errs.PopNestedPath(), binding.ErrEmptyPathStack)
}

type visits struct {
	mu    sync.Mutex
	count map[*Person]int
}

func (v *visits) Supports(t reflect.Type) bool {
	return t == reflect.TypeOf(&Person{})
}

func (v *visits) Validate(_ context.Context, obj any, _ *binding.Errors) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.count[obj.(*Person)]++
	return nil
}

func TestCyclesAreValidatedOnce(t *testing.T) {
	seen := &visits{count: make(map[*Person]int)}
	r := configuration.NewRegistry(nil)
	r.Register(personType, mustBuild(t, configuration.NewBuilder().
		Cascade("manager").
		Cascade("friends").
		Custom(seen), personType))

	a := adult()
	b := adult()
	shared := adult()
	a.Manager = b
	b.Manager = a
	a.Friends = []*Person{b, a, shared}
	b.Friends = []*Person{shared}

	errs := binding.NewErrors("person")
	require.NoError(t, New(r).Validate(context.Background(), a, errs))
	assert.Equal(t, map[*Person]int{a: 1, b: 1, shared: 1}, seen.count)
	assert.Empty(t, errs.NestedPath())
}

func TestDistinctEmptyObjectsAreEachValidated(t *testing.T) {
	flagType := configuration.TypeFor[Flag]()
	boardType := configuration.TypeFor[Board]()
	r := configuration.NewRegistry(nil)
	r.Register(flagType, mustBuild(t, configuration.NewBuilder().
		Method("Raised", "flag.lowered", "flag is not raised"), flagType))
	r.Register(boardType, mustBuild(t, configuration.NewBuilder().
		Cascade("flags"), boardType))

	board := &Board{Flags: []*Flag{new(Flag), new(Flag)}}
	errs, err := New(r).ValidateObject(context.Background(), board)
	require.NoError(t, err)
	require.Len(t, errs.FieldErrors(), 2)
	assert.Equal(t, "flags[0]", errs.FieldErrors()[0].Field)
	assert.Equal(t, "flags[1]", errs.FieldErrors()[1].Field)
	assert.Equal(t, "flag.lowered", errs.FieldErrors()[1].Code)
}

func TestShortCircuit(t *testing.T) {
	minLength, err := conditions.Length(3, -1)
	require.NoError(t, err)
	r := configuration.NewRegistry(nil)
	r.Register(personType, mustBuild(t, configuration.NewBuilder().
		Property("name",
			rules.MustValidationRule(conditions.NotBlank(), "name.required", "name is required"),
			rules.MustValidationRule(minLength, "name.short", "name is too short")),
		personType))

	tests := []struct {
		name     string
		opts     []Option
		expected []string
	}{
		{"enabled by default", nil, []string{"name.required"}},
		{"disabled", []Option{WithShortCircuit(false)}, []string{"name.required", "name.short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := New(r, tt.opts...).ValidateObject(context.Background(), &Person{Age: 30})
			require.NoError(t, err)
			var codes []string
			for _, fe := range errs.FieldErrorsOf("name") {
				codes = append(codes, fe.Code)
			}
			assert.Equal(t, tt.expected, codes)
		})
	}
}

func TestContexts(t *testing.T) {
	r := configuration.NewRegistry(nil)
	r.Register(addressType, mustBuild(t, configuration.NewBuilder().
		Property("zip", rules.MustValidationRule(conditions.NotBlank(), "zip.required", "zip is required", rules.InContexts("shipping"))),
		addressType))
	addr := Address{City: faker.Address().City()}
	ctx := context.Background()

	errs, err := New(r).ValidateObject(ctx, addr)
	require.NoError(t, err)
	assert.False(t, errs.HasErrors())

	errs, err = New(r, WithContexts("shipping")).ValidateObject(ctx, addr)
	require.NoError(t, err)
	assert.Len(t, errs.FieldErrorsOf("zip"), 1)

	errs, err = New(r).ValidateObject(rules.WithContexts(ctx, "billing", "shipping"), addr)
	require.NoError(t, err)
	assert.Len(t, errs.FieldErrorsOf("zip"), 1)
}

func TestGlobalRuleReportsAtNestedPath(t *testing.T) {
	r := newRegistry(t)
	r.Register(addressType, mustBuild(t, configuration.NewBuilder().
		Valang(`{ zip : length(zip) = 5 : 'zip has five digits' : zip.length }`).
		Valang(`{ ? : city <> zip : 'city and zip mixed up' : mixed }`),
		addressType))

	p := adult()
	p.Addresses = []Address{{City: "x", Zip: "x"}}
	errs, err := New(r).ValidateObject(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, errs.FieldErrorsOf("addresses[0].zip"), 1)
	mixed := errs.FieldErrorsOf("addresses[0]")
	require.Len(t, mixed, 1)
	assert.Equal(t, "mixed", mixed[0].Code)
	assert.Empty(t, errs.GlobalErrors())

	errs, err = New(r).ValidateObject(context.Background(), Address{City: "x", Zip: "x"})
	require.NoError(t, err)
	require.Len(t, errs.GlobalErrors(), 1)
	assert.Equal(t, "mixed", errs.GlobalErrors()[0].Code)
}

type failingValidator struct{}

func (failingValidator) Supports(reflect.Type) bool { return true }

func (failingValidator) Validate(context.Context, any, *binding.Errors) error {
	return errors.New("credit bureau timeout")
}

func TestRuleEvaluationFailuresAreCollected(t *testing.T) {
	accountType := configuration.TypeFor[Account]()
	r := newRegistry(t)
	r.Register(accountType, mustBuild(t, configuration.NewBuilder().
		Property("owner", rules.MustValidationRule(conditions.NotBlank(), "owner.required", "owner is required")).
		Method("Explode", "explode", "").
		Custom(failingValidator{}), accountType))

	errs, err := New(r).ValidateObject(context.Background(), &Account{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrRuleEvaluation))
	assert.Contains(t, err.Error(), "ledger is gone")
	assert.Contains(t, err.Error(), "credit bureau timeout")
	assert.Len(t, errs.FieldErrorsOf("owner"), 1)
	assert.Empty(t, errs.NestedPath())
}

func TestTypeMismatchAbortsAndRestoresPath(t *testing.T) {
	r := newRegistry(t)
	r.Register(addressType, mustBuild(t, configuration.NewBuilder().
		Valang(`{ city : city > 3 : 'nonsense' }`), addressType))

	p := adult()
	p.Addresses = []Address{validAddress()}
	errs := binding.NewErrors("person")
	err := New(r).Validate(context.Background(), p, errs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrTypeMismatch))
	assert.Empty(t, errs.NestedPath())
}

func TestUnknownTypes(t *testing.T) {
	ctx := context.Background()
	errs, err := New(newRegistry(t)).ValidateObject(ctx, &Unconfigured{})
	require.NoError(t, err)
	assert.False(t, errs.HasErrors())

	_, err = New(newRegistry(t), WithStrict(true)).ValidateObject(ctx, &Unconfigured{})
	assert.True(t, errors.Is(err, faults.ErrConfiguration))

	_, err = New(newRegistry(t), WithStrict(true)).ValidateObject(ctx, adult())
	assert.NoError(t, err)

	errs, err = New(newRegistry(t)).ValidateObject(ctx, nil)
	require.NoError(t, err)
	assert.False(t, errs.HasErrors())
}

func TestUnknownFunctionFailsConfiguration(t *testing.T) {
	_, err := configuration.NewBuilder().
		Valang(`{ name : bogusFunc(name) == 'x' : 'err' }`).
		BuildFor(personType)
	require.Error(t, err)

	var resolution *faults.FunctionResolutionError
	require.True(t, errors.As(err, &resolution))
	assert.Equal(t, "bogusFunc", resolution.Name)
	assert.Equal(t, 1, resolution.Line)
	assert.Equal(t, 10, resolution.Column)
}

func TestConcurrentValidations(t *testing.T) {
	v := New(newRegistry(t))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := adult()
			p.Addresses = []Address{validAddress(), {}}
			if i%2 == 0 {
				p.Age = 80
			}
			errs, err := v.ValidateObject(context.Background(), p)
			assert.NoError(t, err)
			assert.Len(t, errs.FieldErrorsOf("addresses[1].city"), 1)
			assert.Equal(t, i%2 == 0, len(errs.FieldErrorsOf("age")) == 1)
		}(i)
	}
	wg.Wait()
}

func TestBeanValidatorAsCustomValidator(t *testing.T) {
	accountType := configuration.TypeFor[Account]()
	innerRegistry := configuration.NewRegistry(nil)
	innerRegistry.Register(accountType, mustBuild(t, configuration.NewBuilder().
		Property("owner", rules.MustValidationRule(conditions.NotBlank(), "owner.required", "owner is required")),
		accountType))
	inner := New(innerRegistry)
	assert.True(t, inner.Supports(configuration.TypeFor[*Account]()))
	assert.False(t, inner.Supports(personType))

	outer := newRegistry(t)
	outer.Register(accountType, mustBuild(t, configuration.NewBuilder().Custom(inner), accountType))
	errs, err := New(outer).ValidateObject(context.Background(), &Account{})
	require.NoError(t, err)
	assert.Len(t, errs.FieldErrorsOf("owner"), 1)
}

func TestValangValidator(t *testing.T) {
	v, err := NewValangValidator(`
		{ name : ? is not blank : 'name is required' : required }
		{ age : ? >= 18 : 'too young' : age.min : ?, 18 }
		{ ? : length(addresses) > 0 : 'no address' : addresses.missing }
	`, personType)
	require.NoError(t, err)
	assert.Len(t, v.Rules(), 3)
	assert.True(t, v.Supports(configuration.TypeFor[*Person]()))
	assert.False(t, v.Supports(addressType))

	errs := binding.NewErrors("person")
	require.NoError(t, v.Validate(context.Background(), &Person{Age: 12}, errs))
	assert.Equal(t, 3, errs.ErrorCount())
	age := errs.FieldErrorsOf("age")
	require.Len(t, age, 1)
	require.Len(t, age[0].Args, 2)
	assert.Equal(t, 12, age[0].Args[0])
	require.Len(t, errs.GlobalErrors(), 1)
	assert.Equal(t, "addresses.missing", errs.GlobalErrors()[0].Code)

	_, err = NewValangValidator(`{ name : ? : }`, nil)
	assert.True(t, errors.Is(err, faults.ErrParse))
}
