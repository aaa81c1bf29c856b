package expression

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/icrowley/fake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-valang-go/valang/beans"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

type Address struct {
	City string
}

type Customer struct {
	Name     string
	Email    string
	Age      int
	Balance  decimal.Decimal
	Address  *Address
	Children []Customer
	Joined   time.Time
}

func prop(path string) PropertyNode {
	return Property(beans.MustParsePath(path))
}

func lookup(t *testing.T, name string, args ...Function) Callable {
	t.Helper()
	fn, err := Functions{}.Lookup(name, args)
	require.NoError(t, err)
	require.NotNil(t, fn, name)
	return fn
}

func TestCheckComparisons(t *testing.T) {
	ctx := context.Background()
	c := &Customer{Name: fake.FirstName(), Age: 40, Balance: decimal.RequireFromString("10.10")}
	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"range", And(GreaterThanOrEqual(prop("age"), Literal(18)), LessThanOrEqual(prop("age"), Literal(65))), true},
		{"between", Between(prop("age"), Literal(50), Literal(60)), false},
		{"or", Or(Equal(prop("age"), Literal(1)), Equal(prop("age"), Literal(40))), true},
		{"not", Not(Equal(prop("age"), Literal(40))), false},
		{"decimal sum", Equal(Add(prop("balance"), Literal(0.2)), Literal(decimal.RequireFromString("10.3"))), true},
		{"in", In(prop("age"), Literal(30), Literal(40)), true},
		{"null address", IsNull(prop("address.city")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(ctx, tt.pred, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAndShortCircuits(t *testing.T) {
	calls := 0
	counting := CallableFunc(func(context.Context, []any) (any, error) {
		calls++
		return true, nil
	})
	pred := And(IsNotNull(prop("address")), Test(Call("probe", counting)))
	got, err := Check(context.Background(), pred, &Customer{})
	require.NoError(t, err)
	assert.False(t, got)
	assert.Zero(t, calls)
}

func TestNullIntermediatePath(t *testing.T) {
	c := &Customer{Children: []Customer{{}}}
	for _, path := range []string{"address.city", "children[0].address.city"} {
		got, err := Evaluate(context.Background(), prop(path), c)
		require.NoError(t, err, path)
		assert.Nil(t, got, path)
	}
}

func TestThisRefersToTarget(t *testing.T) {
	got, err := Check(context.Background(), GreaterThan(Property(nil), Literal(3)), 5)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestArithmetic(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		fn   Function
		want string
	}{
		{"add", Add(Literal(1), Literal(2)), "3"},
		{"sub", Sub(Literal(1), Literal(2.5)), "-1.5"},
		{"mul", Mul(Literal(0.1), Literal(3)), "0.3"},
		{"div", Div(Literal(7), Literal(2)), "3.5"},
		{"mod", Mod(Literal(7), Literal(4)), "3"},
		{"negate", Negate(Literal(4)), "-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(ctx, tt.fn, nil)
			require.NoError(t, err)
			require.IsType(t, decimal.Decimal{}, got)
			assert.Equal(t, tt.want, got.(decimal.Decimal).String())
		})
	}

	_, err := Evaluate(ctx, Add(Literal("a"), Literal(1)), nil)
	assert.True(t, errors.Is(err, faults.ErrArgumentType))

	_, err = Evaluate(ctx, Div(Literal(1), Literal(0)), nil)
	assert.True(t, errors.Is(err, faults.ErrArgumentType))

	got, err := Evaluate(ctx, Add(Literal(nil), Literal(1)), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderingTypeMismatchIsFatal(t *testing.T) {
	_, err := Check(context.Background(), LessThan(prop("name"), Literal(3)), &Customer{Name: "x"})
	assert.True(t, errors.Is(err, faults.ErrTypeMismatch))
}

func TestBuiltins(t *testing.T) {
	ctx := WithRoleChecker(context.Background(), Roles{"admin"})
	email := fake.EmailAddress()
	c := &Customer{Name: "Ada", Email: email, Children: []Customer{{}, {}}}
	tests := []struct {
		name string
		fn   Function
		want any
	}{
		{"length of string", Call("length", lookup(t, "length", prop("name")), prop("name")), 3},
		{"size of slice", Call("size", lookup(t, "size", prop("children")), prop("children")), 2},
		{"upper", Call("upper", lookup(t, "upper", prop("name")), prop("name")), "ADA"},
		{"lower", Call("lower", lookup(t, "lower", prop("name")), prop("name")), "ada"},
		{"not", Call("!", lookup(t, "!", Literal(true)), Literal(true)), false},
		{"match", Call("match", lookup(t, "match", Literal("A.a"), prop("name")), Literal("A.a"), prop("name")), true},
		{"match is anchored", Call("match", lookup(t, "match", Literal("d"), prop("name")), Literal("d"), prop("name")), false},
		{"in role", Call("inRole", lookup(t, "inRole", Literal("admin")), Literal("admin")), true},
		{"not in role", Call("inRole", lookup(t, "inRole", Literal("root")), Literal("root")), false},
		{"email", Call("email", lookup(t, "email", prop("email")), prop("email")), true},
		{"resolve", Call("resolve", lookup(t, "resolve", Literal("x.y")), Literal("x.y")), MessageCode{Code: "x.y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(ctx, tt.fn, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltinArity(t *testing.T) {
	_, err := Functions{}.Lookup("upper", nil)
	assert.True(t, errors.Is(err, faults.ErrArgumentType))
	assert.EqualError(t, err, "upper: expects 1..1 arguments, got 0")
}

func TestResolutionOrder(t *testing.T) {
	custom := FunctionResolverFunc(func(name string, args []Function) (Callable, bool, error) {
		if name != "upper" {
			return nil, false, nil
		}
		return CallableFunc(func(context.Context, []any) (any, error) { return "custom", nil }), true, nil
	})
	registry := Beans{
		"upper":  func(s string) string { return "bean" },
		"double": func(n int) int { return n * 2 },
		"config": struct{}{},
	}
	ctx := context.Background()

	fn, err := Functions{Custom: custom, Beans: registry}.Lookup("upper", []Function{Literal("a")})
	require.NoError(t, err)
	got, err := fn.Call(ctx, []any{"a"})
	require.NoError(t, err)
	assert.Equal(t, "custom", got)

	fn, err = Functions{Beans: registry}.Lookup("upper", []Function{Literal("a")})
	require.NoError(t, err)
	got, err = fn.Call(ctx, []any{"a"})
	require.NoError(t, err)
	assert.Equal(t, "bean", got)

	fn, err = Functions{Beans: registry}.Lookup("double", []Function{Literal(2)})
	require.NoError(t, err)
	got, err = fn.Call(ctx, []any{decimal.NewFromInt(21)})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	fn, err = Functions{Beans: registry}.Lookup("config", nil)
	require.NoError(t, err)
	assert.Nil(t, fn)

	fn, err = Functions{}.Lookup("bogusFunc", nil)
	require.NoError(t, err)
	assert.Nil(t, fn)
}

func TestDateParserPicksLongestPattern(t *testing.T) {
	p := NewDateParser().WithLocation(time.UTC)
	got, err := p.Parse("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)

	got, err = p.Parse("2024-01-31 10:20:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 10, 20, 30, 0, time.UTC), got)

	require.NoError(t, p.Register(`\d{2}\.\d{2}\.\d{4}`, "02.01.2006"))
	got, err = p.Parse("31.01.2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)

	require.NoError(t, p.Register(`\d{2}\.\d{2}\.\d{4}`, "01.02.2006"))
	got, err = p.Parse("01.02.2024")
	require.NoError(t, err)
	assert.Equal(t, time.February, got.Month(), "first registration wins a tie")

	_, err = p.Parse("yesterday")
	assert.True(t, errors.Is(err, faults.ErrArgumentType))
}

func TestRelativeDates(t *testing.T) {
	now := time.Date(2024, 5, 15, 13, 45, 10, 0, time.UTC) // Wednesday
	tests := []struct {
		text string
		want time.Time
	}{
		{"T", now},
		{"T<d", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)},
		{"T>d", time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)},
		{"T<w", time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)},
		{"T<M", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"T<y", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"T+1d", now.AddDate(0, 0, 1)},
		{"T-2H", now.Add(-2 * time.Hour)},
		{"T<d-1y", time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC)},
		{"T+30m<H", time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseRelative(tt.text, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
	_, err := ParseRelative("T+d", now)
	assert.Error(t, err)
}

func TestDateLiteralIsReparsedOnEachEvaluation(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := NewDateParser().WithLocation(time.UTC).WithClock(func() time.Time { return clock })
	node := Date("T")

	first, err := Evaluate(context.Background(), node, nil, WithDateParser(dates))
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	second, err := Evaluate(context.Background(), node, nil, WithDateParser(dates))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, second.(time.Time).Sub(first.(time.Time)))
}

func TestRender(t *testing.T) {
	pred := Or(
		And(GreaterThanOrEqual(prop("age"), Literal(18)), Between(prop("age"), Literal(1), Negate(Literal(2)))),
		Not(In(Call("upper", nil, prop("name")), Literal("A"), Literal("it's"))),
		Compare(prop("addresses[1].city"), "HAS_TEXT"),
		LessThan(Date("2024-01-31"), prop("joined")),
	)
	want := "(((((age >= 18) AND (age BETWEEN 1 AND -2)) OR NOT (upper(name) IN 'A', \"it's\")) OR (addresses[1].city HAS TEXT)) OR ([2024-01-31] < joined))"
	assert.Equal(t, want, Render(pred))
}
