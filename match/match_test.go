package match

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/util/testutil"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		fact     string
		bindings Bindings
		want     []Bindings
		err      bool
	}{
		{"constant", `"a"`, `"a"`, nil, []Bindings{{}}, false},
		{"constant mismatch", `"a"`, `"b"`, nil, nil, false},
		{"number", `1`, `1.0`, nil, []Bindings{{}}, false},
		{"nil", `null`, `null`, nil, []Bindings{{}}, false},
		{"variable", `"?x"`, `3`, nil, []Bindings{{"?x": 3.0}}, false},
		{"bound variable", `"?x"`, `3`, Bindings{"?x": 4.0}, nil, false},
		{"anonymous", `{"a":"?"}`, `{"a":[1,2]}`, nil, []Bindings{{}}, false},
		{"map subset", `{"a":"?x"}`, `{"a":1,"b":2}`, nil, []Bindings{{"?x": 1.0}}, false},
		{"map missing", `{"a":"?x","c":1}`, `{"a":1,"b":2}`, nil, nil, false},
		{"optional", `{"a":"?x","c":"??y"}`, `{"a":1}`, nil, []Bindings{{"?x": 1.0}}, false},
		{"consistent", `{"a":"?x","b":"?x"}`, `{"a":1,"b":1}`, nil, []Bindings{{"?x": 1.0}}, false},
		{"inconsistent", `{"a":"?x","b":"?x"}`, `{"a":1,"b":2}`, nil, nil, false},
		{"property variable", `{"?k":1}`, `{"a":1}`, nil, []Bindings{{"?k": "a"}}, false},
		{"bad property variable", `{"?k":1,"b":2}`, `{"a":1}`, nil, nil, true},
		{"set", `[1,2]`, `[2,3,1]`, nil, []Bindings{{}}, false},
		{"set missing", `[1,4]`, `[2,3,1]`, nil, nil, false},
		{"set variable", `[1,"?x"]`, `[1,2,3]`, nil, []Bindings{{"?x": 2.0}, {"?x": 3.0}}, false},
		{"inequality", `"?<n"`, `3`, Bindings{"?<n": 10}, []Bindings{{"?<n": 10, "?n": 3.0}}, false},
		{"inequality fails", `"?<n"`, `30`, Bindings{"?<n": 10}, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bss, err := Match(testutil.Dwimjs(tc.pattern), testutil.Dwimjs(tc.fact), tc.bindings)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, bss)
		})
	}
}

func TestMatchBindingsUnmodified(t *testing.T) {
	bs := Bindings{"?y": 1.0}
	bss, err := Match(testutil.Dwimjs(`{"a":"?x"}`), testutil.Dwimjs(`{"a":2}`), bs)
	require.NoError(t, err)
	require.Len(t, bss, 1)
	assert.Equal(t, Bindings{"?x": 2.0, "?y": 1.0}, bss[0])
	assert.Equal(t, Bindings{"?y": 1.0}, bs)
}

func TestUnknownPatternType(t *testing.T) {
	_, err := Match(struct{}{}, 1, nil)
	var upt *UnknownPatternType
	require.ErrorAs(t, err, &upt)
}

// A message with no variables always matches itself, with no
// bindings.
func TestMatchSelf(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var gen func(d int) interface{}
	gen = func(d int) interface{} {
		n := 4
		if 0 < d {
			n = 6
		}
		switch r.Intn(n) {
		case 0:
			return nil
		case 1:
			return r.Intn(2) == 0
		case 2:
			return float64(r.Intn(10))
		case 3:
			return string(rune('a' + r.Intn(5)))
		case 4:
			xs := make([]interface{}, r.Intn(4))
			for i := range xs {
				xs[i] = gen(d - 1)
			}
			return xs
		default:
			m := make(map[string]interface{})
			for i := r.Intn(4); 0 < i; i-- {
				m[string(rune('a'+r.Intn(5)))] = gen(d - 1)
			}
			return m
		}
	}

	for i := 0; i < 500; i++ {
		x := gen(3)
		bss, err := Match(x, x, nil)
		require.NoError(t, err, testutil.JS(x))
		require.NotEmpty(t, bss, testutil.JS(x))
		for _, bs := range bss {
			assert.Empty(t, bs)
		}
	}
}

func TestContext(t *testing.T) {
	c := core.NewServiceContext("arith")
	require.NoError(t, c.PutValue("arg/x1", 20))
	require.NoError(t, c.PutValue("arg/x2", 80))
	require.NoError(t, c.PutValue("op", "add"))

	bss, err := Context(c, Template{
		"op":     "add",
		"arg/x1": "?x",
		"extra":  "??e",
	}, nil)
	require.NoError(t, err)
	require.Len(t, bss, 1)
	assert.Equal(t, 20.0, bss[0]["?x"])

	ok, err := Matches(c, Template{"op": "multiply"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Matches(c, Template{"missing": "?m"})
	require.NoError(t, err)
	assert.False(t, ok)
}
