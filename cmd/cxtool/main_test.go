package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/service"
	"github.com/mwsobol/SORCER-sub002/storage"
	"github.com/mwsobol/SORCER-sub002/util/testutil"
)

var arithmeticDoc = `
name: arithmetic
modeling: true
entries:
  - path: arg/x1
    value: 10
    dir: in
  - path: arg/x2
    value: 32
    dir: in
  - path: result/y
    eval:
      interpreter: goja
      source: return _.get("arg/x1") + _.get("arg/x2");
    dir: out
returnPath:
  path: result/y
  direction: out
`

// fixture writes a bolt config and the arithmetic document.
func fixture(t *testing.T) (configFile, docFile string) {
	dir := t.TempDir()
	configFile = filepath.Join(dir, "cxtool.yaml")
	docFile = filepath.Join(dir, "arithmetic.yaml")
	conf := "store:\n  kind: bolt\n  path: " + filepath.Join(dir, "contexts.db") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(configFile, []byte(conf), 0644))
	require.NoError(t, os.WriteFile(docFile, []byte(arithmeticDoc), 0644))
	return configFile, docFile
}

func run(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGet(t *testing.T) {
	conf, doc := fixture(t)

	out, err := run(t, "-c", conf, "get", doc, "result/y")
	require.NoError(t, err)
	assert.Equal(t, "42", strings.TrimSpace(out))

	out, err = run(t, "-c", conf, "get", doc, "result/y", "arg/x1=20")
	require.NoError(t, err)
	assert.Equal(t, "52", strings.TrimSpace(out))

	_, err = run(t, "-c", conf, "get", doc, "result/y", "nopath")
	assert.Error(t, err)
}

func TestShowAndMarked(t *testing.T) {
	conf, doc := fixture(t)

	out, err := run(t, "-c", conf, "show", doc)
	require.NoError(t, err)
	c, err := core.DecodeContext([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "arithmetic", c.Name())
	assert.Equal(t, []string{"arg/x1", "arg/x2"}, c.InPaths())
	want := testutil.Flatten(`{"arg":{"x1":10,"x2":32}}`)
	for _, p := range testutil.SortedKeys(want) {
		v, err := c.GetValue(p)
		require.NoError(t, err)
		assert.Equal(t, want[p], v, p)
	}

	out, err = run(t, "-c", conf, "marked", doc, "dir|in")
	require.NoError(t, err)
	var vals map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &vals))
	assert.Equal(t, map[string]interface{}{"arg/x1": 10.0, "arg/x2": 32.0}, vals)
}

func TestMatch(t *testing.T) {
	conf, doc := fixture(t)

	out, err := run(t, "-c", conf, "match", doc, `{"arg/x1":"?x","result/y":"?y"}`)
	require.NoError(t, err)
	var bss []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &bss))
	assert.Equal(t, []map[string]interface{}{{"?x": 10.0, "?y": 42.0}}, bss)

	out, err = run(t, "-c", conf, "match", "-b", `{"?x":11}`, doc, `{"arg/x1":"?x"}`)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = run(t, "-c", conf, "match", doc, `[1`)
	assert.Error(t, err)
}

func TestRenderers(t *testing.T) {
	conf, doc := fixture(t)

	out, err := run(t, "-c", conf, "html", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "arg/x1")

	out, err = run(t, "-c", conf, "dot", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	out, err = run(t, "-c", conf, "mermaid", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "graph")

	out, err = run(t, "-c", conf, "analyze", "--strict", doc)
	require.NoError(t, err)
	assert.Contains(t, out, `"Evaluations"`)
}

func TestStore(t *testing.T) {
	conf, doc := fixture(t)

	_, err := run(t, "-c", conf, "save", doc)
	require.NoError(t, err)
	_, err = run(t, "-c", conf, "save", doc, "copy")
	require.NoError(t, err)

	out, err := run(t, "-c", conf, "ls")
	require.NoError(t, err)
	assert.Equal(t, "arithmetic\ncopy\n", out)

	out, err = run(t, "-c", conf, "load", "copy")
	require.NoError(t, err)
	assert.Contains(t, out, `"arg/x1"`)

	_, err = run(t, "-c", conf, "rm", "copy")
	require.NoError(t, err)
	_, err = run(t, "-c", conf, "load", "copy")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = run(t, "-c", conf, "rm", "copy")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLinkToStored(t *testing.T) {
	conf, doc := fixture(t)
	_, err := run(t, "-c", conf, "save", doc)
	require.NoError(t, err)

	linking := filepath.Join(filepath.Dir(doc), "linking.yaml")
	require.NoError(t, os.WriteFile(linking, []byte(`
name: linking
entries:
  - path: in
    link:
      context: arithmetic
      offset: arg
`), 0644))

	out, err := run(t, "-c", conf, "get", linking, "in/arg/x2")
	require.NoError(t, err)
	assert.Equal(t, "32", strings.TrimSpace(out))
}

func TestExertLocal(t *testing.T) {
	conf, doc := fixture(t)

	out, err := run(t, "-c", conf, "exert", doc, "-s", "multiply", "arg/x2=2")
	require.NoError(t, err)
	c, err := core.DecodeContext([]byte(out))
	require.NoError(t, err)
	y, err := c.GetValue("result/y")
	require.NoError(t, err)
	assert.Equal(t, 20.0, y)

	_, err = run(t, "-c", conf, "exert", doc, "-s", "divide", "arg/x2=0")
	assert.ErrorIs(t, err, errDivideByZero)

	_, err = run(t, "-c", conf, "exert", doc, "-s", "sqrt")
	assert.ErrorIs(t, err, exertion.ErrNoProvider)

	_, err = run(t, "-c", conf, "exert", doc)
	assert.Error(t, err)
}

func TestExertRemote(t *testing.T) {
	conf, doc := fixture(t)

	a := &app{}
	require.NoError(t, a.init())
	ts := httptest.NewServer(service.NewServer(storage.NewMemory(), a.localExerter()))
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	out, err := run(t, "-c", conf, "exert", doc, "-s", "average", "--url", url)
	require.NoError(t, err)
	c, err := core.DecodeContext([]byte(out))
	require.NoError(t, err)
	y, err := c.GetValue("result/y")
	require.NoError(t, err)
	assert.Equal(t, 21.0, y)
}

func TestArithmetic(t *testing.T) {
	ex := exertion.NewLocalExerter()
	registerArithmetic(ex)

	for selector, want := range map[string]float64{
		"add":      12,
		"subtract": 4,
		"multiply": 32,
		"divide":   2,
		"average":  6,
	} {
		c := core.NewServiceContext(selector)
		require.NoError(t, c.PutInValue("a", 8.0))
		require.NoError(t, c.PutInValue("b", 4.0))
		_, err := ex.Exert(context.Background(), exertion.NewTask(selector, c, exertion.Sig(selector, ArithmeticType)))
		require.NoError(t, err, selector)
		v, err := c.GetValue(DefaultResultPath)
		require.NoError(t, err)
		assert.Equal(t, want, v, selector)
		assert.Equal(t, []string{DefaultResultPath}, c.OutPaths())
	}

	c := core.NewServiceContext("bad")
	require.NoError(t, c.PutInValue("a", "eight"))
	_, err := ex.Exert(context.Background(), exertion.NewTask("bad", c, exertion.Sig("add", ArithmeticType)))
	assert.Error(t, err)

	c = core.NewServiceContext("empty")
	_, err = ex.Exert(context.Background(), exertion.NewTask("empty", c, exertion.Sig("add", ArithmeticType)))
	assert.Error(t, err)
}

func TestParseEntries(t *testing.T) {
	args, err := parseEntries([]string{"a/b=1", "c=hello", "d={\"x\":true}"})
	require.NoError(t, err)
	assert.Equal(t, []core.Arg{
		core.Entry{Path: "a/b", Value: 1.0},
		core.Entry{Path: "c", Value: "hello"},
		core.Entry{Path: "d", Value: map[string]interface{}{"x": true}},
	}, args)

	_, err = parseEntries([]string{"=1"})
	assert.Error(t, err)
	_, err = parseEntries([]string{"nothing"})
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("store:\n  kind: floppy\n"), 0644))
	_, err := run(t, "-c", filename, "ls")
	assert.Error(t, err)
}
