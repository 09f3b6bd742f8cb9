package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/storage"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ storage.ContextManagement = &Storage{}
}

func open(t testing.TB) (*Storage, context.Context) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "storage.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(ctx); err != nil {
			t.Fatal(err)
		}
	})
	return s, ctx
}

func TestBasics(t *testing.T) {
	s, ctx := open(t)

	simpsons := core.NewServiceContext("simpsons")
	simpsons.PutInValue("homer/likes", "donuts")
	simpsons.PutValue("bart/likes", "skateboards")
	if err := s.SaveContext(ctx, "simpsons", simpsons); err != nil {
		t.Fatal(err)
	}

	check := func(who, what string) {
		got, err := s.GetContext(ctx, "simpsons")
		if err != nil {
			t.Fatal(err)
		}
		likes, err := got.GetValue(who + "/likes")
		if err != nil {
			t.Fatal(err)
		}
		if what == "" {
			if got.Contains(who + "/likes") {
				t.Fatalf("%s still likes %v", who, likes)
			}
			return
		}
		if likes != what {
			t.Fatalf(`"%s" != "%s"`, likes, what)
		}
	}

	check("homer", "donuts")
	check("bart", "skateboards")

	simpsons.PutValue("homer/likes", "beer")
	simpsons.Remove("bart/likes")
	if err := s.SaveContext(ctx, "simpsons", simpsons); err != nil {
		t.Fatal(err)
	}
	check("homer", "beer")
	check("bart", "")

	got, err := s.GetContext(ctx, "simpsons")
	if err != nil {
		t.Fatal(err)
	}
	if ps := got.InPaths(); len(ps) != 1 || ps[0] != "homer/likes" {
		t.Fatal(ps)
	}

	if err := s.DeleteContext(ctx, "simpsons"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetContext(ctx, "simpsons"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal(err)
	}
	if err := s.DeleteContext(ctx, "simpsons"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal(err)
	}
}

func TestLinksAcrossStoredContexts(t *testing.T) {
	s, ctx := open(t)

	args := core.NewServiceContext("args")
	args.PutValue("arg/x1", 20.0)
	if err := s.SaveContext(ctx, "args", args); err != nil {
		t.Fatal(err)
	}

	c := core.NewServiceContext("task")
	c.PutLink("in", args, "arg")
	if err := storage.SaveMethodContext(ctx, s, "Arithmetic", "add", c); err != nil {
		t.Fatal(err)
	}

	names, err := s.ContextNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Arithmetic#add" || names[1] != "args" {
		t.Fatal(names)
	}

	got, err := storage.GetMethodContext(ctx, s, "Arithmetic", "add")
	if err != nil {
		t.Fatal(err)
	}
	// The link is resolved by name through the storage.
	x, err := got.GetValue("in/arg/x1")
	if err != nil {
		t.Fatal(err)
	}
	if x != 20.0 {
		t.Fatal(x)
	}
}

// BenchmarkBolt is just for fun.  Bolt is slow.
func BenchmarkBolt(b *testing.B) {
	s, ctx := open(b)
	c := core.NewServiceContext("bench")
	c.PutValue("likes", "tacos")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.SaveContext(ctx, "bench", c); err != nil {
			b.Fatal(err)
		}
	}
}

func TestNamespaceBuckets(t *testing.T) {
	s, ctx := open(t)

	c := core.NewServiceContext("c")
	c.PutValue("x", 1.0)
	if err := s.SaveContext(ctx, "plain", c); err != nil {
		t.Fatal(err)
	}
	if err := storage.SaveMethodContext(ctx, s, "Arithmetic", "add", c); err != nil {
		t.Fatal(err)
	}
	if err := storage.SaveProviderContext(ctx, s, "calc", "Arithmetic", "add", c); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"contexts":  "plain",
		"methods":   "Arithmetic#add",
		"providers": "calc@Arithmetic#add",
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		for bucket, name := range want {
			b := tx.Bucket([]byte(bucket))
			if n := b.Stats().KeyN; n != 1 {
				t.Fatalf("%s has %d keys", bucket, n)
			}
			if b.Get([]byte(name)) == nil {
				t.Fatalf("%s not in %s", name, bucket)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := storage.DeleteProviderContext(ctx, s, "calc", "Arithmetic", "add"); err != nil {
		t.Fatal(err)
	}
	names, err := s.ContextNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Arithmetic#add" || names[1] != "plain" {
		t.Fatal(names)
	}
}
