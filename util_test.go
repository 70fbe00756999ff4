package idmap

import (
	"iter"
	"reflect"
	"testing"
)

func eq[T comparable](t testing.TB, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("** got %v, wanted %v", got, want)
	}
}

func deepEqual[T any](t testing.TB, got, want T) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("** got %v, wanted %v", got, want)
	}
}

func isnil(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("** unexpected error: %v", err)
	}
}

func isnonnil(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("** error expected, got nil")
	}
}

func mustPanic(t testing.TB, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("** panic expected")
		}
	}()
	f()
}

func collect[T any](seq iter.Seq[T]) []T {
	var items []T
	for item := range seq {
		items = append(items, item)
	}
	return items
}

type user struct {
	ID    int
	Email string
	Name  string
}

func (u *user) ItemKey() int { return u.ID }

type session struct {
	Token  string
	UserID int
}

func (s *session) ItemKey() string { return s.Token }

type linkKey struct {
	From, To int
}

type link struct {
	From, To int
	Weight   int
}

func (l *link) ItemKey() linkKey { return linkKey{l.From, l.To} }

type account struct {
	ID    int
	Email string
	Plan  string
}

func (a *account) Key1() int    { return a.ID }
func (a *account) Key2() string { return a.Email }

type device struct {
	ID     int
	Serial string
	Addr   string
	Name   string
}

func (d *device) Key1() int    { return d.ID }
func (d *device) Key2() string { return d.Serial }
func (d *device) Key3() string { return d.Addr }
