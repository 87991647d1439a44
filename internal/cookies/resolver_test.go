package cookies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	"github.com/roelfdiedericks/chatpilot/internal/devtools/devtoolstest"
)

type fakeStore struct {
	cands []Candidate
	err   error
	reads int
}

func (s *fakeStore) Read(ctx context.Context, spec Spec) ([]Candidate, error) {
	s.reads++
	return s.cands, s.err
}

type openerSpy struct {
	fake     *devtoolstest.Fake
	opened   int
	released int
}

func (o *openerSpy) open(ctx context.Context) (devtools.Target, func(), error) {
	o.opened++
	return o.fake, func() { o.released++ }, nil
}

func TestInlineShortCircuits(t *testing.T) {
	store := &fakeStore{}
	spy := &openerSpy{fake: devtoolstest.New()}
	r := NewResolver(Options{
		Inline: Map{"session": "s", "device": "d"},
		Manual: true,
		Store:  store,
		Opener: spy.open,
	})

	m, src, err := r.Resolve(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, SourceInline, src)
	assert.Equal(t, Map{"session": "s", "device": "d"}, m)
	assert.Zero(t, store.reads)
	assert.Zero(t, spy.opened)
}

func TestNativeStoreMergedUnderInline(t *testing.T) {
	store := &fakeStore{cands: []Candidate{
		{Name: "session", Value: "stored", Domain: ".chatgpt.com", Path: "/"},
		{Name: "device", Value: "stored-device", Domain: ".chatgpt.com", Path: "/"},
	}}
	r := NewResolver(Options{Inline: Map{"session": "inline"}, Store: store})

	m, src, err := r.Resolve(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, SourceNative, src)
	assert.Equal(t, "inline", m["session"])
	assert.Equal(t, "stored-device", m["device"])
}

func TestNativeStoreInsufficient(t *testing.T) {
	store := &fakeStore{err: errors.New("locked")}
	r := NewResolver(Options{Store: store})

	_, _, err := r.Resolve(context.Background(), testSpec)
	require.Error(t, err)
	assert.Equal(t, apperr.KindMissingAuthCookies, apperr.KindOf(err))
	assert.NotEmpty(t, apperr.RemedyOf(err))
}

func TestNothingConfigured(t *testing.T) {
	_, _, err := NewResolver(Options{}).Resolve(context.Background(), testSpec)
	assert.True(t, apperr.Is(err, apperr.KindMissingAuthCookies))
}

func TestInteractiveCapturesCookies(t *testing.T) {
	fake := devtoolstest.New()
	polls := 0
	fake.OnNavigate = func(url string) error { return nil }
	spy := &openerSpy{fake: fake}

	r := NewResolver(Options{
		Inline:         Map{"device": "inline-device"},
		Manual:         true,
		Opener:         spy.open,
		SignInInterval: 5 * time.Millisecond,
		SignInTimeout:  2 * time.Second,
		Store: storeFunc(func() []Candidate {
			polls++
			return nil
		}),
	})

	go func() {
		time.Sleep(30 * time.Millisecond)
		fake.SetJar(&proto.NetworkCookie{Name: "session", Value: "live", Domain: ".chatgpt.com", Path: "/"},
			&proto.NetworkCookie{Name: "ignored", Value: "x", Domain: ".chatgpt.com", Path: "/"})
	}()

	m, src, err := r.Resolve(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, SourceInteractive, src)
	assert.Equal(t, Map{"session": "live", "device": "inline-device"}, m)
	assert.Equal(t, []string{testSpec.SignInURL}, fake.Navigations)
	assert.Equal(t, 1, spy.released)
	assert.Zero(t, polls)
}

func TestInteractiveTimesOut(t *testing.T) {
	spy := &openerSpy{fake: devtoolstest.New()}
	r := NewResolver(Options{
		Opener:         spy.open,
		SignInInterval: 5 * time.Millisecond,
		SignInTimeout:  30 * time.Millisecond,
	})

	_, _, err := r.Resolve(context.Background(), testSpec)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSignInTimeout, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "session")
	assert.Equal(t, 1, spy.released)
}

type storeFunc func() []Candidate

func (f storeFunc) Read(ctx context.Context, spec Spec) ([]Candidate, error) {
	return f(), nil
}
