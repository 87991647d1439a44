package attach

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/devtools/devtoolstest"
	"github.com/roelfdiedericks/chatpilot/internal/dom"
)

func testFile(t *testing.T) Attachment {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello attachment"), 0600))
	return Attachment{SourcePath: path}
}

func fastOptions() Options {
	return Options{
		Selectors: Selectors{
			Composer:  dom.Selectors{"form"},
			Chips:     dom.Selectors{".chip"},
			UserTurns: dom.Selectors{".user"},
		},
		VerifyTimeout: 80 * time.Millisecond,
		Stable:        10 * time.Millisecond,
		Interval:      5 * time.Millisecond,
		SentTimeout:   80 * time.Millisecond,
	}
}

// page models a composer whose acknowledgement depends on what happened.
type page struct {
	mu       sync.Mutex
	inputs   []dom.FileInput
	native   bool
	injected bool
	dropped  bool
	ackOn    func(p *page) bool
}

func (p *page) install(f *devtoolstest.Fake, name string) {
	f.OnSetFileInput = func(selector string, paths []string) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.native = true
		return nil
	}
	f.On(dom.NameMarkFileInput, func([]any) (any, error) { return p.inputs, nil })
	f.Return(dom.NameDispatch, true)
	f.On(dom.NameInjectFile, func([]any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.injected = true
		return dom.InjectResult{OK: true, Names: []string{name}}, nil
	})
	f.On(dom.NameDropFile, func([]any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.dropped = true
		return true, nil
	})
	f.On(dom.NameSnapshot, func([]any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		snap := dom.Snapshot{}
		if p.native || p.injected {
			snap.FileInputNames = []string{name}
		}
		if p.ackOn(p) {
			snap.ChipCount = 1
			snap.ChipTexts = []string{name}
		}
		return snap, nil
	})
}

func TestNativeAcknowledged(t *testing.T) {
	att := testFile(t)
	f := devtoolstest.New()
	p := &page{inputs: []dom.FileInput{{Index: 0, Multiple: true}}, ackOn: func(p *page) bool { return p.native }}
	p.install(f, "report.txt")

	err := New(fastOptions()).Upload(context.Background(), f, att)
	require.NoError(t, err)
	assert.Zero(t, f.Count(dom.NameInjectFile))
	require.Len(t, f.FileInputs, 1)
	for selector, paths := range f.FileInputs {
		assert.True(t, strings.HasPrefix(selector, `[data-chatpilot-upload="cp-`))
		assert.Equal(t, []string{att.SourcePath}, paths)
	}
}

func TestEscalatesToDataTransfer(t *testing.T) {
	att := testFile(t)
	f := devtoolstest.New()
	p := &page{inputs: []dom.FileInput{{Index: 0}}, ackOn: func(p *page) bool { return p.injected }}
	p.install(f, "report.txt")

	err := New(fastOptions()).Upload(context.Background(), f, att)
	require.NoError(t, err)
	assert.True(t, p.native)
	assert.Equal(t, 1, f.Count(dom.NameInjectFile))
	assert.Zero(t, f.Count(dom.NameDropFile))
}

func TestInputOnlyIsUnacknowledged(t *testing.T) {
	att := testFile(t)
	f := devtoolstest.New()
	p := &page{inputs: []dom.FileInput{{Index: 0}}, ackOn: func(*page) bool { return false }}
	p.install(f, "report.txt")

	err := New(fastOptions()).Upload(context.Background(), f, att)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnacknowledgedAttachment, apperr.KindOf(err))
	assert.True(t, p.dropped)
}

func TestDropNeedsOnlyUIAck(t *testing.T) {
	att := testFile(t)
	f := devtoolstest.New()
	p := &page{ackOn: func(p *page) bool { return p.dropped }}
	p.install(f, "report.txt")

	err := New(fastOptions()).Upload(context.Background(), f, att)
	require.NoError(t, err)
	assert.Empty(t, f.FileInputs)
}

func TestNothingAppliedIsUnsupported(t *testing.T) {
	att := testFile(t)
	f := devtoolstest.New()
	f.Return(dom.NameMarkFileInput, []dom.FileInput{})
	f.Return(dom.NameDropFile, false)

	err := New(fastOptions()).Upload(context.Background(), f, att)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnsupportedControl, apperr.KindOf(err))
}

func TestMissingFile(t *testing.T) {
	err := New(fastOptions()).Upload(context.Background(), devtoolstest.New(), Attachment{SourcePath: "/nonexistent/file.pdf"})
	assert.Equal(t, apperr.KindInvalidConfig, apperr.KindOf(err))
}

func TestRankInputs(t *testing.T) {
	inputs := []dom.FileInput{
		{Index: 0, Accept: "image/*"},
		{Index: 1, Accept: ".pdf,.txt"},
		{Index: 2, Multiple: true, Accept: "image/png"},
		{Index: 3, Multiple: true},
	}
	rankInputs(inputs)
	var order []int
	for _, in := range inputs {
		order = append(order, in.Index)
	}
	assert.Equal(t, []int{3, 2, 1, 0}, order)
}

func TestVerifySent(t *testing.T) {
	att := Attachment{SourcePath: "/tmp/quarterly-report-2024.pdf"}

	f := devtoolstest.New()
	f.Return(dom.NameTexts, []string{"old message", "quarterly-rep…4.pdf\nPDF\nsummarise this"})
	require.NoError(t, New(fastOptions()).VerifySent(context.Background(), f, []Attachment{att}))

	f = devtoolstest.New()
	f.Return(dom.NameTexts, []string{"summarise this"})
	err := New(fastOptions()).VerifySent(context.Background(), f, []Attachment{att})
	assert.Equal(t, apperr.KindUnacknowledgedAttachment, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "quarterly-report-2024.pdf")
}
