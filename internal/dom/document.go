// Package dom abstracts the document a scan reads and the insertion
// notifications that drive rescans.
package dom

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/linkscout/internal/common"
	"golang.org/x/net/html"
)

// Document is a page whose links can be scanned
type Document interface {
	// Snapshot returns a parsed copy of the current tree and its base URL
	Snapshot(ctx context.Context) (*goquery.Document, *url.URL, error)
	// Watch calls onInsert whenever nodes are added anywhere in the tree
	Watch(onInsert func()) (Watch, error)
}

// Watch is a live insertion subscription
type Watch interface {
	Release() error
}

type noopWatch struct{}

func (noopWatch) Release() error { return nil }

// Static is an immutable document that never reports insertions
type Static struct {
	body []byte
	base *url.URL
}

// NewStatic wraps raw HTML
func NewStatic(body []byte, base *url.URL) *Static {
	return &Static{body: body, base: base}
}

// NewStaticFromReader reads r fully and wraps it
func NewStaticFromReader(r io.Reader, base *url.URL) (*Static, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, common.WrapError(err, "failed to read document")
	}
	return NewStatic(body, base), nil
}

func (s *Static) Snapshot(ctx context.Context) (*goquery.Document, *url.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.body))
	if err != nil {
		return nil, nil, common.WrapError(err, "failed to parse document")
	}
	doc.Url = s.base
	return doc, s.base, nil
}

func (s *Static) Watch(func()) (Watch, error) {
	return noopWatch{}, nil
}

// Mutable is an in-memory tree that can grow after load, the way a page does
// when scripts inject content.
type Mutable struct {
	base *url.URL

	mu       sync.Mutex
	root     *html.Node
	watchers map[int]func()
	nextID   int
}

// NewMutable parses body into a mutable tree
func NewMutable(body string, base *url.URL) (*Mutable, error) {
	root, err := html.Parse(bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, common.WrapError(err, "failed to parse document")
	}
	return &Mutable{
		base:     base,
		root:     root,
		watchers: make(map[int]func()),
	}, nil
}

// Append parses fragment and appends it to every element matching selector,
// then notifies watchers once.
func (m *Mutable) Append(selector, fragment string) error {
	m.mu.Lock()
	sel := goquery.NewDocumentFromNode(m.root).Find(selector)
	if sel.Length() == 0 {
		m.mu.Unlock()
		return common.WrapErrorf(common.ErrNotFound, "no element matches %q", selector)
	}
	sel.AppendHtml(fragment)
	callbacks := make([]func(), 0, len(m.watchers))
	for _, fn := range m.watchers {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (m *Mutable) Snapshot(ctx context.Context) (*goquery.Document, *url.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	m.mu.Lock()
	err := html.Render(&buf, m.root)
	m.mu.Unlock()
	if err != nil {
		return nil, nil, common.WrapError(err, "failed to render document")
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, nil, common.WrapError(err, "failed to parse document")
	}
	doc.Url = m.base
	return doc, m.base, nil
}

func (m *Mutable) Watch(onInsert func()) (Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = onInsert
	return &mutableWatch{doc: m, id: id}, nil
}

// Watchers returns the number of live subscriptions
func (m *Mutable) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

type mutableWatch struct {
	doc  *Mutable
	id   int
	once sync.Once
}

func (w *mutableWatch) Release() error {
	w.once.Do(func() {
		w.doc.mu.Lock()
		delete(w.doc.watchers, w.id)
		w.doc.mu.Unlock()
	})
	return nil
}
