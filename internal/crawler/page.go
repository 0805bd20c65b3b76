package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/go-rod/rod"
	"github.com/rs/zerolog"
	"github.com/ysmood/gson"
)

// bindingPrefix names the functions exposed to the page for insertion callbacks
const bindingPrefix = "__linkscoutInsert"

// observeJS installs a MutationObserver that calls the named binding whenever
// nodes are added anywhere in the document
const observeJS = `(name) => {
	window.__linkscoutObservers = window.__linkscoutObservers || {};
	if (window.__linkscoutObservers[name]) return;
	const observer = new MutationObserver((records) => {
		if (records.some((r) => r.addedNodes.length > 0)) {
			window[name]({});
		}
	});
	observer.observe(document.documentElement || document, { childList: true, subtree: true });
	window.__linkscoutObservers[name] = observer;
}`

// disconnectJS removes the observer installed by observeJS
const disconnectJS = `(name) => {
	const observers = window.__linkscoutObservers || {};
	if (observers[name]) {
		observers[name].disconnect();
		delete observers[name];
	}
}`

var bindingSeq atomic.Int64

// Page is a rendered browser tab used as a live document
type Page struct {
	page   *rod.Page
	logger zerolog.Logger
}

func newPage(page *rod.Page, logger zerolog.Logger) *Page {
	return &Page{
		page:   page,
		logger: logger.With().Str("component", "Page").Logger(),
	}
}

// Snapshot reads the current DOM, including nodes added by scripts
func (p *Page) Snapshot(ctx context.Context) (*goquery.Document, *url.URL, error) {
	page := p.page.Context(ctx)

	html, err := page.HTML()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get page HTML: %w", err)
	}

	var base *url.URL
	if info, err := page.Info(); err == nil {
		base, _ = url.Parse(info.URL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	doc.Url = base
	return doc, base, nil
}

// Watch exposes a binding to the page and observes node insertions with it
func (p *Page) Watch(onInsert func()) (dom.Watch, error) {
	name := fmt.Sprintf("%s%d", bindingPrefix, bindingSeq.Add(1))

	stop, err := p.page.Expose(name, func(gson.JSON) (interface{}, error) {
		onInsert()
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expose insertion binding: %w", err)
	}

	if _, err := p.page.Eval(observeJS, name); err != nil {
		_ = stop()
		return nil, fmt.Errorf("failed to install mutation observer: %w", err)
	}

	p.logger.Debug().Str("binding", name).Msg("Mutation observer installed")
	return &pageWatch{page: p, name: name, stop: stop}, nil
}

// Close closes the tab
func (p *Page) Close() error {
	return p.page.Close()
}

type pageWatch struct {
	page *Page
	name string
	stop func() error
	once sync.Once
	err  error
}

func (w *pageWatch) Release() error {
	w.once.Do(func() {
		if _, err := w.page.page.Eval(disconnectJS, w.name); err != nil {
			w.page.logger.Debug().Err(err).Msg("Failed to disconnect mutation observer")
		}
		w.err = w.stop()
	})
	return w.err
}
