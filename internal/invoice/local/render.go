package local

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// htmlRenderer prints local HTML files to PDF through headless Chrome.
// The browser is launched lazily on first use and reused afterwards.
type htmlRenderer struct {
	mu         sync.Mutex
	browserBin string
	browser    *rod.Browser
}

func newHTMLRenderer(browserBin string) *htmlRenderer {
	return &htmlRenderer{browserBin: browserBin}
}

func (r *htmlRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	if r.browserBin != "" {
		// Pre-installed browser, typical for containerized deployments.
		l = l.Bin(r.browserBin).NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	r.browser = browser
	return browser, nil
}

// Close shuts the browser down if it was started.
func (r *htmlRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

// RenderFile opens the HTML file and prints it to PDF bytes, A4 with
// moderate margins.
func (r *htmlRenderer) RenderFile(ctx context.Context, htmlPath string, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + abs})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		// A4 in inches.
		PaperWidth:      floatPtr(8.27),
		PaperHeight:     floatPtr(11.69),
		MarginTop:       floatPtr(0.6),
		MarginBottom:    floatPtr(0.6),
		MarginLeft:      floatPtr(0.6),
		MarginRight:     floatPtr(0.6),
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return pdf, nil
}

func floatPtr(f float64) *float64 { return &f }
