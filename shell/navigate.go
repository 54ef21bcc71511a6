package shell

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Navigate loads ref in place when AJAX navigation is on and ref is on the
// upstream's origin. Anything else, and any failure, asks for a full reload.
func (s *Shell) Navigate(ctx context.Context, ref string) Page {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return Page{URL: ref, Anchor: ref[i+1:]}
	}
	s.Analytics.Track(ctx, "navigation", map[string]any{"href": ref})

	if !s.Config().EnableAjaxNavigation {
		return Page{URL: ref, FullReload: true}
	}
	target, err := s.remote.Resolve(ref)
	if err != nil || !s.sameOrigin(target) {
		return Page{URL: ref, FullReload: true}
	}
	body, err := s.remote.FetchPage(ctx, target)
	if err != nil {
		s.log.Warn("navigation failed", zap.String("url", target), zap.Error(err))
		return Page{URL: ref, FullReload: true}
	}
	title, main, err := extractPage(body)
	if err != nil {
		s.log.Warn("navigation page unusable", zap.String("url", target), zap.Error(err))
		return Page{URL: ref, FullReload: true}
	}

	s.Analytics.TrackPageView(ctx, ref, title)
	s.emit(EventNavigated, map[string]any{"url": ref})
	return Page{URL: ref, Title: title, Main: main}
}

func (s *Shell) sameOrigin(target string) bool {
	base, err := url.Parse(s.remote.BaseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == base.Scheme && u.Host == base.Host
}
