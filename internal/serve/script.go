package serve

// LiveReloadScript connects to /livereload. The first event is the baseline.
// Later events reload the page, or swap stylesheet hrefs when only CSS changed.
const LiveReloadScript = `(() => {
  if (window.__SITEPIPE_LR__) return;
  window.__SITEPIPE_LR__ = true;
  function swapStyles(hash) {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href, location.href);
      if (url.origin !== location.origin) return;
      url.searchParams.set('livereload', hash);
      const next = link.cloneNode();
      next.href = url.toString();
      next.onload = () => link.remove();
      link.after(next);
    });
  }
  function connect() {
    const es = new EventSource('/livereload');
    let current = null;
    let first = true;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (first) { current = p.hash; first = false; return; }
        if (!p.hash || p.hash === current) return;
        current = p.hash;
        if (p.css) { console.log('[sitepipe] stylesheet changed, swapping'); swapStyles(p.hash); return; }
        console.log('[sitepipe] change detected, reloading');
        location.reload();
      } catch (_) {}
    };
    es.onerror = () => { console.warn('[sitepipe] livereload error - retrying'); es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

const scriptTag = `<script async src="/livereload.js"></script>`
