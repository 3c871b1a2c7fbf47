package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// closingTagRe finds the first </body> or </html>, case-insensitively.
var closingTagRe = regexp.MustCompile(`(?i)</(body|html)>`)

// liveReloadScript polls /__livereload and reloads the page once the change
// sequence moves.
const liveReloadScript = `<script>
(function() {
  let lastSeq = null;
  async function poll() {
    try {
      const resp = await fetch('/__livereload', { cache: 'no-store' });
      const data = await resp.json();
      if (lastSeq === null) {
        lastSeq = data.seq;
      } else if (data.seq !== lastSeq) {
        console.log('[JazelKit] change detected, reloading');
        location.reload();
        return;
      }
    } catch (e) {
      // server restarting
    }
    setTimeout(poll, 1000);
  }
  if (document.readyState === 'complete') {
    poll();
  } else {
    window.addEventListener('load', poll);
  }
})();
</script>`

// liveReloadHandler reports the watcher's change sequence as JSON.
type liveReloadHandler struct {
	server *Server
}

func newLiveReloadHandler(s *Server) *liveReloadHandler {
	return &liveReloadHandler{server: s}
}

func (h *liveReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var seq uint64
	if h.server.watcher != nil {
		seq = h.server.watcher.ChangeSeq()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	json.NewEncoder(w).Encode(struct {
		Seq uint64 `json:"seq"`
	}{seq})
}

// injectLiveReload wraps next so that HTML responses carry the polling
// script. Other responses pass through untouched.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/socket.io/") {
			next.ServeHTTP(w, r)
			return
		}
		lw := &liveReloadWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		lw.finish()
	})
}

// liveReloadWriter holds back HTML bodies until the handler is done.
type liveReloadWriter struct {
	http.ResponseWriter
	status  int
	decided bool
	isHTML  bool
	buf     bytes.Buffer
}

func (w *liveReloadWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.decide()
}

func (w *liveReloadWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.decide()
	if w.isHTML {
		return w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// decide checks the content type once. Non-HTML headers go out at once,
// as do byte ranges of HTML, which must stay as served.
func (w *liveReloadWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	w.isHTML = strings.Contains(w.Header().Get("Content-Type"), "text/html") &&
		w.status != http.StatusPartialContent &&
		w.Header().Get("Content-Range") == ""
	if !w.isHTML {
		w.ResponseWriter.WriteHeader(w.status)
	}
}

func (w *liveReloadWriter) finish() {
	if !w.decided || !w.isHTML {
		return
	}
	if w.buf.Len() == 0 {
		w.ResponseWriter.WriteHeader(w.status)
		return
	}
	body := injectScript(w.buf.Bytes(), liveReloadScript)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.Write(body)
}

// injectScript places script before the closing body (or html) tag, or
// appends it when neither exists.
func injectScript(content []byte, script string) []byte {
	idx := len(content)
	if loc := closingTagRe.FindIndex(content); loc != nil {
		idx = loc[0]
	}
	out := make([]byte, 0, len(content)+len(script))
	out = append(out, content[:idx]...)
	out = append(out, script...)
	out = append(out, content[idx:]...)
	return out
}
