package v1

import (
	"hash/fnv"
	"net/http"
	"sync"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// keyLocks serializes requests sharing an idempotency key within this process.
type keyLocks [64]sync.Mutex

func (l *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l[h.Sum32()%uint32(len(l))]
	m.Lock()
	return m.Unlock
}

// idempotent runs handle once per key. A replay with the same body hash gets
// the stored response; a different body is a conflict. 5xx responses are not
// stored so the client can retry.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, key, bodyHash string, handle func(http.ResponseWriter)) {
	defer s.idemLocks.lock(key)()

	prev, ok, err := s.idem.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrStorage, "idempotency store: "+err.Error()))
		return
	}
	if ok {
		if prev.BodyHash != bodyHash {
			s.writeError(w, r, errs.Wrap(errs.ErrConflict, "idempotency key reused with a different request"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prev.Status)
		_, _ = w.Write(prev.Payload)
		return
	}

	rw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
	handle(rw)
	if rw.status >= http.StatusInternalServerError {
		return
	}
	rec := idempotency.Record{BodyHash: bodyHash, Status: rw.status, Payload: rw.buf}
	if err := s.idem.Put(r.Context(), key, rec); err != nil {
		s.log.Warn("idempotency record not stored", "key", key, "err", err)
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    []byte
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	return w.ResponseWriter.Write(b)
}
