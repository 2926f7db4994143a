package factory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/opsdash/materializer/internal/config"
)

func CreatePushServer(conf config.Server, pushHandler http.Handler) *http.Server {
	ret := &http.Server{
		Addr:         fmt.Sprintf(":%v", conf.Port),
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
	}
	ret.SetKeepAlivesEnabled(true)
	ret.IdleTimeout = 5 * time.Second

	router := http.NewServeMux()
	router.Handle("/push", pushHandler)
	router.HandleFunc("/healthz", handleProbe)
	router.HandleFunc("/readyz", handleProbe)
	ret.Handler = router

	return ret
}

// handleProbe answers liveness and readiness. The store is pinged before the
// server starts, so a serving process is a ready process.
func handleProbe(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte("ok"))
}
